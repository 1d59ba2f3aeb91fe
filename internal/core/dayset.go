package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DaySet is a validated set of day-of-month trigger values. The persisted
// representation is a comma-delimited string ("1,15"); parsing validates the
// 1..31 range at construction time so later use never sees bad data.
//
// Days above the length of a given month simply never fire in that month;
// there is no clamping to month-end.
type DaySet []int

// ParseDaySet parses a comma-delimited day list. Malformed tokens and values
// outside [1,31] are hard failures.
func ParseDaySet(s string) (DaySet, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyDaySet
	}

	seen := make(map[int]bool)
	var days DaySet
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		d, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedDaySet, tok)
		}
		if d < 1 || d > 31 {
			return nil, fmt.Errorf("%w: %d", ErrDayOutOfRange, d)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}

	sort.Ints(days)
	return days, nil
}

// Contains reports whether day is a trigger day.
func (ds DaySet) Contains(day int) bool {
	for _, d := range ds {
		if d == day {
			return true
		}
	}
	return false
}

// String returns the persisted comma-delimited form.
func (ds DaySet) String() string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}
