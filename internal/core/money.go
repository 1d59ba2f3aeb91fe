// Package core provides the domain types shared by the services and the
// storage layer.
//
// This file contains signed money parsing and formatting. The sign of a
// transaction amount is the sole encoding of income (positive) versus expense
// (negative); all calculations run on integer cents.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is a signed amount in cents.
type Money struct {
	Cents int64
}

// Validate rejects zero amounts. Negative amounts are valid: they are
// expenses.
func (m Money) Validate() error {
	if m.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsIncome reports whether the amount carries the income sign.
func (m Money) IsIncome() bool {
	return m.Cents > 0
}

// Abs returns the magnitude of the amount.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Neg returns the amount with the sign flipped.
func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

// String formats the amount as a signed decimal, e.g. "-12.50".
func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// ParseMoney converts a signed decimal string to cents with half-up rounding
// on the third decimal place. Both dot and comma decimal separators are
// accepted.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234, nil
//	ParseMoney("-12,34") -> -1234, nil
//	ParseMoney("12.346") -> 1235, nil (rounds up)
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	if intPart == "0" && fracPart == "" {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}

	// Take the first two fractional digits, then half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	cents := iv*100 + fracCents
	if cents == 0 {
		return Money{}, ErrInvalidAmount
	}
	if negative {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}
