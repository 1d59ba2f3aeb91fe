package core

import (
	"errors"
	"strings"
)

const (
	Income  CategoryType = "income"
	Expense CategoryType = "expense"

	// RecurringPrefix is the literal prefix of every generated transaction's
	// description. It is part of the durable persisted contract: the
	// materializer's duplicate check matches on it, so it must not change
	// without a data migration.
	RecurringPrefix = "Recurring: "
)

type (
	CategoryType string

	Category struct {
		ID           int64
		Name         string
		Type         CategoryType
		Emoji        string
		DisplayOrder int64
	}

	Transaction struct {
		ID          int64
		CategoryID  int64
		Amount      Money // sign encodes income vs expense
		Description string
		Date        Date
	}

	// RecurringDefinition is a template describing a transaction that recurs
	// on the listed days of each month, starting at StartDate. Name,
	// CategoryID and StartDate are immutable after creation; the service
	// layer enforces that, not the store.
	RecurringDefinition struct {
		ID          int64
		Name        string
		Amount      Money
		CategoryID  int64
		DaysOfMonth string // comma-delimited, values in 1..31
		StartDate   Date
		IsActive    bool
		Description string
	}

	// AmountChange is one step of a definition's amount history. For a query
	// date D the effective amount is the entry with the greatest StartDate
	// <= D, or the definition's current amount if no entry predates D.
	AmountChange struct {
		ID           int64
		DefinitionID int64
		Amount       Money
		StartDate    Date // effective date
		Note         string
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyDaySet        = errors.New("empty day set")
	ErrMalformedDaySet    = errors.New("malformed day set")
	ErrDayOutOfRange      = errors.New("day of month out of range")
	ErrInvalidCategory    = errors.New("invalid category type")
	ErrAmountSignMismatch = errors.New("amount sign does not match category type")
)

// GeneratedDescription returns the description used for transactions
// materialized from a recurring definition.
func GeneratedDescription(name string) string {
	return RecurringPrefix + name
}

// MatchesSign reports whether the amount's sign is consistent with the
// category type. The schema does not enforce this; every writer does.
func (t CategoryType) MatchesSign(m Money) bool {
	if t == Income {
		return m.Cents > 0
	}
	return m.Cents < 0
}

func (t CategoryType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidCategory
	}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return c.Type.Validate()
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.CategoryID <= 0 {
		return errors.New("missing category")
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return t.Amount.Validate()
}

func (r RecurringDefinition) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if err := r.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if r.CategoryID <= 0 {
		return errors.New("missing category")
	}
	if _, err := ParseDaySet(r.DaysOfMonth); err != nil {
		return err
	}
	if len(r.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return r.Amount.Validate()
}

// Days parses the definition's trigger days.
func (r RecurringDefinition) Days() (DaySet, error) {
	return ParseDaySet(r.DaysOfMonth)
}
