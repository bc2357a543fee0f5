package core

import (
	"errors"
	"strings"
	"time"
)

// TimestampLayout is the single fixed format for record timestamps,
// minute precision, no timezone.
const TimestampLayout = "2006-01-02 15:04"

// DateLayout is the plain calendar-date format used for analysis ranges.
const DateLayout = "2006-01-02"

type (
	// ExpenseRecord is one stored expense, derived from a scanned receipt
	// or entered manually. Records are immutable once created; replacing
	// one means deleting it and inserting a new one.
	ExpenseRecord struct {
		ID         string
		Owner      string
		RawText    string // OCR or user-entered text; empty for manual entries
		Category   Category
		Amount     float64 // non-negative; 0 means "could not determine"
		OccurredAt time.Time
		Merchant   string // manual entry only
		Note       string // manual entry only
		Filename   string // source document name, if any
	}

	// Settings is the per-owner configuration. Zero values mean "unset":
	// budget-dependent summary fields are omitted when MonthlyBudget is 0.
	Settings struct {
		Owner         string
		MonthlyBudget float64
		SavingsGoal   float64
		CategoryCaps  map[Category]float64
	}
)

var (
	ErrMissingOwner   = errors.New("missing owner")
	ErrNegativeAmount = errors.New("amount must be non-negative")
	ErrBadCategory    = errors.New("category not in taxonomy")
)

// Validate checks the record invariants: owner present, category drawn
// from the taxonomy, amount non-negative. A zero amount is valid.
func (r ExpenseRecord) Validate() error {
	if strings.TrimSpace(r.Owner) == "" {
		return ErrMissingOwner
	}
	if !r.Category.Valid() {
		return ErrBadCategory
	}
	if r.Amount < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Validate checks that budget, goal and caps are non-negative.
func (s Settings) Validate() error {
	if s.MonthlyBudget < 0 || s.SavingsGoal < 0 {
		return ErrNegativeAmount
	}
	for cat, cap := range s.CategoryCaps {
		if !cat.Valid() {
			return ErrBadCategory
		}
		if cap < 0 {
			return ErrNegativeAmount
		}
	}
	return nil
}

// HasBudget reports whether a monthly budget has been set.
func (s Settings) HasBudget() bool {
	return s.MonthlyBudget > 0
}

// ParseTimestamp parses a record timestamp in the fixed layout, falling
// back to now when the value is empty or unparsable. Receipts never fail
// to store because of a bad date.
func ParseTimestamp(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	// Accept the datetime-local form ("2006-01-02T15:04") as well.
	s = strings.Replace(s, "T", " ", 1)
	if t, err := time.ParseInLocation(TimestampLayout, s, now.Location()); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(DateLayout, s, now.Location()); err == nil {
		return t
	}
	return now
}
