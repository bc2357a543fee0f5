// Package report computes period-scoped views over one owner's expense
// records: monthly summaries, trend/category analyses, and heuristic
// insights. All functions are pure; they operate on an owner-scoped
// snapshot of records and settings and never fail: missing or malformed
// inputs degrade to the current month and empty results.
package report

import (
	"strings"
	"time"

	"khata/internal/core"
)

// Period is a half-open date interval [Start, End).
type Period struct {
	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// Contains reports whether t falls inside the half-open interval.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Days returns the window length in whole days, floored at 1.
func (p Period) Days() int {
	d := int(p.End.Sub(p.Start).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

// MonthBounds returns the calendar month containing ref as a half-open
// interval: [first of month, first of next month). December rolls over
// to January of the following year.
func MonthBounds(ref time.Time) Period {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	var end time.Time
	if ref.Month() == time.December {
		end = time.Date(ref.Year()+1, time.January, 1, 0, 0, 0, 0, ref.Location())
	} else {
		end = time.Date(ref.Year(), ref.Month()+1, 1, 0, 0, 0, 0, ref.Location())
	}
	return Period{Start: start, End: end}
}

// ParseRange builds a period from plain calendar dates. Missing or
// unparsable values fall back to the current month's bounds; an invalid
// range never produces an error, only the default window.
func ParseRange(start, end string, now time.Time) Period {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" || end == "" {
		return MonthBounds(now)
	}
	s, errS := time.ParseInLocation(core.DateLayout, start, now.Location())
	e, errE := time.ParseInLocation(core.DateLayout, end, now.Location())
	if errS != nil || errE != nil {
		return MonthBounds(now)
	}
	return Period{Start: s, End: e}
}
