package report

import (
	"sort"
	"time"

	"khata/internal/core"
)

const (
	topCategoryCount    = 3
	recentActivityCount = 10
)

type (
	// CategoryTotal is an aggregated spend for one category.
	CategoryTotal struct {
		Category core.Category `json:"category"`
		Total    float64       `json:"total"`
	}

	// BudgetStatus reports budget usage. PercentUsed is nil when no
	// monthly budget has been set. Omitted, not zero.
	BudgetStatus struct {
		Amount      float64  `json:"amount"`
		PercentUsed *float64 `json:"percent_used,omitempty"`
	}

	// ActivityEntry is one line of recent activity.
	ActivityEntry struct {
		Date     string        `json:"date"`
		Category core.Category `json:"category"`
		Amount   float64       `json:"amount"`
		Filename string        `json:"filename,omitempty"`
	}

	// Summary is the dashboard view for one owner over one period.
	Summary struct {
		Period        PeriodView      `json:"period"`
		TotalSpend    float64         `json:"total_spend"`
		TopCategories []CategoryTotal `json:"top_categories"`
		Budget        BudgetStatus    `json:"budget"`
		NetBalance    *float64        `json:"net_balance,omitempty"`
		Recent        []ActivityEntry `json:"recent"`
	}

	// PeriodView is the wire form of a period, plain calendar dates.
	PeriodView struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
)

func (p Period) view() PeriodView {
	return PeriodView{
		Start: p.Start.Format(core.DateLayout),
		End:   p.End.Format(core.DateLayout),
	}
}

// Summarize computes the current-month dashboard summary: total spend,
// top three categories, budget usage (only when a budget is set), and
// the ten most recent records. Records outside the month are ignored.
func Summarize(records []core.ExpenseRecord, settings core.Settings, now time.Time) Summary {
	period := MonthBounds(now)
	inWindow := filterPeriod(records, period)

	var total float64
	for _, r := range inWindow {
		total += r.Amount
	}

	s := Summary{
		Period:        period.view(),
		TotalSpend:    total,
		TopCategories: rankCategories(inWindow, topCategoryCount),
		Budget:        BudgetStatus{Amount: settings.MonthlyBudget},
		Recent:        recentActivity(inWindow, recentActivityCount),
	}

	if settings.HasBudget() {
		pct := total / settings.MonthlyBudget * 100
		s.Budget.PercentUsed = &pct
		net := settings.MonthlyBudget - total
		s.NetBalance = &net
	}

	return s
}

// Breakdown ranks all-time spend per category, descending, with no
// window or limit.
func Breakdown(records []core.ExpenseRecord) []CategoryTotal {
	return rankCategories(records, 0)
}

func filterPeriod(records []core.ExpenseRecord, p Period) []core.ExpenseRecord {
	out := make([]core.ExpenseRecord, 0, len(records))
	for _, r := range records {
		if p.Contains(r.OccurredAt) {
			out = append(out, r)
		}
	}
	return out
}

// rankCategories groups by category and ranks descending by total,
// keeping at most limit entries. Ties break on taxonomy order so the
// ranking is deterministic.
func rankCategories(records []core.ExpenseRecord, limit int) []CategoryTotal {
	totals := make(map[core.Category]float64)
	for _, r := range records {
		totals[r.Category] += r.Amount
	}

	ranked := make([]CategoryTotal, 0, len(totals))
	for _, cat := range core.Taxonomy {
		if t, ok := totals[cat]; ok {
			ranked = append(ranked, CategoryTotal{Category: cat, Total: t})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total > ranked[j].Total
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func recentActivity(records []core.ExpenseRecord, limit int) []ActivityEntry {
	sorted := append([]core.ExpenseRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.After(sorted[j].OccurredAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]ActivityEntry, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, ActivityEntry{
			Date:     r.OccurredAt.Format(core.TimestampLayout),
			Category: r.Category,
			Amount:   r.Amount,
			Filename: r.Filename,
		})
	}
	return out
}
