package report

import (
	"fmt"
	"sort"
	"time"

	"khata/internal/core"
)

// merchantLabelLimit caps the merchant column derived from raw text.
const merchantLabelLimit = 40

// Top-category overshoot factor that triggers the first insight.
const overshootFactor = 1.25

type (
	// DayTotal is one point of the per-day trend series.
	DayTotal struct {
		Date  string  `json:"date"`
		Total float64 `json:"total"`
	}

	// TableRow is one record in the analysis listing.
	TableRow struct {
		Date     string        `json:"date"`
		Merchant string        `json:"merchant"`
		Category core.Category `json:"category"`
		Amount   float64       `json:"amount"`
	}

	// Analysis is the full period analysis view: daily trend, ranked
	// category breakdown, record table, and heuristic insights.
	Analysis struct {
		Range      PeriodView      `json:"range"`
		Trend      []DayTotal      `json:"trend"`
		ByCategory []CategoryTotal `json:"by_category"`
		Table      []TableRow      `json:"table"`
		Insights   []string        `json:"insights"`
	}
)

// Analyze builds the analysis view for one owner over the given period.
// Both insight heuristics are independent: either, both, or neither may
// fire. With no budget set the forecast insight never fires.
func Analyze(records []core.ExpenseRecord, settings core.Settings, period Period, now time.Time) Analysis {
	inWindow := filterPeriod(records, period)

	a := Analysis{
		Range:      period.view(),
		Trend:      dailyTrend(inWindow),
		ByCategory: rankCategories(inWindow, 0),
		Table:      buildTable(inWindow),
		Insights:   []string{},
	}

	if insight, ok := overshootInsight(a.ByCategory); ok {
		a.Insights = append(a.Insights, insight)
	}
	if insight, ok := forecastInsight(inWindow, settings, period, now); ok {
		a.Insights = append(a.Insights, insight)
	}

	return a
}

func dailyTrend(records []core.ExpenseRecord) []DayTotal {
	byDay := make(map[string]float64)
	for _, r := range records {
		byDay[r.OccurredAt.Format(core.DateLayout)] += r.Amount
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]DayTotal, 0, len(days))
	for _, d := range days {
		out = append(out, DayTotal{Date: d, Total: byDay[d]})
	}
	return out
}

func buildTable(records []core.ExpenseRecord) []TableRow {
	sorted := append([]core.ExpenseRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.After(sorted[j].OccurredAt)
	})

	out := make([]TableRow, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, TableRow{
			Date:     r.OccurredAt.Format(core.DateLayout),
			Merchant: merchantLabel(r.RawText),
			Category: r.Category,
			Amount:   r.Amount,
		})
	}
	return out
}

// merchantLabel derives a display label from the first line of the raw
// text, truncated to 40 characters. Receipts usually open with the
// merchant name.
func merchantLabel(rawText string) string {
	line := rawText
	for i, r := range rawText {
		if r == '\n' {
			line = rawText[:i]
			break
		}
	}
	runes := []rune(line)
	if len(runes) > merchantLabelLimit {
		runes = runes[:merchantLabelLimit]
	}
	return string(runes)
}

// overshootInsight fires when the top category's total exceeds 1.25x the
// mean of all category totals in the window.
func overshootInsight(ranked []CategoryTotal) (string, bool) {
	if len(ranked) == 0 {
		return "", false
	}
	var sum float64
	for _, c := range ranked {
		sum += c.Total
	}
	avg := sum / float64(len(ranked))
	top := ranked[0]
	if avg == 0 || top.Total <= avg*overshootFactor {
		return "", false
	}
	pct := (top.Total/avg - 1) * 100
	return fmt.Sprintf("Spending %.0f%% above category average in %s this period.", pct, top.Category), true
}

// forecastInsight projects spend linearly from the daily burn rate and
// fires when the projection strictly exceeds the monthly budget. Elapsed
// days are floored at 1 and capped at the window length, so a freshly
// started window still produces a finite rate.
func forecastInsight(records []core.ExpenseRecord, settings core.Settings, period Period, now time.Time) (string, bool) {
	if !settings.HasBudget() {
		return "", false
	}

	var spent float64
	for _, r := range records {
		spent += r.Amount
	}

	windowDays := period.Days()
	ref := now
	if ref.After(period.End) {
		ref = period.End
	}
	elapsed := int(ref.Sub(period.Start).Hours() / 24)
	if elapsed < 1 {
		elapsed = 1
	}

	daily := spent / float64(elapsed)
	forecast := daily * float64(windowDays)
	if forecast <= settings.MonthlyBudget {
		return "", false
	}
	return fmt.Sprintf("At this rate, you may exceed your budget by ₹%.0f.", forecast-settings.MonthlyBudget), true
}
