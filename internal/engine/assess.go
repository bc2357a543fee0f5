package engine

import (
	"fmt"
	"strings"

	"khata/internal/core"
)

const (
	Wanted   Verdict = "Wanted"
	Unwanted Verdict = "Unwanted"
)

// Verdict is the want/need judgment attached to an expense.
type Verdict string

// Assessment is the outcome of the necessity rules: a verdict, a one-line
// rationale, and zero or more savings tips in generation order.
type Assessment struct {
	Verdict Verdict
	Reason  string
	Tips    []string
}

// Misc purchases under this amount count as Wanted.
const miscWantedThreshold = 500

// Cross-category tip thresholds.
const (
	highSpendThreshold       = 2000
	emergencyBufferThreshold = 5000
)

// eatingOutKeywords mark a Food expense as dining out rather than groceries.
var eatingOutKeywords = []string{"restaurant", "hotel", "pizza", "burger", "biryani"}

// Assess applies the rule-based necessity judgment to an expense. The
// category branches are evaluated in a fixed order and the first match
// applies; the amount-threshold tips are appended afterwards regardless
// of category. Deterministic, no I/O.
func Assess(category core.Category, amount float64, text string) Assessment {
	lower := strings.ToLower(text)

	var a Assessment
	switch {
	case category == core.Bills || category == core.Health || category == core.Travel:
		a.Verdict = Wanted
		a.Reason = fmt.Sprintf("%s is generally a necessary expense.", category)
		if category == core.Bills {
			a.Tips = append(a.Tips, "Review recurring plans to eliminate unused subscriptions.")
		}
		if category == core.Health {
			a.Tips = append(a.Tips, "Compare pharmacies or use generics to reduce costs.")
		}
	case category == core.Entertainment || category == core.Shopping:
		a.Verdict = Unwanted
		a.Reason = fmt.Sprintf("%s is usually discretionary.", category)
		a.Tips = append(a.Tips,
			"Set a monthly cap for discretionary categories.",
			"Delay non-urgent purchases by 24 hours to curb impulse buys.")
	case category == core.Food:
		if containsAny(lower, eatingOutKeywords) {
			a.Verdict = Unwanted
			a.Reason = "Eating out is discretionary compared to groceries."
			a.Tips = append(a.Tips, "Meal plan and cook at home more often.")
		} else {
			a.Verdict = Wanted
			a.Reason = "Groceries are generally necessary."
		}
	default:
		if amount < miscWantedThreshold {
			a.Verdict = Wanted
		} else {
			a.Verdict = Unwanted
		}
		a.Reason = "Small purchases may be okay; larger ones may be avoidable."
	}

	// Amount-driven tips accumulate on top of the category tips.
	if amount >= highSpendThreshold && (category == core.Entertainment || category == core.Shopping) {
		a.Tips = append(a.Tips, "High spend detected. Consider reducing frequency or finding cheaper alternatives.")
	}
	if amount >= emergencyBufferThreshold {
		a.Tips = append(a.Tips, "Set aside an emergency buffer before large discretionary spends.")
	}

	return a
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// TipBank maps each category to canned savings suggestions. It is
// read-only reference data, disjoint from the tips Assess generates;
// callers surface it when the generated tips are empty (manual entry
// does this) or alongside them.
var TipBank = map[core.Category][]string{
	core.Food: {
		"Plan meals and batch-cook twice a week.",
		"Buy staples in bulk and prefer store brands.",
		"Limit eating out to pre-planned occasions.",
	},
	core.Travel: {
		"Bundle errands and carpool when possible.",
		"Use public transport for 1-2 trips per week.",
		"Track fuel efficiency and maintain tyre pressure.",
	},
	core.Entertainment: {
		"Set a monthly cap and pre-schedule low-cost activities.",
		"Share subscriptions or rotate platforms.",
		"Use free community events.",
	},
	core.Bills: {
		"Audit subscriptions; cancel unused plans.",
		"Negotiate internet/mobile plans annually.",
		"Use auto-pay to avoid late fees.",
	},
	core.Shopping: {
		"Apply the 24-hour rule for non-essentials.",
		"Remove saved cards to reduce impulse buys.",
		"Compare across stores and wait for sales.",
	},
	core.Health: {
		"Use generics and compare pharmacy prices.",
		"Schedule annual preventive checkups.",
		"Use HSAs/insurance to lower out-of-pocket.",
	},
}

// StaticTips returns the tip-bank entries for a category, or fallback
// when the bank has none (Misc has no canned tips).
func StaticTips(category core.Category, fallback []string) []string {
	if tips, ok := TipBank[category]; ok {
		return tips
	}
	return fallback
}

// TaxTipsIndia is the canned India tax-saving checklist surfaced by the
// tips endpoint. Immutable reference data.
var TaxTipsIndia = []string{
	"Use Section 80C (₹1.5L): ELSS, PPF, EPF, SSY, life insurance premiums.",
	"Extra NPS under 80CCD(1B) (₹50k) in addition to 80C.",
	"80D: Health insurance premiums (self/family/parents) and preventive checkups.",
	"HRA exemption if paying rent (keep rent receipts, PAN of landlord if >₹1L/year).",
	"Home loan: 24(b) interest up to ₹2L; principal under 80C; consider 80EE/80EEA where eligible.",
	"80TTA/80TTB: Savings interest deduction (₹10k/₹50k for seniors).",
	"80G: Donations to approved institutions (retain receipts/Form 10BE).",
	"LTA: Claim for domestic travel as per employer policy with proofs.",
	"80E: Education loan interest deduction (no upper cap; max 8 years).",
	"Choose regime wisely: Old (deductions) vs New (lower rates, fewer deductions).",
}
