package engine

import (
	"strings"

	"khata/internal/core"
)

// categoryKeywords is the fixed keyword table, in taxonomy order. The
// first category with any keyword hit wins; order is the tie-break.
// Misc carries no keywords; it is the fallback, not a match target.
var categoryKeywords = []struct {
	category core.Category
	words    []string
}{
	{core.Food, []string{"food", "restaurant", "burger", "pizza", "hotel", "meal", "snack", "biryani"}},
	{core.Travel, []string{"uber", "ola", "train", "flight", "bus", "taxi", "petrol", "fuel"}},
	{core.Entertainment, []string{"movie", "cinema", "netflix", "prime", "game", "music"}},
	{core.Bills, []string{"electricity", "water", "mobile", "internet", "wifi"}},
	{core.Shopping, []string{"amazon", "flipkart", "mall", "clothes", "store"}},
	{core.Health, []string{"pharmacy", "hospital", "doctor", "medical"}},
}

// Categorize maps free text to exactly one taxonomy category by
// case-insensitive substring match. No match returns Misc. Deterministic
// and total: every input, including the empty string, gets a label.
func Categorize(text string) core.Category {
	lower := strings.ToLower(text)
	for _, entry := range categoryKeywords {
		for _, w := range entry.words {
			if strings.Contains(lower, w) {
				return entry.category
			}
		}
	}
	return core.Misc
}
