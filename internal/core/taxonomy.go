package core

import "strings"

const (
	Food          Category = "Food"
	Travel        Category = "Travel"
	Entertainment Category = "Entertainment"
	Bills         Category = "Bills"
	Shopping      Category = "Shopping"
	Health        Category = "Health"
	Misc          Category = "Misc"
)

// Category is one label from the fixed expense taxonomy.
type Category string

// Taxonomy lists every category in evaluation order. The order matters:
// the categorizer and the assessment rules check categories in this
// sequence, so it doubles as the tie-break.
var Taxonomy = []Category{Food, Travel, Entertainment, Bills, Shopping, Health, Misc}

// Valid reports whether c is one of the taxonomy labels.
func (c Category) Valid() bool {
	for _, t := range Taxonomy {
		if c == t {
			return true
		}
	}
	return false
}

// ParseCategory maps free text to a taxonomy label, case-insensitively.
// Anything unrecognized becomes Misc so that a record can always be stored.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, t := range Taxonomy {
		if strings.EqualFold(s, string(t)) {
			return t
		}
	}
	return Misc
}
