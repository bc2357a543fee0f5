// Package engine implements the receipt intelligence engine: total-amount
// extraction from OCR text, keyword categorization, and the want/need
// assessment rules. Every function here is pure and total: malformed
// input degrades to a safe default instead of returning an error.
package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// numberGroup matches a money-like numeric token: either comma-grouped
// thousands with up to two decimals, or a plain digit run with up to two
// decimals. The grouped branch requires at least one comma group; with
// leftmost-first alternation an optional group would truncate a plain
// multi-digit amount to its first three digits.
const numberGroup = `([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]+(?:\.[0-9]{1,2})?)`

var (
	// totalKeywords signal a grand-total line. Checked per line, bottom-up,
	// because receipts conventionally print the total last.
	totalKeywords = []*regexp.Regexp{
		regexp.MustCompile(`(?i)grand\s*total`),
		regexp.MustCompile(`(?i)total\s*amount`),
		regexp.MustCompile(`(?i)amount\s*payable`),
		regexp.MustCompile(`(?i)net\s*total`),
		regexp.MustCompile(`(?i)balance\s*due`),
		regexp.MustCompile(`(?i)total$`),
		regexp.MustCompile(`(?i)total\s*:`),
	}

	// lineAmount extracts a number from a keyword line, with an optional
	// currency marker in front.
	lineAmount = regexp.MustCompile(`(?i)(?:(?:₹|rs\.?)[\s:]*)?` + numberGroup)

	// currencyAmount matches only currency-marked numbers (₹ or rs-prefixed).
	currencyAmount = regexp.MustCompile(`(?i)(?:₹|rs\.?)[\s:]*` + numberGroup)

	// bareNumber matches any numeric token for the last-resort scan. Same
	// branch ordering constraint as numberGroup.
	bareNumber = regexp.MustCompile(`[0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]+(?:\.[0-9]{1,2})?`)
)

// Bounds for the largest-plausible-number fallback. Tokens outside this
// range are treated as identifiers, quantities or OCR noise.
const (
	minPlausibleAmount = 1
	maxPlausibleAmount = 1_000_000
)

// ExtractTotalAmount returns the best-guess receipt total from free-form
// OCR text. Strategies are tried in priority order; the first that yields
// a value wins. The function never fails: text with no usable number
// returns 0.
//
// 1. Scan non-empty lines bottom-up for a total keyword and take the
//    first number on that line.
// 2. Take the last currency-marked (₹/rs) number anywhere in the text;
//    subtotals are listed before totals, so the last marked figure wins.
// 3. Take the largest bare numeric token in [1, 1000000], ignoring
//    separator-free digit runs of 10+ digits (phone numbers, receipt IDs).
func ExtractTotalAmount(text string) float64 {
	if v, ok := amountFromKeywordLine(text); ok {
		return v
	}
	if v, ok := lastCurrencyAmount(text); ok {
		return v
	}
	if v, ok := largestPlausibleAmount(text); ok {
		return v
	}
	return 0
}

func amountFromKeywordLine(text string) (float64, bool) {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}

	for i := len(lines) - 1; i >= 0; i-- {
		ln := lines[i]
		if !matchesTotalKeyword(ln) {
			continue
		}
		m := lineAmount.FindStringSubmatch(ln)
		if m == nil {
			// Keyword line with no number: keep scanning earlier lines.
			continue
		}
		if v, ok := parseAmountToken(m[1]); ok {
			return v, true
		}
	}
	return 0, false
}

func matchesTotalKeyword(line string) bool {
	for _, re := range totalKeywords {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func lastCurrencyAmount(text string) (float64, bool) {
	matches := currencyAmount.FindAllStringSubmatch(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if v, ok := parseAmountToken(matches[i][1]); ok {
			return v, true
		}
	}
	return 0, false
}

func largestPlausibleAmount(text string) (float64, bool) {
	var best float64
	found := false
	for _, tok := range bareNumber.FindAllString(text, -1) {
		if isIdentifierRun(tok) {
			continue
		}
		v, ok := parseAmountToken(tok)
		if !ok || v < minPlausibleAmount || v > maxPlausibleAmount {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}

// isIdentifierRun reports whether tok is a bare run of 10+ digits with no
// separators, a phone number or receipt ID rather than an amount.
func isIdentifierRun(tok string) bool {
	if strings.ContainsAny(tok, ",.") {
		return false
	}
	digits := 0
	for _, r := range tok {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 10
}

// parseAmountToken strips thousands separators and converts. A malformed
// token yields (0, false) rather than an error.
func parseAmountToken(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
