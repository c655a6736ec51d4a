package extract

import (
	"regexp"
	"strings"
)

// Monetary extraction keeps the document's own formatting (thousands
// separators, optional cents) rather than parsing to a number.

var amountToken = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d{1,7}(?:\.\d{1,2})?)`)

// fallbackAmountRules match tax-adjacent amounts when no "total tax" line
// exists. They are noisier, so candidates below the minimum value are
// rejected to keep PIN digits, phone numbers and box numbers out.
var fallbackAmountRules = []rule{
	{re: regexp.MustCompile(`(?i)Tax\s+Due[:\s]*(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`), validate: validFallbackAmount},
	{re: regexp.MustCompile(`(?i)Amount\s+Due[:\s]*(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`), validate: validFallbackAmount},
	{re: regexp.MustCompile(`(?i)(?:Total|Sum)[:\s]*(?:KES|Kshs?)?[:\s]*(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`), validate: validFallbackAmount},
	{re: regexp.MustCompile(`(?i)(?:pay|remit)[:\s]*(?:KES|Kshs?)?[:\s]*(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`), validate: validFallbackAmount},
	{re: regexp.MustCompile(`(?i)\b(\d{1,3}(?:,\d{3})+)\b\s*(?:KES|Kshs?|shillings)`), validate: validFallbackAmount},
}

const (
	minFallbackAmount = 1_000
	maxFallbackAmount = 50_000_000
)

func validFallbackAmount(candidate string) (string, bool) {
	amount := strings.TrimSpace(candidate)
	v, ok := amountValue(amount)
	if !ok || v < minFallbackAmount || v > maxFallbackAmount {
		return "", false
	}
	return amount, true
}

// looksLikeYear rejects bare four-digit tokens in the calendar range, which
// show up on assessment lines next to the actual amounts.
func looksLikeYear(s string) bool {
	if len(s) != 4 || strings.ContainsAny(s, ",.") {
		return false
	}
	v, ok := amountValue(s)
	return ok && v >= 1900 && v <= 2100
}

// amountValue parses the integer part of a separator-formatted amount.
func amountValue(s string) (int64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return 0, false
	}
	var v int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
	}
	return v, true
}

// extractAmounts pulls the assessed amounts. Lines literally containing
// "total tax" are authoritative: the first amount found there is the
// pre-amendment figure and a later, different amount is the final one.
// Without such a line the broader patterns fill preAmount only.
func extractAmounts(text string) (pre, final string) {
	for _, line := range strings.Split(text, "\n") {
		idx := strings.Index(strings.ToLower(line), "total tax")
		if idx < 0 {
			continue
		}
		for _, m := range amountToken.FindAllStringSubmatch(line[idx:], -1) {
			amount := m[1]
			if looksLikeYear(amount) {
				continue
			}
			if pre == "" {
				pre = amount
				continue
			}
			if amount != pre && final == "" {
				final = amount
			}
		}
	}
	if pre != "" {
		return pre, final
	}
	return firstMatch(fallbackAmountRules, text), ""
}
