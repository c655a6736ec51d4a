package extract

import (
	"regexp"
	"strings"
)

// Cascades are ordered: the first rule whose capture passes validation wins
// and later rules never run. Reordering a cascade is a data change here, not
// a code change.

var dateRules = []rule{
	// 4TH SEPTEMBER, 2025
	{re: regexp.MustCompile(`(?i)(\d{1,2}(?:ST|ND|RD|TH)\s+[A-Z]+,?\s+\d{4})`)},
	// 4ZH SEPTEMBER 2025: OCR often mangles the ordinal suffix
	{re: regexp.MustCompile(`(?i)(\d{1,2}[A-Z]{2}\s+[A-Z]{3,9},?\s*\d{4})`)},
	// 04 SEP 2025
	{re: regexp.MustCompile(`(?i)(\d{1,2}\s+[A-Z]{3,9}\s+\d{4})`)},
	// 04/09/2025 or 04-09-2025
	{re: regexp.MustCompile(`(\d{1,2}[-/]\d{1,2}[-/]\d{4})`)},
}

var pinFormat = regexp.MustCompile(`^[A-Z]\d{9}[A-Z]$`)

// validPIN uppercases the candidate and enforces the strict
// letter + 9 digits + letter format. Anything else is rejected so the
// cascade can fall through to the next pattern.
func validPIN(candidate string) (string, bool) {
	pin := strings.ToUpper(strings.TrimSpace(candidate))
	if !pinFormat.MatchString(pin) {
		return "", false
	}
	return pin, true
}

var pinRules = []rule{
	{re: regexp.MustCompile(`(?i)PIN[:\s]*([A-Z]\d{9}[A-Z])`), validate: validPIN},
	{re: regexp.MustCompile(`(?i)P\.?I\.?N\.?[:\s]*([A-Z]\d{9}[A-Z])`), validate: validPIN},
	// Bare token anywhere in the text. This can pick up PIN-shaped strings
	// outside a PIN context; the format check is the only guard.
	{re: regexp.MustCompile(`(?i)([A-Z]\d{9}[A-Z])`), validate: validPIN},
}

var corporateSuffixes = []string{
	"LIMITED", "LTD", "COMPANY", "GROUP", "CORPORATION",
	"CORP", "INC", "ENTERPRISES", "SERVICES",
}

// validTaxpayerName accepts either a business name carrying a corporate
// suffix or an individual name of 2-4 alphabetic words. The alpha-or-space
// ratio cut rejects address fragments and OCR noise without separate code
// paths for the two name kinds.
func validTaxpayerName(candidate string) (string, bool) {
	name := collapseSpace(candidate)
	if len(name) < 5 || len(name) > 100 {
		return "", false
	}
	upper := strings.ToUpper(name)
	hasSuffix := false
	for _, kw := range corporateSuffixes {
		if strings.Contains(upper, kw) {
			hasSuffix = true
			break
		}
	}
	if !hasSuffix && !alphaWords(name, 2, 4) {
		return "", false
	}
	if alphaSpaceRatio(name) <= 0.7 {
		return "", false
	}
	return name, true
}

var taxpayerRules = []rule{
	// Individual name on the line after the PIN, up to the trailing comma.
	{re: regexp.MustCompile(`(?is)PIN[:\s]*[A-Z]\d{9}[A-Z][^\n]*\n\s*([A-Za-z][A-Za-z\s]+?),`), validate: validTaxpayerName},
	// Business name ending in a corporate suffix.
	{re: regexp.MustCompile(`(?is)([A-Z][A-Z\s&.,()-]+?(?:LIMITED|LTD|COMPANY|GROUP|CORPORATION|CORP|INC|ENTERPRISES|SERVICES))\s*(?:\n|$|P\.O\.)`), validate: validTaxpayerName},
	// Anything between the PIN line and the P. O. address block.
	{re: regexp.MustCompile(`(?is)PIN[:\s]*[A-Z]\d{9}[A-Z]\s*\n\s*([A-Z][A-Z\s&.,()-]{5,}?)\s*\n\s*P\.\s*O\.`), validate: validTaxpayerName},
	// Long uppercase span directly above the P.O. BOX line, last resort.
	{re: regexp.MustCompile(`(?is)([A-Z][A-Z\s&.,()LTD-]{10,}?)\s*\n\s*P\.\s*O\.\s*BOX`), validate: validTaxpayerName},
}

// validOfficerName accepts 2-4 alphabetic words totalling 5-50 characters.
func validOfficerName(candidate string) (string, bool) {
	name := collapseSpace(candidate)
	if len(name) < 5 || len(name) > 50 {
		return "", false
	}
	if !alphaWords(name, 2, 4) {
		return "", false
	}
	return name, true
}

var officerRules = []rule{
	{re: regexp.MustCompile(`(?i)Officer[:\s]*([A-Z][a-zA-Z\s]+?)(?:\n|Contact|Tel|Phone|Email)`), validate: validOfficerName},
	{re: regexp.MustCompile(`(?i)contact\s+([A-Z][a-z]+\s+[A-Z][a-z]+)\s+or`), validate: validOfficerName},
	{re: regexp.MustCompile(`(?i)hesitate\s+to\s+contact\s+([A-Z][a-z]+\s+[A-Z][a-z]+)`), validate: validOfficerName},
	{re: regexp.MustCompile(`(?is)contact\s+([A-Z][a-z]+\s+[A-Z][a-z]+).*?phone`), validate: validOfficerName},
	{re: regexp.MustCompile(`(?is)Yours\s+faithfully,.*?\n\s*([A-Z][a-z]+\s+[A-Z][a-z]+)`), validate: validOfficerName},
	{re: regexp.MustCompile(`(?i)contact\s+([A-Z][a-z]+\s+[A-Z][a-z]+)`), validate: validOfficerName},
}

// validStation uppercases and requires at least 3 characters.
func validStation(candidate string) (string, bool) {
	station := strings.ToUpper(strings.TrimSpace(candidate))
	if len(station) < 3 {
		return "", false
	}
	return station, true
}

var noticeRules = []rule{
	// Full Tax Procedures Act subject with year.
	{re: regexp.MustCompile(`(?i)RE:\s*([A-Z\s,\d]+TAX\s+PROCEDURES\s+ACT[^A-Z]*\d{4})`), validate: validNotice},
	// Section reference subject.
	{re: regexp.MustCompile(`(?i)RE:\s*([A-Z\s,\d]+SECTION\s+\d+[^A-Z]*TAX[^A-Z]*ACT)`), validate: validNotice},
	// Whatever sits on the RE: line itself.
	{re: regexp.MustCompile(`(?im)^RE:\s*(\S[^\n]*)$`), validate: validNotice},
}

func validNotice(candidate string) (string, bool) {
	subject := collapseSpace(candidate)
	if len(subject) < 5 {
		return "", false
	}
	return subject, true
}
