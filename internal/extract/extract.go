package extract

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kra-data/notice-cli/internal/model"
)

// rule is one step of a field cascade: a capture pattern plus an optional
// validator. The validator may normalize the candidate; returning ok=false
// rejects it and moves the cascade to the next rule.
type rule struct {
	re       *regexp.Regexp
	validate func(candidate string) (string, bool)
}

// firstMatch evaluates an ordered rule list against text and returns the
// first validated capture, or "" when no rule produces an acceptable value.
func firstMatch(rules []rule, text string) string {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if r.validate == nil {
			return candidate
		}
		if v, ok := r.validate(candidate); ok {
			return v
		}
	}
	return ""
}

// Extractor parses notice text into a Record using per-field pattern
// cascades. It is stateless and safe for concurrent use.
type Extractor struct {
	fields map[string]bool
}

// New creates an Extractor limited to the given active fields.
func New(fields []string) *Extractor {
	active := make(map[string]bool, len(fields))
	for _, f := range fields {
		active[f] = true
	}
	return &Extractor{fields: active}
}

// Extract runs every active field cascade over text. Absent fields come
// back as empty strings; malformed or empty input yields an all-empty
// record rather than an error, so callers never need nil checks.
func (e *Extractor) Extract(text string) model.Record {
	var rec model.Record
	if strings.TrimSpace(text) == "" {
		return rec
	}

	if e.fields[model.FieldDate] {
		rec.Date = firstMatch(dateRules, text)
	}
	if e.fields[model.FieldPIN] {
		rec.PIN = firstMatch(pinRules, text)
	}
	if e.fields[model.FieldTaxpayerName] {
		rec.TaxpayerName = firstMatch(taxpayerRules, text)
	}
	if e.fields[model.FieldYear] {
		rec.Year = extractYear(text, rec.Date)
	}
	if e.fields[model.FieldOfficerName] {
		rec.OfficerName = firstMatch(officerRules, text)
	}
	if e.fields[model.FieldStation] {
		rec.Station = firstMatch(stationRules, text)
	}
	if e.fields[model.FieldNotice] {
		rec.Notice = firstMatch(noticeRules, text)
	}
	if e.fields[model.FieldPreAmount] || e.fields[model.FieldFinalAmount] {
		pre, final := extractAmounts(text)
		if e.fields[model.FieldPreAmount] {
			rec.PreAmount = pre
		}
		if e.fields[model.FieldFinalAmount] {
			rec.FinalAmount = final
		}
	}

	zap.L().Debug("extract: cascade complete",
		zap.Int("fields_found", rec.FieldsFound(model.FieldNames)),
	)
	return rec
}

var (
	yearInDate      = regexp.MustCompile(`\d{4}`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	explicitYearRe  = regexp.MustCompile(`(?i)(?:tax\s+year|year\s+of\s+income|for\s+the\s+year)[:\s]*(\d{4})`)
	yearRangeRe     = regexp.MustCompile(`(?is)(?:tax\s+year|income\s+year|assessment).*?(\d{4}[-–]\d{4})`)
	allDigits       = regexp.MustCompile(`^\d+$`)
)

// extractYear prefers an explicit tax-year mention; when none exists and a
// document date was found, the tax year is the date's calendar year minus
// one, since notices are issued the year after the income year they assess.
func extractYear(text, date string) string {
	if m := explicitYearRe.FindStringSubmatch(text); m != nil {
		if y, ok := validYear(m[1]); ok {
			return y
		}
	}
	if m := yearRangeRe.FindStringSubmatch(text); m != nil {
		r := strings.TrimSpace(m[1])
		if idx := strings.IndexAny(r, "-–"); idx == 4 {
			return r
		}
	}
	if date != "" {
		if m := yearInDate.FindString(date); m != "" {
			return decrementYear(m)
		}
	}
	return ""
}

func validYear(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !allDigits.MatchString(s) || len(s) != 4 {
		return "", false
	}
	n := int(s[0]-'0')*1000 + int(s[1]-'0')*100 + int(s[2]-'0')*10 + int(s[3]-'0')
	if n < 2015 || n > 2030 {
		return "", false
	}
	return s, true
}

func decrementYear(s string) string {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	n--
	return itoa4(n)
}

func itoa4(n int) string {
	b := [4]byte{}
	for i := 3; i >= 0; i-- {
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[:])
}

// collapseSpace flattens newlines and runs of whitespace to single spaces.
func collapseSpace(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}

// alphaWords reports whether s splits into between min and max words made
// entirely of letters.
func alphaWords(s string, min, max int) bool {
	words := strings.Fields(s)
	if len(words) < min || len(words) > max {
		return false
	}
	for _, w := range words {
		for _, c := range w {
			if !isLetter(c) {
				return false
			}
		}
	}
	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// alphaSpaceRatio returns the proportion of characters that are letters or
// spaces. OCR garbage drags this down.
func alphaSpaceRatio(s string) float64 {
	if s == "" {
		return 0
	}
	n := 0
	for _, c := range s {
		if isLetter(c) || c == ' ' {
			n++
		}
	}
	return float64(n) / float64(len([]rune(s)))
}
