package dedupe

import (
	"math"
	"strings"

	"github.com/kra-data/notice-cli/internal/model"
)

// fieldWeights sum to 100. A fully populated, well-formatted record scores
// 100 after capping; an all-empty record scores 0 and is still mergeable,
// it just never wins as the base.
var fieldWeights = map[string]float64{
	model.FieldDate:         16,
	model.FieldPIN:          20,
	model.FieldTaxpayerName: 18,
	model.FieldPreAmount:    12,
	model.FieldFinalAmount:  8,
	model.FieldYear:         12,
	model.FieldOfficerName:  8,
	model.FieldStation:      6,
}

// scoreOrder fixes iteration order so scoring is deterministic.
var scoreOrder = []string{
	model.FieldDate,
	model.FieldPIN,
	model.FieldTaxpayerName,
	model.FieldPreAmount,
	model.FieldFinalAmount,
	model.FieldYear,
	model.FieldOfficerName,
	model.FieldStation,
}

// Score rates a record's completeness and format quality in [0, 100].
// Each non-empty field earns its weight scaled by a confidence multiplier:
// a well-formed PIN earns 1.2x, a plausible recent year 1.1x, a text field
// longer than 3 characters 1.0x, and anything questionable 0.8x. The score
// only ranks candidates inside a duplicate group; it is never persisted as
// a quality judgment.
func Score(rec model.Record) float64 {
	score := 0.0
	for _, field := range scoreOrder {
		value := strings.TrimSpace(rec.Field(field))
		if value == "" {
			continue
		}
		weight := fieldWeights[field]
		switch {
		case field == model.FieldPIN && len(value) == 11:
			score += weight * 1.2
		case field == model.FieldYear && isRecentYear(value):
			score += weight * 1.1
		case isTextField(field) && len(value) > 3:
			score += weight
		default:
			score += weight * 0.8
		}
	}
	return math.Min(score, 100)
}

func isTextField(field string) bool {
	switch field {
	case model.FieldDate, model.FieldTaxpayerName, model.FieldOfficerName, model.FieldStation:
		return true
	}
	return false
}

func isRecentYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	return n >= 2020 && n <= 2030
}
