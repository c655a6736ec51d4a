package dedupe

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kra-data/notice-cli/internal/model"
)

// nameLikeFields may be truncated by OCR, so a longer value from a
// lower-scored sibling is preferred over the base's shorter one.
var nameLikeFields = map[string]bool{
	model.FieldTaxpayerName: true,
	model.FieldOfficerName:  true,
}

// fingerprint is a canonical rendering of a record's data fields, used only
// to break score ties deterministically so that merging a group yields the
// same output for every permutation of its members.
func fingerprint(rec model.Record) string {
	var sb strings.Builder
	for _, field := range model.FieldNames {
		sb.WriteString(rec.Field(field))
		sb.WriteByte('|')
	}
	sb.WriteString(rec.SourceLabel)
	return sb.String()
}

// MergeGroup resolves records sharing an identity key into one canonical
// record. The highest-scored record becomes the base; remaining records
// fill its empty fields and may replace name-like fields with strictly
// longer values. A single-record group passes through untouched, with no
// merge metadata attached.
func MergeGroup(records []model.Record) model.Record {
	if len(records) == 0 {
		return model.Record{}
	}
	if len(records) == 1 {
		return records[0]
	}

	type scored struct {
		score float64
		rec   model.Record
	}
	ranked := make([]scored, len(records))
	for i, rec := range records {
		ranked[i] = scored{score: Score(rec), rec: rec}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return fingerprint(ranked[i].rec) < fingerprint(ranked[j].rec)
	})

	merged := ranked[0].rec
	for _, candidate := range ranked[1:] {
		for _, field := range model.FieldNames {
			base := merged.Field(field)
			value := candidate.rec.Field(field)
			if value == "" {
				continue
			}
			if base == "" {
				merged.SetField(field, value)
				continue
			}
			if nameLikeFields[field] && len(value) > len(base) {
				merged.SetField(field, value)
			}
		}
	}

	sources := make([]string, len(ranked))
	for i, s := range ranked {
		label := s.rec.SourceLabel
		if label == "" {
			label = "unknown"
		}
		sources[i] = label
	}

	merged.MergedFromCount = len(records)
	merged.MergeSources = strings.Join(sources, ", ")
	merged.BestScore = ranked[0].score

	zap.L().Debug("dedupe: merged duplicate group",
		zap.Int("members", len(records)),
		zap.Float64("best_score", merged.BestScore),
	)
	return merged
}
