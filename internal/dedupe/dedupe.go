package dedupe

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kra-data/notice-cli/internal/model"
)

// Strategy selects how a dataset is reduced.
type Strategy string

const (
	// StrategyMerge groups records by identity key and merges each group,
	// preserving data from every member. The default.
	StrategyMerge Strategy = "merge"
	// StrategyDrop sorts newest-first by extraction time and drops exact
	// duplicates, keeping only the newest. Faster, but discards whatever
	// the dropped records knew.
	StrategyDrop Strategy = "drop"
)

// ParseStrategy maps a config/flag value to a Strategy, defaulting to merge.
func ParseStrategy(s string) Strategy {
	if Strategy(strings.ToLower(strings.TrimSpace(s))) == StrategyDrop {
		return StrategyDrop
	}
	return StrategyMerge
}

// Deduplicate reduces a dataset with the chosen strategy and reports how
// many records were removed. Running it twice changes nothing further.
func Deduplicate(records []model.Record, strategy Strategy) ([]model.Record, int) {
	if len(records) == 0 {
		return records, 0
	}

	var out []model.Record
	switch strategy {
	case StrategyDrop:
		out = sortAndDrop(records)
	default:
		out = groupAndMerge(records)
	}

	removed := len(records) - len(out)
	if removed > 0 {
		zap.L().Info("dedupe: duplicates removed",
			zap.String("strategy", string(strategy)),
			zap.Int("before", len(records)),
			zap.Int("after", len(out)),
		)
	}
	return out, removed
}

// groupAndMerge emits one merged record per duplicate group, in order of
// each group's first appearance, and singletons unchanged.
func groupAndMerge(records []model.Record) []model.Record {
	groups := make(map[string][]model.Record, len(records))
	for _, rec := range records {
		key := IdentityKey(rec)
		groups[key] = append(groups[key], rec)
	}

	out := make([]model.Record, 0, len(groups))
	emitted := make(map[string]bool, len(groups))
	for _, rec := range records {
		key := IdentityKey(rec)
		if emitted[key] {
			continue
		}
		emitted[key] = true
		out = append(out, MergeGroup(groups[key]))
	}
	return out
}

// dropSubset are the exact-match fields the sort-and-drop strategy keys on.
var dropSubset = []string{
	model.FieldPIN,
	model.FieldDate,
	model.FieldPreAmount,
	model.FieldTaxpayerName,
}

func dropKey(rec model.Record) string {
	var sb strings.Builder
	for _, field := range dropSubset {
		sb.WriteString(rec.Field(field))
		sb.WriteByte('|')
	}
	return sb.String()
}

// sortAndDrop keeps the newest record per exact-field-subset key.
func sortAndDrop(records []model.Record) []model.Record {
	sorted := make([]model.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExtractedAt.After(sorted[j].ExtractedAt)
	})

	seen := make(map[string]bool, len(sorted))
	out := make([]model.Record, 0, len(sorted))
	for _, rec := range sorted {
		key := dropKey(rec)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}
