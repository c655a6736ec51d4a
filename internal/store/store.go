package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kra-data/notice-cli/internal/dedupe"
	"github.com/kra-data/notice-cli/internal/model"
)

// AppendResult reports what an Append call did to the master database.
type AppendResult struct {
	// Total is the record count after the append.
	Total int `json:"total"`
	// New is how many records the append actually added.
	New int `json:"new"`
	// DuplicatesRemoved counts records folded away during deduplication.
	DuplicatesRemoved int `json:"duplicates_removed"`
}

// DatabaseStats summarizes the master database contents.
type DatabaseStats struct {
	TotalRecords    int       `json:"total_records"`
	UniqueTaxpayers int       `json:"unique_taxpayers"`
	UniqueStations  int       `json:"unique_stations"`
	LastUpdated     time.Time `json:"last_updated"`
	DateRange       string    `json:"date_range"`
}

// Store defines the persistence interface for the master notice database.
type Store interface {
	// Append deduplicates incoming records against the existing dataset
	// and persists the result.
	Append(ctx context.Context, incoming []model.Record) (AppendResult, error)
	// All returns every record in insertion order.
	All(ctx context.Context) ([]model.Record, error)
	// Rewrite replaces the whole dataset.
	Rewrite(ctx context.Context, records []model.Record) error
	// Stats summarizes the current dataset.
	Stats(ctx context.Context) (DatabaseStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Driver is workbook, sqlite or postgres.
	Driver string
	// Path is the workbook or sqlite file location.
	Path string
	// DatabaseURL is the postgres connection string.
	DatabaseURL string
	// SourceLabel stamps records that arrive without one.
	SourceLabel string
	// Strategy selects the dedupe strategy used on Append.
	Strategy dedupe.Strategy
}

// New opens the configured backend.
func New(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "workbook":
		return NewWorkbook(opts.Path, opts.Strategy, opts.SourceLabel), nil
	case "sqlite":
		return NewSQLite(opts.Path, opts.Strategy, opts.SourceLabel)
	case "postgres":
		return NewPostgres(ctx, opts.DatabaseURL, opts.Strategy, opts.SourceLabel)
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
}

// stampIncoming fills in extraction time and source label on records that
// arrived without them. Records re-appended from an export keep theirs.
func stampIncoming(incoming []model.Record, source string) []model.Record {
	if source == "" {
		source = "notice-cli"
	}
	now := time.Now().UTC()
	stamped := make([]model.Record, len(incoming))
	for i, rec := range incoming {
		if rec.ExtractedAt.IsZero() {
			rec.ExtractedAt = now
		}
		if rec.SourceLabel == "" {
			rec.SourceLabel = source
		}
		stamped[i] = rec
	}
	return stamped
}

// mergeAppend is the append algorithm shared by every backend: stamp the
// incoming records, deduplicate them against the existing dataset and hand
// back the full replacement dataset with record ids assigned. floor is the
// highest id ever allocated; backends with a sequence pass it so ids freed
// by deletion are never handed out again.
func mergeAppend(existing, incoming []model.Record, strategy dedupe.Strategy, source string, floor int) ([]model.Record, AppendResult) {
	combined := make([]model.Record, 0, len(existing)+len(incoming))
	combined = append(combined, existing...)
	combined = append(combined, stampIncoming(incoming, source)...)

	out, removed := dedupe.Deduplicate(combined, strategy)

	maxID := floor
	for _, rec := range out {
		if rec.RecordID > maxID {
			maxID = rec.RecordID
		}
	}
	for i := range out {
		if out[i].RecordID == 0 {
			maxID++
			out[i].RecordID = maxID
		}
	}

	added := len(out) - len(existing)
	if added < 0 {
		added = 0
	}
	return out, AppendResult{
		Total:             len(out),
		New:               added,
		DuplicatesRemoved: removed,
	}
}

// computeStats derives summary statistics from a dataset.
func computeStats(records []model.Record) DatabaseStats {
	stats := DatabaseStats{TotalRecords: len(records)}

	taxpayers := make(map[string]bool)
	stations := make(map[string]bool)
	var years []string
	for _, rec := range records {
		if name := strings.TrimSpace(rec.TaxpayerName); name != "" {
			taxpayers[strings.ToUpper(name)] = true
		}
		if st := strings.TrimSpace(rec.Station); st != "" {
			stations[strings.ToUpper(st)] = true
		}
		if rec.Year != "" {
			years = append(years, rec.Year)
		}
		if rec.ExtractedAt.After(stats.LastUpdated) {
			stats.LastUpdated = rec.ExtractedAt
		}
	}
	stats.UniqueTaxpayers = len(taxpayers)
	stats.UniqueStations = len(stations)

	if len(years) > 0 {
		sort.Strings(years)
		lo, hi := years[0], years[len(years)-1]
		if lo == hi {
			stats.DateRange = lo
		} else {
			stats.DateRange = lo + " - " + hi
		}
	}
	return stats
}
