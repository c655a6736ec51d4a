package store

import (
	"context"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/kra-data/notice-cli/internal/dedupe"
	"github.com/kra-data/notice-cli/internal/model"
)

const (
	dataSheetName    = "KRA_Database"
	summarySheetName = "Database_Summary"
)

// workbookColumns is the persisted column order: record id first, then the
// extraction fields, then provenance and merge metadata.
var workbookColumns = []string{
	"record_id",
	model.FieldDate,
	model.FieldPIN,
	model.FieldTaxpayerName,
	model.FieldYear,
	model.FieldOfficerName,
	model.FieldStation,
	model.FieldNotice,
	model.FieldPreAmount,
	model.FieldFinalAmount,
	"date_extracted",
	"source_app",
	"merged_from_count",
	"merge_sources",
	"best_score",
}

// WorkbookStore implements Store on a single xlsx master file, the format
// the downstream review team works in. Concurrent use is serialized; the
// whole file is rewritten on every mutation.
type WorkbookStore struct {
	mu       sync.Mutex
	path     string
	strategy dedupe.Strategy
	source   string
}

// NewWorkbook creates a workbook store. The file is created lazily on the
// first write, so pointing at a missing file is not an error.
func NewWorkbook(path string, strategy dedupe.Strategy, source string) *WorkbookStore {
	return &WorkbookStore{path: path, strategy: strategy, source: source}
}

func (s *WorkbookStore) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}
	return s.save([]model.Record{}, 0)
}

func (s *WorkbookStore) Close() error { return nil }

func (s *WorkbookStore) Append(ctx context.Context, incoming []model.Record) (AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, floor, err := s.load()
	if err != nil {
		return AppendResult{}, err
	}

	out, result := mergeAppend(existing, incoming, s.strategy, s.source, floor)
	if err := s.save(out, floor); err != nil {
		return AppendResult{}, err
	}

	zap.L().Info("workbook: appended records",
		zap.String("path", s.path),
		zap.Int("total", result.Total),
		zap.Int("new", result.New),
		zap.Int("duplicates_removed", result.DuplicatesRemoved),
	)
	return result, nil
}

func (s *WorkbookStore) All(ctx context.Context) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, _, err := s.load()
	return records, err
}

func (s *WorkbookStore) Rewrite(ctx context.Context, records []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, floor, err := s.load()
	if err != nil {
		return err
	}
	return s.save(records, floor)
}

func (s *WorkbookStore) Stats(ctx context.Context) (DatabaseStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, _, err := s.load()
	if err != nil {
		return DatabaseStats{}, err
	}
	return computeStats(records), nil
}

func (s *WorkbookStore) load() ([]model.Record, int, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, 0, nil
	}
	return readWorkbook(s.path)
}

// save persists records plus the highest record id ever allocated. The
// floor rides in the summary sheet so ids freed by deletes are never
// reused.
func (s *WorkbookStore) save(records []model.Record, floor int) error {
	if err := s.backup(); err != nil {
		return err
	}
	return writeWorkbook(s.path, records, maxRecordID(records, floor))
}

// ReadWorkbook loads every record from a master workbook file. The import
// command uses it to pull datasets produced elsewhere into the store.
func ReadWorkbook(path string) ([]model.Record, error) {
	records, _, err := readWorkbook(path)
	return records, err
}

func readWorkbook(path string) ([]model.Record, int, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "workbook: open %s", path)
	}
	sheet, ok := f.Sheet[dataSheetName]
	if !ok {
		return nil, 0, eris.Errorf("workbook: sheet %q not found in %s", dataSheetName, path)
	}

	var records []model.Record
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := make([]string, len(workbookColumns))
		for j := range cells {
			if j < len(row.Cells) {
				cells[j] = row.Cells[j].String()
			}
		}
		rec, err := recordFromRow(cells)
		if err != nil {
			return nil, 0, eris.Wrapf(err, "workbook: row %d", i+1)
		}
		if rec.IsEmpty() && rec.RecordID == 0 {
			continue
		}
		records = append(records, rec)
	}
	return records, readFloor(f, records), nil
}

// readFloor recovers the highest id ever allocated from the summary
// sheet. Files written before the metric existed fall back to the data
// sheet's maximum.
func readFloor(f *xlsx.File, records []model.Record) int {
	floor := maxRecordID(records, 0)
	summary, ok := f.Sheet[summarySheetName]
	if !ok {
		return floor
	}
	for _, row := range summary.Rows {
		if len(row.Cells) < 2 || row.Cells[0].String() != highestIDMetric {
			continue
		}
		if v, err := strconv.Atoi(row.Cells[1].String()); err == nil && v > floor {
			floor = v
		}
	}
	return floor
}

// WriteWorkbook renders records into a fresh master workbook file, with
// the data sheet and a summary sheet. The export command writes review
// copies with it.
func WriteWorkbook(path string, records []model.Record) error {
	return writeWorkbook(path, records, maxRecordID(records, 0))
}

func writeWorkbook(path string, records []model.Record, floor int) error {
	f := xlsx.NewFile()

	data, err := f.AddSheet(dataSheetName)
	if err != nil {
		return eris.Wrap(err, "workbook: add data sheet")
	}
	header := data.AddRow()
	for _, col := range workbookColumns {
		header.AddCell().SetString(col)
	}
	for _, rec := range records {
		row := data.AddRow()
		for _, value := range rowFromRecord(rec) {
			row.AddCell().SetString(value)
		}
	}

	summary, err := f.AddSheet(summarySheetName)
	if err != nil {
		return eris.Wrap(err, "workbook: add summary sheet")
	}
	writeSummary(summary, computeStats(records), floor)

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "workbook: save %s", path)
	}
	return nil
}

func maxRecordID(records []model.Record, floor int) int {
	for _, rec := range records {
		if rec.RecordID > floor {
			floor = rec.RecordID
		}
	}
	return floor
}

// backup copies the current file aside before a rewrite, so a crash during
// save never loses the previous dataset.
func (s *WorkbookStore) backup() error {
	src, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "workbook: open for backup %s", s.path)
	}
	defer src.Close()

	dst, err := os.Create(s.path + ".backup")
	if err != nil {
		return eris.Wrap(err, "workbook: create backup")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return eris.Wrap(err, "workbook: copy backup")
	}
	return nil
}

// highestIDMetric is the summary row carrying the id floor.
const highestIDMetric = "Highest Record Id"

func writeSummary(sheet *xlsx.Sheet, stats DatabaseStats, floor int) {
	header := sheet.AddRow()
	header.AddCell().SetString("Metric")
	header.AddCell().SetString("Value")

	addMetric := func(name, value string) {
		row := sheet.AddRow()
		row.AddCell().SetString(name)
		row.AddCell().SetString(value)
	}
	addMetric("Total Records", strconv.Itoa(stats.TotalRecords))
	addMetric("Unique Taxpayers", strconv.Itoa(stats.UniqueTaxpayers))
	addMetric("Unique Stations", strconv.Itoa(stats.UniqueStations))
	addMetric(highestIDMetric, strconv.Itoa(floor))
	if !stats.LastUpdated.IsZero() {
		addMetric("Last Updated", stats.LastUpdated.Format(time.RFC3339))
	}
	if stats.DateRange != "" {
		addMetric("Year Range", stats.DateRange)
	}
}

func rowFromRecord(rec model.Record) []string {
	out := make([]string, 0, len(workbookColumns))
	out = append(out, strconv.Itoa(rec.RecordID))
	for _, field := range model.FieldNames {
		out = append(out, rec.Field(field))
	}
	extracted := ""
	if !rec.ExtractedAt.IsZero() {
		extracted = rec.ExtractedAt.UTC().Format(time.RFC3339)
	}
	out = append(out,
		extracted,
		rec.SourceLabel,
		strconv.Itoa(rec.MergedFromCount),
		rec.MergeSources,
		strconv.FormatFloat(rec.BestScore, 'f', -1, 64),
	)
	return out
}

func recordFromRow(cells []string) (model.Record, error) {
	var rec model.Record
	var err error

	if cells[0] != "" {
		rec.RecordID, err = strconv.Atoi(cells[0])
		if err != nil {
			return rec, eris.Wrap(err, "parse record_id")
		}
	}
	for i, field := range model.FieldNames {
		rec.SetField(field, cells[1+i])
	}
	meta := cells[1+len(model.FieldNames):]

	if meta[0] != "" {
		rec.ExtractedAt, err = time.Parse(time.RFC3339, meta[0])
		if err != nil {
			return rec, eris.Wrap(err, "parse date_extracted")
		}
	}
	rec.SourceLabel = meta[1]
	if meta[2] != "" {
		rec.MergedFromCount, err = strconv.Atoi(meta[2])
		if err != nil {
			return rec, eris.Wrap(err, "parse merged_from_count")
		}
	}
	rec.MergeSources = meta[3]
	if meta[4] != "" {
		rec.BestScore, err = strconv.ParseFloat(meta[4], 64)
		if err != nil {
			return rec, eris.Wrap(err, "parse best_score")
		}
	}
	return rec, nil
}
