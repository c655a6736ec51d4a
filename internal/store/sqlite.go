package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/kra-data/notice-cli/internal/dedupe"
	"github.com/kra-data/notice-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db       *sql.DB
	strategy dedupe.Strategy
	source   string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, strategy dedupe.Strategy, source string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, strategy: strategy, source: source}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id                TEXT PRIMARY KEY,
	record_id         INTEGER NOT NULL UNIQUE,
	date              TEXT NOT NULL DEFAULT '',
	pin               TEXT NOT NULL DEFAULT '',
	taxpayer_name     TEXT NOT NULL DEFAULT '',
	year              TEXT NOT NULL DEFAULT '',
	officer_name      TEXT NOT NULL DEFAULT '',
	station           TEXT NOT NULL DEFAULT '',
	notice            TEXT NOT NULL DEFAULT '',
	pre_amount        TEXT NOT NULL DEFAULT '',
	final_amount      TEXT NOT NULL DEFAULT '',
	source_app        TEXT NOT NULL DEFAULT '',
	date_extracted    DATETIME,
	merged_from_count INTEGER NOT NULL DEFAULT 0,
	merge_sources     TEXT NOT NULL DEFAULT '',
	best_score        REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_records_pin ON records(pin);
CREATE INDEX IF NOT EXISTS idx_records_station ON records(station);

CREATE TABLE IF NOT EXISTS record_seq (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	last_record_id INTEGER NOT NULL
);
INSERT OR IGNORE INTO record_seq (id, last_record_id) VALUES (1, 0);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteSelect = `SELECT record_id, date, pin, taxpayer_name, year, officer_name, station,
	notice, pre_amount, final_amount, source_app, date_extracted,
	merged_from_count, merge_sources, best_score
FROM records ORDER BY record_id`

const sqliteInsert = `INSERT INTO records (
	id, record_id, date, pin, taxpayer_name, year, officer_name, station,
	notice, pre_amount, final_amount, source_app, date_extracted,
	merged_from_count, merge_sources, best_score
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) Append(ctx context.Context, incoming []model.Record) (AppendResult, error) {
	existing, err := s.All(ctx)
	if err != nil {
		return AppendResult{}, err
	}

	var floor int
	err = s.db.QueryRowContext(ctx, `SELECT last_record_id FROM record_seq WHERE id = 1`).Scan(&floor)
	if err != nil {
		return AppendResult{}, eris.Wrap(err, "sqlite: read record sequence")
	}

	out, result := mergeAppend(existing, incoming, s.strategy, s.source, floor)
	if err := s.Rewrite(ctx, out); err != nil {
		return AppendResult{}, err
	}
	return result, nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelect)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select records")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate records")
}

func (s *SQLiteStore) Rewrite(ctx context.Context, records []model.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin rewrite")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return eris.Wrap(err, "sqlite: clear records")
	}
	maxID := 0
	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, sqliteInsert, insertArgs(rec)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert record %d", rec.RecordID)
		}
		if rec.RecordID > maxID {
			maxID = rec.RecordID
		}
	}

	// The sequence only ever moves forward, so ids stay unique across
	// deletes and rewrites.
	_, err = tx.ExecContext(ctx,
		`UPDATE record_seq SET last_record_id = MAX(last_record_id, ?) WHERE id = 1`, maxID)
	if err != nil {
		return eris.Wrap(err, "sqlite: advance record sequence")
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit rewrite")
}

func (s *SQLiteStore) Stats(ctx context.Context) (DatabaseStats, error) {
	records, err := s.All(ctx)
	if err != nil {
		return DatabaseStats{}, err
	}
	return computeStats(records), nil
}

// helpers

func insertArgs(rec model.Record) []any {
	var extracted any
	if !rec.ExtractedAt.IsZero() {
		extracted = rec.ExtractedAt.UTC()
	}
	return []any{
		uuid.New().String(),
		rec.RecordID,
		rec.Date, rec.PIN, rec.TaxpayerName, rec.Year,
		rec.OfficerName, rec.Station, rec.Notice,
		rec.PreAmount, rec.FinalAmount,
		rec.SourceLabel, extracted,
		rec.MergedFromCount, rec.MergeSources, rec.BestScore,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (model.Record, error) {
	var rec model.Record
	var extracted sql.NullTime

	err := row.Scan(
		&rec.RecordID,
		&rec.Date, &rec.PIN, &rec.TaxpayerName, &rec.Year,
		&rec.OfficerName, &rec.Station, &rec.Notice,
		&rec.PreAmount, &rec.FinalAmount,
		&rec.SourceLabel, &extracted,
		&rec.MergedFromCount, &rec.MergeSources, &rec.BestScore,
	)
	if err != nil {
		return rec, eris.Wrap(err, "scan record")
	}
	if extracted.Valid {
		rec.ExtractedAt = extracted.Time.UTC()
	}
	return rec, nil
}
