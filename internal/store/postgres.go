package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/kra-data/notice-cli/internal/dedupe"
	"github.com/kra-data/notice-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. Tests substitute a
// pgxmock pool through it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool, for deployments where
// several operators feed one shared master database.
type PostgresStore struct {
	pool     Pool
	strategy dedupe.Strategy
	source   string
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, strategy dedupe.Strategy, source string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, strategy: strategy, source: source}, nil
}

const postgresMigration = `
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
	date_extracted    TIMESTAMPTZ,
	merged_from_count INTEGER NOT NULL DEFAULT 0,
	merge_sources     TEXT NOT NULL DEFAULT '',
	best_score        DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_records_pin ON records(pin);
CREATE INDEX IF NOT EXISTS idx_records_station ON records(station);

CREATE TABLE IF NOT EXISTS record_seq (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	last_record_id INTEGER NOT NULL
);
INSERT INTO record_seq (id, last_record_id) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresSelect = `SELECT record_id, date, pin, taxpayer_name, year, officer_name, station,
	notice, pre_amount, final_amount, source_app, date_extracted,
	merged_from_count, merge_sources, best_score
FROM records ORDER BY record_id`

const postgresInsert = `INSERT INTO records (
	id, record_id, date, pin, taxpayer_name, year, officer_name, station,
	notice, pre_amount, final_amount, source_app, date_extracted,
	merged_from_count, merge_sources, best_score
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

func (s *PostgresStore) Append(ctx context.Context, incoming []model.Record) (AppendResult, error) {
	existing, err := s.All(ctx)
	if err != nil {
		return AppendResult{}, err
	}

	var floor int
	err = s.pool.QueryRow(ctx, `SELECT last_record_id FROM record_seq WHERE id = 1`).Scan(&floor)
	if err != nil {
		return AppendResult{}, eris.Wrap(err, "postgres: read record sequence")
	}

	out, result := mergeAppend(existing, incoming, s.strategy, s.source, floor)
	if err := s.Rewrite(ctx, out); err != nil {
		return AppendResult{}, err
	}
	return result, nil
}

func (s *PostgresStore) All(ctx context.Context) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx, postgresSelect)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: select records")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var rec model.Record
		var extracted sql.NullTime
		err := rows.Scan(
			&rec.RecordID,
			&rec.Date, &rec.PIN, &rec.TaxpayerName, &rec.Year,
			&rec.OfficerName, &rec.Station, &rec.Notice,
			&rec.PreAmount, &rec.FinalAmount,
			&rec.SourceLabel, &extracted,
			&rec.MergedFromCount, &rec.MergeSources, &rec.BestScore,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		if extracted.Valid {
			rec.ExtractedAt = extracted.Time.UTC()
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate records")
}

func (s *PostgresStore) Rewrite(ctx context.Context, records []model.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin rewrite")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM records`); err != nil {
		return eris.Wrap(err, "postgres: clear records")
	}
	for _, rec := range records {
		var extracted any
		if !rec.ExtractedAt.IsZero() {
			extracted = rec.ExtractedAt.UTC()
		}
		_, err := tx.Exec(ctx, postgresInsert,
			uuid.New().String(),
			rec.RecordID,
			rec.Date, rec.PIN, rec.TaxpayerName, rec.Year,
			rec.OfficerName, rec.Station, rec.Notice,
			rec.PreAmount, rec.FinalAmount,
			rec.SourceLabel, extracted,
			rec.MergedFromCount, rec.MergeSources, rec.BestScore,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert record %d", rec.RecordID)
		}
	}

	maxID := 0
	for _, rec := range records {
		if rec.RecordID > maxID {
			maxID = rec.RecordID
		}
	}
	_, err = tx.Exec(ctx,
		`UPDATE record_seq SET last_record_id = GREATEST(last_record_id, $1) WHERE id = 1`, maxID)
	if err != nil {
		return eris.Wrap(err, "postgres: advance record sequence")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit rewrite")
}

func (s *PostgresStore) Stats(ctx context.Context) (DatabaseStats, error) {
	records, err := s.All(ctx)
	if err != nil {
		return DatabaseStats{}, err
	}
	return computeStats(records), nil
}
