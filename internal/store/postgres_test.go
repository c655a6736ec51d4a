package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kra-data/notice-cli/internal/dedupe"
	"github.com/kra-data/notice-cli/internal/model"
)

var postgresColumns = []string{
	"record_id", "date", "pin", "taxpayer_name", "year", "officer_name",
	"station", "notice", "pre_amount", "final_amount", "source_app",
	"date_extracted", "merged_from_count", "merge_sources", "best_score",
}

// newMockPostgres creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock, strategy: dedupe.StrategyMerge, source: "test"}
	return s, mock
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS records`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_All(t *testing.T) {
	s, mock := newMockPostgres(t)
	extracted := time.Date(2025, 9, 1, 10, 30, 0, 0, time.UTC)

	rows := pgxmock.NewRows(postgresColumns).
		AddRow(1, "4TH SEPTEMBER 2025", "A123456789B", "TEST COMPANY LIMITED",
			"2024", "John Kamau", "NAIROBI", "", "1,500,000", "1,200,000",
			"app-a", extracted, 2, "app-a, app-b", 87.5)

	mock.ExpectQuery(`SELECT record_id, date, pin, taxpayer_name`).
		WillReturnRows(rows)

	records, err := s.All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].RecordID)
	assert.Equal(t, "A123456789B", records[0].PIN)
	assert.Equal(t, "John Kamau", records[0].OfficerName)
	assert.Equal(t, extracted, records[0].ExtractedAt)
	assert.Equal(t, 2, records[0].MergedFromCount)
	assert.Equal(t, 87.5, records[0].BestScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Append_AssignsIDsAboveFloor(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT record_id, date, pin, taxpayer_name`).
		WillReturnRows(pgxmock.NewRows(postgresColumns))
	mock.ExpectQuery(`SELECT last_record_id FROM record_seq WHERE id = 1`).
		WillReturnRows(pgxmock.NewRows([]string{"last_record_id"}).AddRow(5))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM records`).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO records`).
		WithArgs(pgxmock.AnyArg(), 6, "4TH SEPTEMBER 2025", "A123456789B",
			"TEST COMPANY LIMITED", "2024", "", "", "", "", "",
			"test", pgxmock.AnyArg(), 0, "", 0.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE record_seq SET last_record_id = GREATEST`).
		WithArgs(6).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	result, err := s.Append(context.Background(), []model.Record{
		testRecord("A123456789B", "TEST COMPANY LIMITED"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.New)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Append_SequenceReadError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT record_id, date, pin, taxpayer_name`).
		WillReturnRows(pgxmock.NewRows(postgresColumns))
	mock.ExpectQuery(`SELECT last_record_id FROM record_seq WHERE id = 1`).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Append(context.Background(), []model.Record{
		testRecord("A123456789B", "TEST COMPANY LIMITED"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read record sequence")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Rewrite_AdvancesSequence(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM records`).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO records`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE record_seq SET last_record_id = GREATEST`).
		WithArgs(9).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	rec := testRecord("A123456789B", "TEST COMPANY LIMITED")
	rec.RecordID = 9
	require.NoError(t, s.Rewrite(context.Background(), []model.Record{rec}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
