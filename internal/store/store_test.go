package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kra-data/notice-cli/internal/dedupe"
	"github.com/kra-data/notice-cli/internal/model"
)

func testRecord(pin, name string) model.Record {
	return model.Record{
		PIN:          pin,
		Date:         "4TH SEPTEMBER 2025",
		TaxpayerName: name,
		Year:         "2024",
	}
}

func TestMergeAppend_StampsMetadata(t *testing.T) {
	out, result := mergeAppend(nil, []model.Record{testRecord("A123456789B", "TEST COMPANY LIMITED")}, dedupe.StrategyMerge, "unit", 0)

	require.Len(t, out, 1)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.New)
	assert.Zero(t, result.DuplicatesRemoved)
	assert.Equal(t, "unit", out[0].SourceLabel)
	assert.False(t, out[0].ExtractedAt.IsZero())
	assert.Equal(t, 1, out[0].RecordID)
}

func TestMergeAppend_PreservesExistingStamps(t *testing.T) {
	stamped := testRecord("A123456789B", "TEST COMPANY LIMITED")
	stamped.SourceLabel = "legacy-app"
	stamped.ExtractedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	out, _ := mergeAppend(nil, []model.Record{stamped}, dedupe.StrategyMerge, "unit", 0)
	require.Len(t, out, 1)
	assert.Equal(t, "legacy-app", out[0].SourceLabel)
	assert.Equal(t, stamped.ExtractedAt, out[0].ExtractedAt)
}

func TestMergeAppend_DeduplicatesAgainstExisting(t *testing.T) {
	existing := []model.Record{testRecord("A123456789B", "TEST COMPANY LIMITED")}
	existing[0].RecordID = 1

	incoming := testRecord("A123456789B", "TEST COMPANY LIMITED")
	incoming.OfficerName = "John Kamau"

	out, result := mergeAppend(existing, []model.Record{incoming}, dedupe.StrategyMerge, "unit", 0)

	require.Len(t, out, 1)
	assert.Equal(t, 1, result.Total)
	assert.Zero(t, result.New)
	assert.Equal(t, 1, result.DuplicatesRemoved)
	assert.Equal(t, "John Kamau", out[0].OfficerName)
	assert.Equal(t, 1, out[0].RecordID, "merged record keeps its existing id")
}

func TestMergeAppend_MonotonicRecordIDs(t *testing.T) {
	existing := []model.Record{testRecord("A123456789B", "TEST COMPANY LIMITED")}
	existing[0].RecordID = 7

	incoming := []model.Record{
		testRecord("C987654321D", "KENCHIC ENTERPRISES"),
		testRecord("E555555555F", "MOMBASA TRADERS LTD"),
	}

	out, result := mergeAppend(existing, incoming, dedupe.StrategyMerge, "unit", 0)
	require.Len(t, out, 3)
	assert.Equal(t, 2, result.New)

	seen := map[int]bool{}
	for _, rec := range out {
		assert.Greater(t, rec.RecordID, 0)
		assert.False(t, seen[rec.RecordID], "record ids must be unique")
		seen[rec.RecordID] = true
	}
	assert.True(t, seen[7])
	assert.True(t, seen[8])
	assert.True(t, seen[9])
}

func TestMergeAppend_FloorPreventsIDReuse(t *testing.T) {
	// The dataset once held ids up to 9 but was pruned down to one record.
	existing := []model.Record{testRecord("A123456789B", "TEST COMPANY LIMITED")}
	existing[0].RecordID = 3

	incoming := []model.Record{testRecord("C987654321D", "KENCHIC ENTERPRISES")}

	out, _ := mergeAppend(existing, incoming, dedupe.StrategyMerge, "unit", 9)
	require.Len(t, out, 2)

	for _, rec := range out {
		if rec.RecordID != 3 {
			assert.Equal(t, 10, rec.RecordID, "new ids start above the historic maximum")
		}
	}
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	records := []model.Record{
		{TaxpayerName: "TEST COMPANY LIMITED", Station: "NAIROBI", Year: "2023", ExtractedAt: now.Add(-time.Hour)},
		{TaxpayerName: "test company limited", Station: "NAIROBI", Year: "2024", ExtractedAt: now},
		{TaxpayerName: "KENCHIC ENTERPRISES", Station: "MOMBASA", Year: "2024"},
	}

	stats := computeStats(records)
	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 2, stats.UniqueTaxpayers, "taxpayer names compare case-insensitively")
	assert.Equal(t, 2, stats.UniqueStations)
	assert.Equal(t, now, stats.LastUpdated)
	assert.Equal(t, "2023 - 2024", stats.DateRange)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := computeStats(nil)
	assert.Zero(t, stats.TotalRecords)
	assert.Empty(t, stats.DateRange)
	assert.True(t, stats.LastUpdated.IsZero())
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Options{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestNew_DefaultsToWorkbook(t *testing.T) {
	st, err := New(context.Background(), Options{Path: t.TempDir() + "/db.xlsx"})
	require.NoError(t, err)
	defer st.Close()

	_, ok := st.(*WorkbookStore)
	assert.True(t, ok)
}
