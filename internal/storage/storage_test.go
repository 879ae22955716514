package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/navid-fn/mandi/internal/models"
	dbmodels "github.com/navid-fn/mandi/internal/storage/models"
)

func newTestStore(t *testing.T) (Store, *gorm.DB) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := Open(DriverSQLite, ":memory:", logger)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db, DriverSQLite, logger))
	return NewGormStore(db, logger), db
}

// countWrites counts inserts and updates that reach the database.
func countWrites(t *testing.T, db *gorm.DB) *int {
	t.Helper()
	writes := 0
	count := func(d *gorm.DB) {
		if d.Error == nil && d.RowsAffected > 0 {
			writes++
		}
	}
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:count_create", count))
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:count_update", count))
	return &writes
}

func record(market, commodity, date string, perKg float64) models.PriceRecord {
	return models.PriceRecord{
		State:           "Tamil Nadu",
		District:        "Salem",
		Market:          market,
		Commodity:       commodity,
		Date:            date,
		ModalPrice:      perKg * 100,
		ModalPricePerKg: perKg,
		PricePerKg:      perKg,
	}
}

func countRows(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&dbmodels.PriceRow{}).Count(&n).Error)
	return n
}

func TestUpsertIdenticalRecordTwiceWritesOnce(t *testing.T) {
	store, db := newTestStore(t)
	writes := countWrites(t, db)
	ctx := context.Background()
	rec := record("Attur", "Tomato", "16/10/2026", 20.5)

	first, err := store.Upsert(ctx, rec)
	require.NoError(t, err)
	second, err := store.Upsert(ctx, rec)
	require.NoError(t, err)

	assert.Equal(t, Inserted, first)
	assert.Equal(t, Unchanged, second)
	assert.Equal(t, int64(1), countRows(t, db))
	assert.Equal(t, 1, *writes)
}

func TestUpsertChangedPriceUpdatesInPlace(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, record("Attur", "Tomato", "16/10/2026", 20.5))
	require.NoError(t, err)
	res, err := store.Upsert(ctx, record("Attur", "Tomato", "16/10/2026", 22))
	require.NoError(t, err)

	assert.Equal(t, Updated, res)
	rows, err := store.List(ctx, RowFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 22.0, rows[0].Price)
	assert.Equal(t, int64(1), countRows(t, db))
}

func TestUpsertBatchDuplicateKeysWithinBatch(t *testing.T) {
	store, db := newTestStore(t)

	report, err := store.UpsertBatch(context.Background(), models.RecordSet{
		record("Attur", "Tomato", "16/10/2026", 20),
		record("Attur", "Onion", "16/10/2026", 12),
		record("Attur", "Tomato", "16/10/2026", 21),
	})
	require.NoError(t, err)

	assert.Equal(t, UpsertReport{Inserted: 2, Updated: 1}, report)
	assert.Equal(t, 3, report.Writes())
	assert.Equal(t, int64(2), countRows(t, db))

	rows, err := store.List(context.Background(), RowFilter{Commodity: "Tomato"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 21.0, rows[0].Price, "last write wins within a batch")
}

func TestUpsertBatchRollsBackOnFailure(t *testing.T) {
	store, db := newTestStore(t)

	creates := 0
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_second", func(d *gorm.DB) {
		creates++
		if creates == 2 {
			_ = d.AddError(errors.New("disk full"))
		}
	}))

	report, err := store.UpsertBatch(context.Background(), models.RecordSet{
		record("Attur", "Tomato", "16/10/2026", 20),
		record("Attur", "Onion", "16/10/2026", 12),
		record("Attur", "Brinjal", "16/10/2026", 9),
	})

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, UpsertReport{}, report)
	assert.Equal(t, int64(0), countRows(t, db), "nothing from a failed batch is persisted")
}

func TestUpsertBatchEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	report, err := store.UpsertBatch(context.Background(), nil)

	assert.NoError(t, err)
	assert.Equal(t, UpsertReport{}, report)
}

func TestRowCRUD(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	row := &dbmodels.PriceRow{State: "Tamil Nadu", District: "Salem", Market: "Attur", Commodity: "Tomato", Price: 20, Date: "16/10/2026"}
	require.NoError(t, store.Create(ctx, row))
	require.NotZero(t, row.ID)

	got, err := store.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tomato", got.Commodity)

	updated, err := store.Update(ctx, row.ID, RowUpdate{Market: "Omalur", Commodity: "Onion", Price: 14.5})
	require.NoError(t, err)
	assert.Equal(t, "Omalur", updated.Market)
	assert.Equal(t, "Onion", updated.Commodity)
	assert.Equal(t, 14.5, updated.Price)
	assert.Equal(t, "16/10/2026", updated.Date)

	require.NoError(t, store.Delete(ctx, row.ID))

	_, err = store.Get(ctx, row.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, row.ID), ErrNotFound)
	_, err = store.Update(ctx, row.ID, RowUpdate{Market: "x", Commodity: "y"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRowWritesRejectDuplicateKey(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	first := &dbmodels.PriceRow{State: "Tamil Nadu", District: "Salem", Market: "Attur", Commodity: "Tomato", Price: 20, Date: "16/10/2026"}
	require.NoError(t, store.Create(ctx, first))

	dup := &dbmodels.PriceRow{State: "Tamil Nadu", District: "Salem", Market: "Attur", Commodity: "Tomato", Price: 25, Date: "16/10/2026"}
	assert.ErrorIs(t, store.Create(ctx, dup), ErrDuplicate)
	assert.Equal(t, int64(1), countRows(t, db))

	other := &dbmodels.PriceRow{State: "Tamil Nadu", District: "Salem", Market: "Omalur", Commodity: "Tomato", Price: 18, Date: "16/10/2026"}
	require.NoError(t, store.Create(ctx, other))

	_, err := store.Update(ctx, other.ID, RowUpdate{Market: "Attur", Commodity: "Tomato", Price: 18})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := store.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Omalur", got.Market)
}

func TestListFilters(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertBatch(ctx, models.RecordSet{
		record("Attur", "Tomato", "16/10/2026", 20),
		record("Omalur", "Tomato", "16/10/2026", 21),
		record("Omalur", "Onion", "16/10/2026", 12),
	})
	require.NoError(t, err)

	testCases := []struct {
		name   string
		filter RowFilter
		want   int
	}{
		{name: "no filter", filter: RowFilter{}, want: 3},
		{name: "by market", filter: RowFilter{Market: "Omalur"}, want: 2},
		{name: "by commodity", filter: RowFilter{Commodity: "Tomato"}, want: 2},
		{name: "by state and district", filter: RowFilter{State: "Tamil Nadu", District: "Salem"}, want: 3},
		{name: "other district", filter: RowFilter{District: "Erode"}, want: 0},
		{name: "limit", filter: RowFilter{Limit: 1}, want: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := store.List(ctx, tc.filter)
			require.NoError(t, err)
			assert.Len(t, rows, tc.want)
		})
	}
}

func TestSweepComparesCalendarDates(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, date := range []string{"01/02/2025", "28/01/2025", "30/01/2025", "15/12/2024", "not-a-date"} {
		require.NoError(t, store.Create(ctx, &dbmodels.PriceRow{Market: "Attur", Commodity: "Tomato", Date: date}))
	}

	// "28/01/2025" sorts after "01/02/2025" as a string, but is older.
	cutoff := time.Date(2025, time.January, 30, 15, 4, 0, 0, time.UTC)
	deleted, err := store.Sweep(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	rows, err := store.List(ctx, RowFilter{})
	require.NoError(t, err)
	var dates []string
	for _, r := range rows {
		dates = append(dates, r.Date)
	}
	assert.ElementsMatch(t, []string{"01/02/2025", "30/01/2025", "not-a-date"}, dates)
}

func TestSweepNothingStale(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &dbmodels.PriceRow{Market: "Attur", Commodity: "Tomato", Date: "16/10/2026"}))

	deleted, err := store.Sweep(ctx, time.Date(2026, time.September, 17, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("clickhouse", "", logrus.New())
	assert.Error(t, err)
}

func TestChunkIDs(t *testing.T) {
	chunks := chunkIDs([]uint{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, [][]uint{{1, 2}, {3, 4}, {5}}, chunks)
	assert.Empty(t, chunkIDs(nil, 2))
}
