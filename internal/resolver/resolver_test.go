package resolver

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/mandi/internal/models"
	"github.com/navid-fn/mandi/internal/storage"
)

type stubSource struct {
	byDate map[string]models.RecordSet
	errs   map[string]error
	calls  []string
}

func (s *stubSource) FetchForDate(_ context.Context, date string, _ models.QueryFilter) (models.RecordSet, error) {
	s.calls = append(s.calls, date)
	if err := s.errs[date]; err != nil {
		return models.RecordSet{}, err
	}
	return s.byDate[date], nil
}

type stubPersister struct {
	batches []models.RecordSet
	err     error
}

func (p *stubPersister) UpsertBatch(_ context.Context, recs models.RecordSet) (storage.UpsertReport, error) {
	p.batches = append(p.batches, recs)
	if p.err != nil {
		return storage.UpsertReport{}, p.err
	}
	return storage.UpsertReport{Inserted: len(recs)}, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// 17 October 2026, late evening.
func fixedNow() time.Time {
	return time.Date(2026, time.October, 17, 22, 30, 0, 0, time.UTC)
}

func batch(date string, commodities ...string) models.RecordSet {
	set := make(models.RecordSet, 0, len(commodities))
	for i, c := range commodities {
		set = append(set, models.PriceRecord{ID: i, Commodity: c, Market: "Attur", Date: date, PricePerKg: 20})
	}
	return set
}

func newTestResolver(src Source, opts ...Option) *Resolver {
	return New(src, quietLogger(), append([]Option{WithClock(fixedNow)}, opts...)...)
}

func TestResolveWalksBackToFirstNonEmptyDay(t *testing.T) {
	src := &stubSource{byDate: map[string]models.RecordSet{
		"14/10/2026": batch("14/10/2026", "Tomato", "Onion"),
		"13/10/2026": batch("13/10/2026", "Brinjal"),
	}}

	res := newTestResolver(src).Resolve(context.Background(), models.QueryFilter{})

	assert.Equal(t, []string{"17/10/2026", "16/10/2026", "15/10/2026", "14/10/2026"}, src.calls)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, "14/10/2026", res.Date)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, batch("14/10/2026", "Tomato", "Onion"), res.Records)
	assert.Empty(t, res.Error)
}

func TestResolveTodayHasData(t *testing.T) {
	src := &stubSource{byDate: map[string]models.RecordSet{
		"17/10/2026": batch("17/10/2026", "Tomato"),
	}}

	res := newTestResolver(src).Resolve(context.Background(), models.QueryFilter{})

	assert.Len(t, src.calls, 1)
	assert.True(t, res.Found())
	assert.Equal(t, "17/10/2026", res.Date)
}

func TestResolveAllEmpty(t *testing.T) {
	src := &stubSource{}

	res := newTestResolver(src).Resolve(context.Background(), models.QueryFilter{})

	require.Len(t, src.calls, MaxAttempts)
	assert.Equal(t, "08/10/2026", src.calls[MaxAttempts-1])
	assert.False(t, res.Found())
	assert.NotNil(t, res.Records)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Error)
	assert.Equal(t, "08/10/2026", res.Date)
}

func TestResolveKeepsFirstDayError(t *testing.T) {
	src := &stubSource{errs: map[string]error{
		"17/10/2026": errors.New("API returned status code 503"),
		"16/10/2026": errors.New("connection reset"),
	}}

	res := newTestResolver(src).Resolve(context.Background(), models.QueryFilter{})

	assert.Len(t, src.calls, MaxAttempts)
	assert.Equal(t, "API returned status code 503", res.Error)
	assert.Empty(t, res.Records)
}

func TestResolveClearsErrorWhenOlderDayHasData(t *testing.T) {
	src := &stubSource{
		errs:   map[string]error{"17/10/2026": errors.New("timeout")},
		byDate: map[string]models.RecordSet{"16/10/2026": batch("16/10/2026", "Tomato")},
	}

	res := newTestResolver(src).Resolve(context.Background(), models.QueryFilter{})

	assert.Len(t, src.calls, 2)
	assert.Empty(t, res.Error)
	assert.Equal(t, 1, res.Total)
}

func TestResolveFixedDateQueriesOnce(t *testing.T) {
	src := &stubSource{}

	res := newTestResolver(src).Resolve(context.Background(), models.QueryFilter{Date: "01/02/2025"})

	assert.Equal(t, []string{"01/02/2025"}, src.calls)
	assert.Equal(t, "01/02/2025", res.Date)
	assert.False(t, res.Found())
}

func TestResolveUsesLocationForToday(t *testing.T) {
	src := &stubSource{}
	kolkata := time.FixedZone("IST", 5*3600+1800)

	newTestResolver(src, WithLocation(kolkata)).Resolve(context.Background(), models.QueryFilter{})

	// 22:30 UTC is already the 18th in India.
	assert.Equal(t, "18/10/2026", src.calls[0])
}

func TestResolveStopsWhenContextCancelled(t *testing.T) {
	src := &stubSource{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestResolver(src).Resolve(ctx, models.QueryFilter{})

	assert.Empty(t, src.calls)
	assert.Equal(t, context.Canceled.Error(), res.Error)
}

func TestResolvePersistPolicy(t *testing.T) {
	testCases := []struct {
		name        string
		filter      models.QueryFilter
		dataDate    string
		fallback    bool
		wantBatches int
	}{
		{name: "first day always stored", dataDate: "17/10/2026", fallback: false, wantBatches: 1},
		{name: "fallback day stored when enabled", dataDate: "12/10/2026", fallback: true, wantBatches: 1},
		{name: "fallback day skipped when disabled", dataDate: "12/10/2026", fallback: false, wantBatches: 0},
		{name: "fixed date stored", filter: models.QueryFilter{Date: "12/10/2026"}, dataDate: "12/10/2026", fallback: false, wantBatches: 1},
		{name: "nothing found", dataDate: "01/01/2026", fallback: true, wantBatches: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := &stubSource{byDate: map[string]models.RecordSet{tc.dataDate: batch(tc.dataDate, "Tomato")}}
			p := &stubPersister{}

			res := newTestResolver(src, WithPersister(p, tc.fallback)).Resolve(context.Background(), tc.filter)

			assert.Len(t, p.batches, tc.wantBatches)
			if tc.wantBatches > 0 {
				require.NotNil(t, res.Persisted)
				assert.Equal(t, 1, res.Persisted.Inserted)
			} else {
				assert.Nil(t, res.Persisted)
			}
		})
	}
}

func TestResolvePersistFailureStillReturnsRecords(t *testing.T) {
	src := &stubSource{byDate: map[string]models.RecordSet{"17/10/2026": batch("17/10/2026", "Tomato", "Onion")}}
	p := &stubPersister{err: &storage.BatchError{Err: errors.New("database is locked")}}

	res := newTestResolver(src, WithPersister(p, true)).Resolve(context.Background(), models.QueryFilter{})

	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Records, 2)
	assert.Empty(t, res.Error)
	assert.Contains(t, res.PersistError, "database is locked")
	assert.Nil(t, res.Persisted)
}
