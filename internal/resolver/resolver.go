// Package resolver finds the most recent day the source has prices for.
package resolver

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/mandi/internal/metrics"
	"github.com/navid-fn/mandi/internal/models"
	"github.com/navid-fn/mandi/internal/storage"
	"github.com/navid-fn/mandi/utils"
)

// MaxAttempts is today plus the nine days before it.
const MaxAttempts = 10

// Source fetches one day of normalized records.
type Source interface {
	FetchForDate(ctx context.Context, date string, f models.QueryFilter) (models.RecordSet, error)
}

// Persister stores a fetched batch.
type Persister interface {
	UpsertBatch(ctx context.Context, recs models.RecordSet) (storage.UpsertReport, error)
}

// Result is the outcome of one walk-back.
type Result struct {
	Records models.RecordSet `json:"records"`
	Total   int              `json:"total"`

	// Date is the DD/MM/YYYY day the records came from, or the last day
	// tried when nothing was found.
	Date string `json:"date"`

	// Error carries the first day's upstream failure when no day had data.
	Error string `json:"error,omitempty"`

	Attempts     int                   `json:"-"`
	Persisted    *storage.UpsertReport `json:"-"`
	PersistError string                `json:"-"`
}

// Found reports whether any day had records.
func (r *Result) Found() bool {
	return len(r.Records) > 0
}

type Option func(*Resolver)

// WithPersister stores every batch the resolver returns. When fallback is
// false only batches for the first day queried are stored.
func WithPersister(p Persister, fallback bool) Option {
	return func(r *Resolver) {
		r.persister = p
		r.persistFallback = fallback
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithLocation sets the zone "today" is computed in.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		r.loc = loc
	}
}

type Resolver struct {
	source          Source
	persister       Persister
	persistFallback bool
	now             func() time.Time
	loc             *time.Location
	logger          *logrus.Entry
}

func New(source Source, logger *logrus.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		source: source,
		now:    time.Now,
		loc:    time.UTC,
		logger: logger.WithField("component", "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve queries today, then each earlier day up to MaxAttempts, and
// returns the first non-empty batch. Upstream failures count as empty days.
// A filter with a fixed Date is queried once, without walk-back.
func (r *Resolver) Resolve(ctx context.Context, f models.QueryFilter) *Result {
	dates := r.candidates(f)
	res := &Result{Records: models.RecordSet{}}

	for offset, date := range dates {
		if ctx.Err() != nil {
			r.logger.WithError(ctx.Err()).WithField("date", date).Warn("Walk-back cancelled")
			if res.Error == "" {
				res.Error = ctx.Err().Error()
			}
			break
		}

		res.Attempts++
		res.Date = date
		recs, err := r.source.FetchForDate(ctx, date, f)
		if err != nil {
			if offset == 0 {
				res.Error = err.Error()
			}
			continue
		}
		if len(recs) == 0 {
			continue
		}

		res.Records = recs
		res.Total = len(recs)
		res.Error = ""
		if offset > 0 {
			r.logger.WithFields(logrus.Fields{"date": date, "offset": offset}).Info("Using data from earlier date")
		}
		r.persist(ctx, res, offset == 0 || f.Date != "")
		break
	}

	metrics.FallbackAttempts.Observe(float64(res.Attempts))
	if !res.Found() {
		metrics.ResolutionsEmptyTotal.Inc()
		r.logger.WithField("attempts", res.Attempts).Warn("No records found on any candidate date")
	}
	return res
}

func (r *Resolver) candidates(f models.QueryFilter) []string {
	if f.Date != "" {
		return []string{f.Date}
	}
	today := r.now().In(r.loc)
	dates := make([]string, 0, MaxAttempts)
	for offset := 0; offset < MaxAttempts; offset++ {
		dates = append(dates, utils.DaysBack(today, offset))
	}
	return dates
}

// persist never fails the resolution: the records are returned either way.
func (r *Resolver) persist(ctx context.Context, res *Result, firstDay bool) {
	if r.persister == nil || (!firstDay && !r.persistFallback) {
		return
	}
	report, err := r.persister.UpsertBatch(ctx, res.Records)
	if err != nil {
		res.PersistError = err.Error()
		r.logger.WithError(err).WithField("date", res.Date).Error("Failed to persist fetched records")
		return
	}
	res.Persisted = &report
}
