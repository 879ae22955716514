package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/mandi/configs"
	"github.com/navid-fn/mandi/internal/models"
	"github.com/navid-fn/mandi/internal/resolver"
	"github.com/navid-fn/mandi/internal/storage"
	dbmodels "github.com/navid-fn/mandi/internal/storage/models"
	"github.com/navid-fn/mandi/utils"
)

// ErrInvalidRow rejects a manual row before it reaches storage.
var ErrInvalidRow = errors.New("invalid market data")

// Resolver finds the latest day with data for a filter.
type Resolver interface {
	Resolve(ctx context.Context, f models.QueryFilter) *resolver.Result
}

// Options configures a MarketService.
type Options struct {
	DefaultState    string
	DefaultDistrict string
	DashboardSource configs.DashboardSource
	Location        *time.Location

	// Now overrides time.Now in tests.
	Now func() time.Time
}

type MarketService struct {
	resolver Resolver
	store    storage.Store
	opts     Options
	logger   *logrus.Entry
}

func NewMarketService(res Resolver, store storage.Store, opts Options, logger *logrus.Logger) *MarketService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DashboardSource == "" {
		opts.DashboardSource = configs.DashboardLive
	}
	return &MarketService{
		resolver: res,
		store:    store,
		opts:     opts,
		logger:   logger.WithField("component", "market_service"),
	}
}

func (s *MarketService) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// Today returns the current date as YYYY-MM-DD.
func (s *MarketService) Today() string {
	return s.now().Format(utils.ISODateLayout)
}

// MarketData resolves f, walking back from today unless f fixes a date.
func (s *MarketService) MarketData(ctx context.Context, f models.QueryFilter) *resolver.Result {
	return s.resolver.Resolve(ctx, f)
}

// LiveRecords resolves the default state and district.
func (s *MarketService) LiveRecords(ctx context.Context) models.RecordSet {
	return s.resolver.Resolve(ctx, s.defaultFilter()).Records
}

// DashboardRecords reads stored rows for the default state and district when
// the dashboard is store-backed, and falls back to a live resolve when the
// store has none.
func (s *MarketService) DashboardRecords(ctx context.Context) (models.RecordSet, error) {
	if s.opts.DashboardSource != configs.DashboardStore || s.store == nil {
		return s.LiveRecords(ctx), nil
	}

	rows, err := s.store.List(ctx, storage.RowFilter{
		State:    s.opts.DefaultState,
		District: s.opts.DefaultDistrict,
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard rows: %w", err)
	}
	if len(rows) == 0 {
		s.logger.Info("No stored rows for dashboard, fetching live")
		return s.LiveRecords(ctx), nil
	}

	recs := make(models.RecordSet, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, RecordFromRow(row))
	}
	return recs, nil
}

func (s *MarketService) defaultFilter() models.QueryFilter {
	return models.QueryFilter{State: s.opts.DefaultState, District: s.opts.DefaultDistrict}
}

// RecordFromRow rebuilds a record from a stored row. Only the modal price
// is stored, so the source-unit modal price is derived back from it.
func RecordFromRow(row dbmodels.PriceRow) models.PriceRecord {
	iso, _ := utils.SourceToISO(row.Date)
	return models.PriceRecord{
		ID:              int(row.ID),
		State:           row.State,
		District:        row.District,
		Market:          row.Market,
		Commodity:       row.Commodity,
		ArrivalDate:     iso,
		Date:            row.Date,
		ModalPrice:      decimal.NewFromFloat(row.Price).Shift(2).InexactFloat64(),
		ModalPricePerKg: row.Price,
		PricePerKg:      row.Price,
	}
}

func (s *MarketService) ListRows(ctx context.Context, f storage.RowFilter) ([]dbmodels.PriceRow, error) {
	return s.store.List(ctx, f)
}

func (s *MarketService) GetRow(ctx context.Context, id uint) (*dbmodels.PriceRow, error) {
	return s.store.Get(ctx, id)
}

// CreateRow adds a manual row. Empty state and district take the defaults;
// an empty date is today.
func (s *MarketService) CreateRow(ctx context.Context, row *dbmodels.PriceRow) error {
	if row.State == "" {
		row.State = s.opts.DefaultState
	}
	if row.District == "" {
		row.District = s.opts.DefaultDistrict
	}
	if row.Date == "" {
		row.Date = utils.SourceDate(s.now())
	}
	if _, err := utils.ParseSourceDate(row.Date); err != nil {
		return fmt.Errorf("%w: date %q is not DD/MM/YYYY", ErrInvalidRow, row.Date)
	}
	return s.store.Create(ctx, row)
}

func (s *MarketService) UpdateRow(ctx context.Context, id uint, u storage.RowUpdate) (*dbmodels.PriceRow, error) {
	return s.store.Update(ctx, id, u)
}

func (s *MarketService) DeleteRow(ctx context.Context, id uint) error {
	return s.store.Delete(ctx, id)
}

// Sweep deletes rows older than retentionDays before today.
func (s *MarketService) Sweep(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	return s.store.Sweep(ctx, cutoff)
}
