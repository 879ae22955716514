// Package storage persists normalized price observations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/navid-fn/mandi/internal/metrics"
	"github.com/navid-fn/mandi/internal/models"
	dbmodels "github.com/navid-fn/mandi/internal/storage/models"
	"github.com/navid-fn/mandi/utils"
)

// ErrNotFound is returned when a row id does not exist.
var ErrNotFound = errors.New("market data not found")

// ErrDuplicate is returned when a create or edit would give a row the
// identity key of another stored row.
var ErrDuplicate = errors.New("market data already exists for this state, district, market, commodity and date")

// BatchError means an upsert batch was rolled back; nothing from it was saved.
type BatchError struct {
	Err error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("upsert batch rolled back: %v", e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// UpsertResult says what an upsert did to the stored row.
type UpsertResult int

const (
	Unchanged UpsertResult = iota
	Inserted
	Updated
)

func (r UpsertResult) String() string {
	switch r {
	case Inserted:
		return metrics.ResultInserted
	case Updated:
		return metrics.ResultUpdated
	default:
		return metrics.ResultUnchanged
	}
}

// UpsertReport counts the results of one batch.
type UpsertReport struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// Writes is the number of rows the batch inserted or changed.
func (r UpsertReport) Writes() int {
	return r.Inserted + r.Updated
}

func (r *UpsertReport) add(res UpsertResult) {
	switch res {
	case Inserted:
		r.Inserted++
	case Updated:
		r.Updated++
	default:
		r.Unchanged++
	}
}

// RowFilter narrows List. Empty fields match everything.
type RowFilter struct {
	State     string
	District  string
	Market    string
	Commodity string
	Limit     int
}

// RowUpdate holds the fields an edit may change.
type RowUpdate struct {
	Market    string
	Commodity string
	Price     float64
}

// Store defines persistence for stored price rows.
// It owns the row lifecycle: create on first sighting, update price in place,
// delete by id or by the retention sweep.
type Store interface {
	// Upsert reconciles a single record against the stored row with the same identity key.
	Upsert(ctx context.Context, rec models.PriceRecord) (UpsertResult, error)

	// UpsertBatch upserts every record in one transaction. Any failure rolls
	// back the whole batch and returns *BatchError.
	UpsertBatch(ctx context.Context, recs models.RecordSet) (UpsertReport, error)

	List(ctx context.Context, f RowFilter) ([]dbmodels.PriceRow, error)
	Get(ctx context.Context, id uint) (*dbmodels.PriceRow, error)
	Create(ctx context.Context, row *dbmodels.PriceRow) error
	Update(ctx context.Context, id uint, u RowUpdate) (*dbmodels.PriceRow, error)
	Delete(ctx context.Context, id uint) error

	// Sweep deletes rows whose calendar date is before cutoff's date.
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases database connection resources.
	Close() error
}

type gormStore struct {
	db     *gorm.DB
	logger *logrus.Entry
}

func NewGormStore(db *gorm.DB, logger *logrus.Logger) Store {
	return &gormStore{
		db:     db,
		logger: logger.WithField("component", "storage"),
	}
}

func (s *gormStore) Upsert(ctx context.Context, rec models.PriceRecord) (UpsertResult, error) {
	report, err := s.UpsertBatch(ctx, models.RecordSet{rec})
	if err != nil {
		return Unchanged, err
	}
	switch {
	case report.Inserted == 1:
		return Inserted, nil
	case report.Updated == 1:
		return Updated, nil
	default:
		return Unchanged, nil
	}
}

// UpsertBatch looks each record up against persisted state inside the
// transaction, so a key repeated within the batch updates the row it
// inserted earlier instead of adding a second one.
func (s *gormStore) UpsertBatch(ctx context.Context, recs models.RecordSet) (UpsertReport, error) {
	var report UpsertReport
	if len(recs) == 0 {
		return report, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			res, err := upsertOne(tx, rec)
			if err != nil {
				return fmt.Errorf("upsert %s/%s/%s: %w", rec.Market, rec.Commodity, rec.Date, err)
			}
			report.add(res)
		}
		return nil
	})
	if err != nil {
		metrics.StorageBatchFailuresTotal.Inc()
		s.logger.WithError(err).WithField("records", len(recs)).Error("Upsert batch failed, rolled back")
		return UpsertReport{}, &BatchError{Err: err}
	}

	metrics.UpsertRowsTotal.WithLabelValues(metrics.ResultInserted).Add(float64(report.Inserted))
	metrics.UpsertRowsTotal.WithLabelValues(metrics.ResultUpdated).Add(float64(report.Updated))
	metrics.UpsertRowsTotal.WithLabelValues(metrics.ResultUnchanged).Add(float64(report.Unchanged))
	s.logger.WithFields(logrus.Fields{
		"inserted":  report.Inserted,
		"updated":   report.Updated,
		"unchanged": report.Unchanged,
	}).Debug("Upsert batch committed")
	return report, nil
}

func upsertOne(tx *gorm.DB, rec models.PriceRecord) (UpsertResult, error) {
	key := rec.Key()
	var row dbmodels.PriceRow
	err := tx.Where("state = ? AND district = ? AND market = ? AND commodity = ? AND date = ?",
		key.State, key.District, key.Market, key.Commodity, key.Date).
		Take(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = dbmodels.PriceRow{
			State:     key.State,
			District:  key.District,
			Market:    key.Market,
			Commodity: key.Commodity,
			Price:     rec.ModalPricePerKg,
			Date:      key.Date,
		}
		if err := tx.Create(&row).Error; err != nil {
			return Unchanged, err
		}
		return Inserted, nil
	}
	if err != nil {
		return Unchanged, err
	}

	if row.Price == rec.ModalPricePerKg {
		return Unchanged, nil
	}
	if err := tx.Model(&row).Update("price", rec.ModalPricePerKg).Error; err != nil {
		return Unchanged, err
	}
	return Updated, nil
}

func (s *gormStore) List(ctx context.Context, f RowFilter) ([]dbmodels.PriceRow, error) {
	query := s.db.WithContext(ctx).Model(&dbmodels.PriceRow{})
	if f.State != "" {
		query = query.Where("state = ?", f.State)
	}
	if f.District != "" {
		query = query.Where("district = ?", f.District)
	}
	if f.Market != "" {
		query = query.Where("market = ?", f.Market)
	}
	if f.Commodity != "" {
		query = query.Where("commodity = ?", f.Commodity)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var rows []dbmodels.PriceRow
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list market data: %w", err)
	}
	return rows, nil
}

func (s *gormStore) Get(ctx context.Context, id uint) (*dbmodels.PriceRow, error) {
	var row dbmodels.PriceRow
	err := s.db.WithContext(ctx).Take(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get market data %d: %w", id, err)
	}
	return &row, nil
}

func (s *gormStore) Create(ctx context.Context, row *dbmodels.PriceRow) error {
	err := s.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create market data: %w", err)
	}
	return nil
}

func (s *gormStore) Update(ctx context.Context, id uint, u RowUpdate) (*dbmodels.PriceRow, error) {
	var row dbmodels.PriceRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&row, id).Error; err != nil {
			return err
		}
		err := tx.Model(&row).Updates(map[string]any{
			"market":    u.Market,
			"commodity": u.Commodity,
			"price":     u.Price,
		}).Error
		if err != nil {
			return err
		}
		return tx.Take(&row, id).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, ErrDuplicate
	case err != nil:
		return nil, fmt.Errorf("update market data %d: %w", id, err)
	}
	return &row, nil
}

func (s *gormStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&dbmodels.PriceRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete market data %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Sweep compares parsed calendar dates, not the stored DD/MM/YYYY strings,
// so month and year boundaries order correctly. Rows whose date does not
// parse are kept.
func (s *gormStore) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffDay := utils.StartOfDay(cutoff)

	type idDate struct {
		ID   uint
		Date string
	}
	var rows []idDate
	if err := s.db.WithContext(ctx).Model(&dbmodels.PriceRow{}).Select("id, date").Scan(&rows).Error; err != nil {
		return 0, fmt.Errorf("scan dates: %w", err)
	}

	var stale []uint
	for _, r := range rows {
		day, err := utils.ParseSourceDate(r.Date)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"id": r.ID, "date": r.Date}).Warn("Skipping row with unparseable date")
			continue
		}
		if day.Before(cutoffDay) {
			stale = append(stale, r.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, chunk := range chunkIDs(stale, 500) {
			res := tx.Delete(&dbmodels.PriceRow{}, chunk)
			if res.Error != nil {
				return res.Error
			}
			deleted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete stale rows: %w", err)
	}

	metrics.SweepDeletedTotal.Add(float64(deleted))
	s.logger.WithFields(logrus.Fields{
		"deleted": deleted,
		"cutoff":  utils.SourceDate(cutoffDay),
	}).Info("Retention sweep completed")
	return deleted, nil
}

// Close closes the underlying connection pool.
func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// chunkIDs splits ids into slices of at most size.
func chunkIDs(ids []uint, size int) [][]uint {
	chunks := make([][]uint, 0, (len(ids)+size-1)/size)
	for i := 0; i < len(ids); i += size {
		end := min(i+size, len(ids))
		chunks = append(chunks, ids[i:end])
	}
	return chunks
}
