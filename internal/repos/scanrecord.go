package repos

import (
  "context"
  "errors"
  "fmt"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/bodyscan-backend/internal/logger"
  errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
  "github.com/yungbote/bodyscan-backend/internal/types"
)

type ScanRecordRepo interface {
  // Save persists a record for a content hash that already has a successful
  // ledger entry. Ledger-then-record ordering is the caller's responsibility.
  Save(ctx context.Context, tx *gorm.DB, record *types.ScanRecord, contentHash string) (uuid.UUID, error)
  // Query returns records ordered ascending by scan date. Bounds are inclusive
  // on both ends; a nil bound means unbounded on that side.
  Query(ctx context.Context, tx *gorm.DB, start, end *time.Time) ([]*types.ScanRecord, error)
  // GetRange returns the min and max scan dates, or (nil, nil) with no error
  // when the table is empty.
  GetRange(ctx context.Context, tx *gorm.DB) (*time.Time, *time.Time, error)
  Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type scanRecordRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewScanRecordRepo(db *gorm.DB, baseLog *logger.Logger) ScanRecordRepo {
  repoLog := baseLog.With("repo", "ScanRecordRepo")
  return &scanRecordRepo{db: db, log: repoLog}
}

func (r *scanRecordRepo) Save(ctx context.Context, tx *gorm.DB, record *types.ScanRecord, contentHash string) (uuid.UUID, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if record == nil {
    return uuid.Nil, fmt.Errorf("record required")
  }

  var ledgerCount int64
  if err := transaction.WithContext(ctx).
    Model(&types.IngestionLedgerEntry{}).
    Where("content_hash = ?", contentHash).
    Count(&ledgerCount).Error; err != nil {
    return uuid.Nil, err
  }
  if ledgerCount == 0 {
    return uuid.Nil, fmt.Errorf("no ledger entry for content hash %s: %w", contentHash, errs.ErrIntegrity)
  }

  record.ContentHash = contentHash
  if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
    return uuid.Nil, err
  }
  return record.ID, nil
}

func (r *scanRecordRepo) Query(ctx context.Context, tx *gorm.DB, start, end *time.Time) ([]*types.ScanRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  q := transaction.WithContext(ctx).Model(&types.ScanRecord{})
  if start != nil {
    q = q.Where("scan_date >= ?", *start)
  }
  if end != nil {
    q = q.Where("scan_date <= ?", *end)
  }

  var results []*types.ScanRecord
  if err := q.Order("scan_date ASC").Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

// GetRange reads the endpoints as full rows rather than MIN/MAX aggregates;
// sqlite drops the declared column type on aggregate results, which breaks
// scanning into time.Time.
func (r *scanRecordRepo) GetRange(ctx context.Context, tx *gorm.DB) (*time.Time, *time.Time, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var first types.ScanRecord
  if err := transaction.WithContext(ctx).
    Order("scan_date ASC").
    First(&first).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, nil, nil
    }
    return nil, nil, err
  }

  var last types.ScanRecord
  if err := transaction.WithContext(ctx).
    Order("scan_date DESC").
    First(&last).Error; err != nil {
    return nil, nil, err
  }

  return &first.ScanDate, &last.ScanDate, nil
}

func (r *scanRecordRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var count int64
  if err := transaction.WithContext(ctx).Model(&types.ScanRecord{}).Count(&count).Error; err != nil {
    return 0, err
  }
  return count, nil
}
