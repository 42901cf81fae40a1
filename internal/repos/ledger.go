package repos

import (
  "context"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/yungbote/bodyscan-backend/internal/logger"
  "github.com/yungbote/bodyscan-backend/internal/types"
)

type LedgerStats struct {
  TotalProcessed int64 `json:"total_processed"`
  Successful     int64 `json:"successful"`
  Failed         int64 `json:"failed"`
  TotalRecords   int64 `json:"total_records"`
}

type IngestionLedgerRepo interface {
  // IsKnown reports whether a successful ingestion already exists for the hash.
  // Failed attempts do not count; those images are retried on the next run.
  IsKnown(ctx context.Context, tx *gorm.DB, contentHash string) (bool, error)
  // RecordAttempt upserts the ledger row keyed by content hash.
  RecordAttempt(ctx context.Context, tx *gorm.DB, entry *types.IngestionLedgerEntry) error
  GetByHashes(ctx context.Context, tx *gorm.DB, hashes []string) ([]*types.IngestionLedgerEntry, error)
  Stats(ctx context.Context, tx *gorm.DB) (LedgerStats, error)
}

type ingestionLedgerRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewIngestionLedgerRepo(db *gorm.DB, baseLog *logger.Logger) IngestionLedgerRepo {
  repoLog := baseLog.With("repo", "IngestionLedgerRepo")
  return &ingestionLedgerRepo{db: db, log: repoLog}
}

func (r *ingestionLedgerRepo) IsKnown(ctx context.Context, tx *gorm.DB, contentHash string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.IngestionLedgerEntry{}).
    Where("content_hash = ? AND success = ?", contentHash, true).
    Count(&count).Error; err != nil {
    return false, err
  }
  return count > 0, nil
}

func (r *ingestionLedgerRepo) RecordAttempt(ctx context.Context, tx *gorm.DB, entry *types.IngestionLedgerEntry) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns: []clause.Column{{Name: "content_hash"}},
      DoUpdates: clause.AssignmentColumns([]string{
        "file_path", "processed_at", "success", "error_message",
      }),
    }).
    Create(entry).Error
}

func (r *ingestionLedgerRepo) GetByHashes(ctx context.Context, tx *gorm.DB, hashes []string) ([]*types.IngestionLedgerEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.IngestionLedgerEntry
  if len(hashes) == 0 {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("content_hash IN ?", hashes).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *ingestionLedgerRepo) Stats(ctx context.Context, tx *gorm.DB) (LedgerStats, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var stats LedgerStats
  if err := transaction.WithContext(ctx).
    Model(&types.IngestionLedgerEntry{}).
    Count(&stats.TotalProcessed).Error; err != nil {
    return stats, err
  }
  if err := transaction.WithContext(ctx).
    Model(&types.IngestionLedgerEntry{}).
    Where("success = ?", true).
    Count(&stats.Successful).Error; err != nil {
    return stats, err
  }
  stats.Failed = stats.TotalProcessed - stats.Successful
  if err := transaction.WithContext(ctx).
    Model(&types.ScanRecord{}).
    Count(&stats.TotalRecords).Error; err != nil {
    return stats, err
  }
  return stats, nil
}
