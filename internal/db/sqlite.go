package db

import (
  "fmt"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  "github.com/yungbote/bodyscan-backend/internal/types"
  "github.com/yungbote/bodyscan-backend/internal/logger"
)

type SQLiteService struct {
  db  *gorm.DB
  log *logger.Logger
}

// NewSQLiteService opens (creating if needed) the scan database at path.
func NewSQLiteService(path string, log *logger.Logger) (*SQLiteService, error) {
  serviceLog := log.With("service", "SQLiteService")

  serviceLog.Info("Opening SQLite database...", "path", path)
  gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    serviceLog.Error("Failed to open SQLite database", "error", err)
    return nil, fmt.Errorf("failed to open sqlite database: %w", err)
  }

  // Single writer; the pipeline is synchronous and callers must serialize
  // ingestion of a given folder.
  sqlDB, err := gormDB.DB()
  if err != nil {
    return nil, fmt.Errorf("failed to access sql.DB: %w", err)
  }
  sqlDB.SetMaxOpenConns(1)

  return &SQLiteService{db: gormDB, log: serviceLog}, nil
}

func (s *SQLiteService) AutoMigrateAll() error {
  s.log.Info("Auto migrating sqlite tables...")
  err := s.db.AutoMigrate(
    &types.IngestionLedgerEntry{},
    &types.ScanRecord{},
  )
  if err != nil {
    s.log.Error("Auto migration failed for sqlite tables", "error", err)
    return err
  }
  return nil
}

func (s *SQLiteService) DB() *gorm.DB {
  return s.db
}
