package repos

import (
	"path/filepath"
	"testing"

	"github.com/yungbote/bodyscan-backend/internal/db"
	"github.com/yungbote/bodyscan-backend/internal/logger"
	"gorm.io/gorm"
)

func testDB(t *testing.T) (*gorm.DB, *logger.Logger) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	sqliteService, err := db.NewSQLiteService(filepath.Join(t.TempDir(), "test.db"), log)
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	if err := sqliteService.AutoMigrateAll(); err != nil {
		t.Fatalf("auto migration: %v", err)
	}
	return sqliteService.DB(), log
}
