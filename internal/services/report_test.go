package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/bodyscan-backend/internal/db"
	errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
	"github.com/yungbote/bodyscan-backend/internal/repos"
	"github.com/yungbote/bodyscan-backend/internal/types"
)

func newTestReport(t *testing.T) (ReportService, repos.ScanRecordRepo, repos.IngestionLedgerRepo) {
	t.Helper()
	log := testLogger(t)
	sqliteService, err := db.NewSQLiteService(filepath.Join(t.TempDir(), "test.db"), log)
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	if err := sqliteService.AutoMigrateAll(); err != nil {
		t.Fatalf("auto migration: %v", err)
	}
	theDB := sqliteService.DB()
	recordRepo := repos.NewScanRecordRepo(theDB, log)
	ledgerRepo := repos.NewIngestionLedgerRepo(theDB, log)

	charts, err := NewChartService(log, DefaultChartStyle())
	if err != nil {
		t.Fatalf("init chart service: %v", err)
	}
	report := NewReportService(log, recordRepo,
		NewStatsService(log), NewChartDataService(log), charts, NewInsightsService(log))
	return report, recordRepo, ledgerRepo
}

func storeScan(t *testing.T, recordRepo repos.ScanRecordRepo, ledgerRepo repos.IngestionLedgerRepo, hash string, record *types.ScanRecord) {
	t.Helper()
	ctx := context.Background()
	if err := ledgerRepo.RecordAttempt(ctx, nil, &types.IngestionLedgerEntry{
		FilePath:    "/scans/" + hash + ".jpg",
		ContentHash: hash,
		ProcessedAt: time.Now(),
		Success:     true,
	}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	if _, err := recordRepo.Save(ctx, nil, record, hash); err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

func TestGenerate_FailsFastOnEmptySet(t *testing.T) {
	report, _, _ := newTestReport(t)
	_, err := report.Generate(context.Background(), ReportOptions{
		OutputPath: filepath.Join(t.TempDir(), "report.pdf"),
	})
	if !errors.Is(err, errs.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestGenerate_WritesPDF(t *testing.T) {
	report, recordRepo, ledgerRepo := newTestReport(t)

	d1 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	r1 := &types.ScanRecord{ScanDate: d1, Height: 180, Weight: 70, MuscleMass: fptr(30.0), BodyFatPercentage: fptr(22.0), BMI: fptr(23.5)}
	r2 := &types.ScanRecord{ScanDate: d2, Height: 180, Weight: 67, MuscleMass: fptr(31.0), BodyFatPercentage: fptr(20.5), BMI: fptr(22.5)}
	storeScan(t, recordRepo, ledgerRepo, "hash-1", r1)
	storeScan(t, recordRepo, ledgerRepo, "hash-2", r2)

	outputPath := filepath.Join(t.TempDir(), "report.pdf")
	path, err := report.Generate(context.Background(), ReportOptions{OutputPath: outputPath, Title: "Test Report"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if path != outputPath {
		t.Fatalf("expected path %s, got %s", outputPath, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF (%d bytes)", len(data))
	}
}

func TestGenerate_DateFilterExcludesEverything(t *testing.T) {
	report, recordRepo, ledgerRepo := newTestReport(t)

	d1 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	storeScan(t, recordRepo, ledgerRepo, "hash-1", &types.ScanRecord{ScanDate: d1, Height: 180, Weight: 70})

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := report.Generate(context.Background(), ReportOptions{
		OutputPath: filepath.Join(t.TempDir(), "report.pdf"),
		StartDate:  &start,
	})
	if !errors.Is(err, errs.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for empty filtered set, got %v", err)
	}
}
