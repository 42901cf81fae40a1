package repos

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/bodyscan-backend/internal/types"
)

func TestIsKnown_OnlyCountsSuccesses(t *testing.T) {
	theDB, log := testDB(t)
	ledgerRepo := NewIngestionLedgerRepo(theDB, log)
	ctx := context.Background()

	msg := "extraction failed"
	failed := &types.IngestionLedgerEntry{
		FilePath:     "/scans/a.jpg",
		ContentHash:  "hash-a",
		ProcessedAt:  time.Now(),
		Success:      false,
		ErrorMessage: &msg,
	}
	if err := ledgerRepo.RecordAttempt(ctx, nil, failed); err != nil {
		t.Fatalf("record failed attempt: %v", err)
	}

	known, err := ledgerRepo.IsKnown(ctx, nil, "hash-a")
	if err != nil {
		t.Fatalf("is known: %v", err)
	}
	if known {
		t.Fatalf("failed attempt should not mark hash known")
	}
}

func TestRecordAttempt_UpsertsByContentHash(t *testing.T) {
	theDB, log := testDB(t)
	ledgerRepo := NewIngestionLedgerRepo(theDB, log)
	ctx := context.Background()

	msg := "first attempt failed"
	if err := ledgerRepo.RecordAttempt(ctx, nil, &types.IngestionLedgerEntry{
		FilePath:     "/scans/a.jpg",
		ContentHash:  "hash-a",
		ProcessedAt:  time.Now(),
		Success:      false,
		ErrorMessage: &msg,
	}); err != nil {
		t.Fatalf("first attempt: %v", err)
	}

	// Retry succeeds and overwrites the same ledger row
	if err := ledgerRepo.RecordAttempt(ctx, nil, &types.IngestionLedgerEntry{
		FilePath:    "/scans/moved/a.jpg",
		ContentHash: "hash-a",
		ProcessedAt: time.Now(),
		Success:     true,
	}); err != nil {
		t.Fatalf("second attempt: %v", err)
	}

	entries, err := ledgerRepo.GetByHashes(ctx, nil, []string{"hash-a"})
	if err != nil {
		t.Fatalf("get by hashes: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger row after upsert, got %d", len(entries))
	}
	if !entries[0].Success || entries[0].FilePath != "/scans/moved/a.jpg" {
		t.Fatalf("upsert did not overwrite: %+v", entries[0])
	}

	known, err := ledgerRepo.IsKnown(ctx, nil, "hash-a")
	if err != nil {
		t.Fatalf("is known: %v", err)
	}
	if !known {
		t.Fatalf("successful attempt should mark hash known")
	}
}

func TestStats_CountsAttemptsAndRecords(t *testing.T) {
	theDB, log := testDB(t)
	ledgerRepo := NewIngestionLedgerRepo(theDB, log)
	recordRepo := NewScanRecordRepo(theDB, log)
	ctx := context.Background()

	seedRecord(t, recordRepo, ledgerRepo, "hash-ok", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 70)

	msg := "bad image"
	if err := ledgerRepo.RecordAttempt(ctx, nil, &types.IngestionLedgerEntry{
		FilePath:     "/scans/broken.jpg",
		ContentHash:  "hash-bad",
		ProcessedAt:  time.Now(),
		Success:      false,
		ErrorMessage: &msg,
	}); err != nil {
		t.Fatalf("record failed attempt: %v", err)
	}

	stats, err := ledgerRepo.Stats(ctx, nil)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalProcessed != 2 || stats.Successful != 1 || stats.Failed != 1 || stats.TotalRecords != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestGetByHashes_EmptyInput(t *testing.T) {
	theDB, log := testDB(t)
	ledgerRepo := NewIngestionLedgerRepo(theDB, log)

	entries, err := ledgerRepo.GetByHashes(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("get by hashes: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
