package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
	"github.com/yungbote/bodyscan-backend/internal/types"
)

func seedLedger(t *testing.T, ledgerRepo IngestionLedgerRepo, hash string) {
	t.Helper()
	entry := &types.IngestionLedgerEntry{
		FilePath:    "/scans/" + hash + ".jpg",
		ContentHash: hash,
		ProcessedAt: time.Now(),
		Success:     true,
	}
	if err := ledgerRepo.RecordAttempt(context.Background(), nil, entry); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
}

func seedRecord(t *testing.T, recordRepo ScanRecordRepo, ledgerRepo IngestionLedgerRepo, hash string, scanDate time.Time, weight float64) {
	t.Helper()
	seedLedger(t, ledgerRepo, hash)
	record := &types.ScanRecord{ScanDate: scanDate, Height: 180, Weight: weight}
	if _, err := recordRepo.Save(context.Background(), nil, record, hash); err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

func TestSave_RequiresLedgerEntry(t *testing.T) {
	theDB, log := testDB(t)
	recordRepo := NewScanRecordRepo(theDB, log)

	record := &types.ScanRecord{ScanDate: time.Now(), Height: 180, Weight: 70}
	_, err := recordRepo.Save(context.Background(), nil, record, "orphan-hash")
	if !errors.Is(err, errs.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity for hash with no ledger entry, got %v", err)
	}
}

func TestQuery_OrderedAscendingWithInclusiveBounds(t *testing.T) {
	theDB, log := testDB(t)
	recordRepo := NewScanRecordRepo(theDB, log)
	ledgerRepo := NewIngestionLedgerRepo(theDB, log)
	ctx := context.Background()

	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	// Insert out of order to prove the query sorts
	seedRecord(t, recordRepo, ledgerRepo, "h3", d3, 67)
	seedRecord(t, recordRepo, ledgerRepo, "h1", d1, 70)
	seedRecord(t, recordRepo, ledgerRepo, "h2", d2, 68.5)

	all, err := recordRepo.Query(ctx, nil, nil, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if !all[0].ScanDate.Equal(d1) || !all[2].ScanDate.Equal(d3) {
		t.Fatalf("records not sorted ascending: %v, %v, %v", all[0].ScanDate, all[1].ScanDate, all[2].ScanDate)
	}

	// Bounds are inclusive on both ends
	bounded, err := recordRepo.Query(ctx, nil, &d1, &d2)
	if err != nil {
		t.Fatalf("bounded query: %v", err)
	}
	if len(bounded) != 2 {
		t.Fatalf("expected 2 records within inclusive bounds, got %d", len(bounded))
	}

	onlyEnd, err := recordRepo.Query(ctx, nil, nil, &d2)
	if err != nil {
		t.Fatalf("end-bounded query: %v", err)
	}
	if len(onlyEnd) != 2 {
		t.Fatalf("expected 2 records with open start, got %d", len(onlyEnd))
	}
}

func TestGetRange_EmptyTable(t *testing.T) {
	theDB, log := testDB(t)
	recordRepo := NewScanRecordRepo(theDB, log)

	start, end, err := recordRepo.GetRange(context.Background(), nil)
	if err != nil {
		t.Fatalf("get range: %v", err)
	}
	if start != nil || end != nil {
		t.Fatalf("expected nil bounds for empty table, got %v, %v", start, end)
	}
}

func TestGetRange_MinAndMax(t *testing.T) {
	theDB, log := testDB(t)
	recordRepo := NewScanRecordRepo(theDB, log)
	ledgerRepo := NewIngestionLedgerRepo(theDB, log)

	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seedRecord(t, recordRepo, ledgerRepo, "h1", d2, 67)
	seedRecord(t, recordRepo, ledgerRepo, "h2", d1, 70)

	start, end, err := recordRepo.GetRange(context.Background(), nil)
	if err != nil {
		t.Fatalf("get range: %v", err)
	}
	if start == nil || end == nil {
		t.Fatalf("expected bounds, got %v, %v", start, end)
	}
	if !start.Equal(d1) || !end.Equal(d2) {
		t.Fatalf("unexpected bounds: %v, %v", start, end)
	}
}
