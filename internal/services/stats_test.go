package services

import (
	"testing"
	"time"

	"github.com/yungbote/bodyscan-backend/internal/types"
)

func discardStatsService(t *testing.T) StatsService {
	t.Helper()
	return NewStatsService(testLogger(t))
}

func dayN(n int) time.Time {
	return time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func fptr(v float64) *float64 { return &v }

func scanOn(n int, weight float64) *types.ScanRecord {
	return &types.ScanRecord{ScanDate: dayN(n), Height: 180, Weight: weight}
}

func TestSummarize_EmptySet(t *testing.T) {
	stats := discardStatsService(t).Summarize(nil)
	if stats.TotalScans != 0 {
		t.Fatalf("expected 0 scans, got %d", stats.TotalScans)
	}
	if stats.DateRange != nil || stats.WeightChange != nil {
		t.Fatalf("expected no date range or deltas for empty set")
	}
}

func TestSummarize_SingleRecordHasNoDeltas(t *testing.T) {
	stats := discardStatsService(t).Summarize([]*types.ScanRecord{scanOn(0, 70)})
	if stats.TotalScans != 1 {
		t.Fatalf("expected 1 scan, got %d", stats.TotalScans)
	}
	if stats.DateRange != nil {
		t.Fatalf("expected no date range for a single record, got %+v", stats.DateRange)
	}
	if stats.WeightChange != nil || stats.BodyFatChange != nil || stats.MuscleChange != nil || stats.BMIChange != nil {
		t.Fatalf("expected nil deltas for a single record")
	}
}

func TestSummarize_WeightDeltas(t *testing.T) {
	records := []*types.ScanRecord{
		scanOn(0, 70),
		scanOn(15, 68.5),
		scanOn(30, 67),
	}
	stats := discardStatsService(t).Summarize(records)

	wc := stats.WeightChange
	if wc == nil {
		t.Fatalf("expected weight change")
	}
	if wc.TotalKg != -3.0 {
		t.Fatalf("expected total -3.0, got %v", wc.TotalKg)
	}
	if wc.StartWeight != 70.0 || wc.EndWeight != 67.0 {
		t.Fatalf("unexpected endpoints: %v -> %v", wc.StartWeight, wc.EndWeight)
	}
	if wc.MinWeight != 67.0 || wc.MaxWeight != 70.0 {
		t.Fatalf("unexpected range: %v - %v", wc.MinWeight, wc.MaxWeight)
	}
	if stats.DateRange.Days != 30 {
		t.Fatalf("expected 30 days, got %d", stats.DateRange.Days)
	}
}

func TestSummarize_OptionalDeltaNeedsBothEndpoints(t *testing.T) {
	// Body fat only on the interior rows: two observations exist, but the
	// positional endpoints are missing, so no delta is emitted.
	records := []*types.ScanRecord{
		scanOn(0, 70),
		scanOn(10, 69),
		scanOn(20, 68),
		scanOn(30, 67),
	}
	records[1].BodyFatPercentage = fptr(22.0)
	records[2].BodyFatPercentage = fptr(21.0)

	stats := discardStatsService(t).Summarize(records)
	if stats.BodyFatChange != nil {
		t.Fatalf("expected nil body fat change when endpoints are missing, got %+v", stats.BodyFatChange)
	}
	if stats.WeightChange == nil {
		t.Fatalf("weight change should still be present")
	}
}

func TestSummarize_OptionalDeltaIgnoresInteriorGaps(t *testing.T) {
	records := []*types.ScanRecord{
		scanOn(0, 70),
		scanOn(10, 69),
		scanOn(30, 67),
	}
	records[0].MuscleMass = fptr(30.0)
	records[2].MuscleMass = fptr(31.5)

	stats := discardStatsService(t).Summarize(records)
	mc := stats.MuscleChange
	if mc == nil {
		t.Fatalf("expected muscle change with both endpoints present")
	}
	if mc.TotalKg != 1.5 || mc.StartMuscle != 30.0 || mc.EndMuscle != 31.5 {
		t.Fatalf("unexpected muscle change: %+v", mc)
	}
}

func TestSummarize_SingleObservationIsNotADelta(t *testing.T) {
	records := []*types.ScanRecord{
		scanOn(0, 70),
		scanOn(30, 67),
	}
	records[0].BMI = fptr(23.0)

	stats := discardStatsService(t).Summarize(records)
	if stats.BMIChange != nil {
		t.Fatalf("expected nil BMI change with a single observation, got %+v", stats.BMIChange)
	}
}

func TestRound1_HalfToEven(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.25, 0.2},
		{0.35, 0.4},
		{-0.25, -0.2},
		{1.25, 1.2},
		{1.26, 1.3},
	}
	for _, c := range cases {
		if got := round1(c.in); got != c.want {
			t.Fatalf("round1(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
