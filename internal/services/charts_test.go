package services

import (
	"bytes"
	"errors"
	"testing"

	errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
	"github.com/yungbote/bodyscan-backend/internal/types"
)

func testChartService(t *testing.T) ChartService {
	t.Helper()
	svc, err := NewChartService(testLogger(t), DefaultChartStyle())
	if err != nil {
		t.Fatalf("init chart service: %v", err)
	}
	return svc
}

func testTimeSeries(t *testing.T) []TimeSeriesRow {
	t.Helper()
	r1 := scanOn(0, 70)
	r1.MuscleMass = fptr(30.0)
	r1.BodyFatPercentage = fptr(22.0)
	r1.BMI = fptr(23.5)
	r2 := scanOn(30, 67)
	r2.MuscleMass = fptr(31.0)
	r2.BodyFatPercentage = fptr(20.5)
	r2.BMI = fptr(22.5)
	return chartData(t).TimeSeries([]*types.ScanRecord{r1, r2})
}

func isPNG(buf bytes.Buffer) bool {
	data := buf.Bytes()
	return len(data) > 8 && bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n"))
}

func TestSummaryDashboard_EmptySeries(t *testing.T) {
	svc := testChartService(t)
	_, err := svc.SummaryDashboard(nil, SummaryStatistics{})
	if !errors.Is(err, errs.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestWeightProgression_RendersPNG(t *testing.T) {
	svc := testChartService(t)
	buf, err := svc.WeightProgression(testTimeSeries(t))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !isPNG(buf) {
		t.Fatalf("output is not a PNG (%d bytes)", buf.Len())
	}
}

func TestSummaryDashboard_RendersPNG(t *testing.T) {
	svc := testChartService(t)
	buf, err := svc.SummaryDashboard(testTimeSeries(t), SummaryStatistics{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !isPNG(buf) {
		t.Fatalf("output is not a PNG (%d bytes)", buf.Len())
	}
}

func TestProgressComparison_EmptyRows(t *testing.T) {
	svc := testChartService(t)
	_, err := svc.ProgressComparison(nil)
	if !errors.Is(err, errs.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestProgressComparison_RendersPNG(t *testing.T) {
	svc := testChartService(t)
	rows := []ComparisonRow{
		{Metric: "Weight", FirstScan: 70, LastScan: 67, Change: -3, ChangePercent: -4.29},
		{Metric: "BMI", FirstScan: 23.5, LastScan: 22.5, Change: -1, ChangePercent: -4.26},
	}
	buf, err := svc.ProgressComparison(rows)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !isPNG(buf) {
		t.Fatalf("output is not a PNG (%d bytes)", buf.Len())
	}
}

func TestSegmentalAnalysis_NeedsHistory(t *testing.T) {
	svc := testChartService(t)
	_, err := svc.SegmentalAnalysis(nil, nil)
	if !errors.Is(err, errs.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}
