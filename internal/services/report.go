package services

import (
  "bytes"
  "context"
  "fmt"
  "sync/atomic"
  "time"
  "github.com/jung-kurt/gofpdf"
  "github.com/yungbote/bodyscan-backend/internal/logger"
  errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
  "github.com/yungbote/bodyscan-backend/internal/repos"
  "github.com/yungbote/bodyscan-backend/internal/types"
)

type ReportOptions struct {
  OutputPath string
  StartDate  *time.Time
  EndDate    *time.Time
  Title      string
}

// ReportService assembles the progress report PDF. Section order is fixed;
// each section degrades to a "no data available" placeholder when its
// projection is empty instead of failing the whole document. The only hard
// failure is an empty filtered record set.
type ReportService interface {
  Generate(ctx context.Context, opts ReportOptions) (string, error)
}

type reportService struct {
  log        *logger.Logger
  recordRepo repos.ScanRecordRepo
  stats      StatsService
  chartData  ChartDataService
  charts     ChartService
  insights   InsightsService
}

func NewReportService(log *logger.Logger, recordRepo repos.ScanRecordRepo, stats StatsService, chartData ChartDataService, charts ChartService, insights InsightsService) ReportService {
  return &reportService{
    log:        log.With("service", "ReportService"),
    recordRepo: recordRepo,
    stats:      stats,
    chartData:  chartData,
    charts:     charts,
    insights:   insights,
  }
}

const (
  pageMargin   = 15.0
  contentWidth = 180.0 // A4 width minus margins
)

func (s *reportService) Generate(ctx context.Context, opts ReportOptions) (string, error) {
  records, err := s.recordRepo.Query(ctx, nil, opts.StartDate, opts.EndDate)
  if err != nil {
    return "", fmt.Errorf("query records: %w", err)
  }
  if len(records) == 0 {
    return "", fmt.Errorf("no data available for the specified time range: %w", errs.ErrInsufficientData)
  }

  outputPath := opts.OutputPath
  if outputPath == "" {
    timestamp := time.Now().Format("20060102_150405")
    if opts.StartDate != nil && opts.EndDate != nil {
      outputPath = fmt.Sprintf("scan_report_%s_to_%s_%s.pdf",
        opts.StartDate.Format("20060102"), opts.EndDate.Format("20060102"), timestamp)
    } else {
      outputPath = fmt.Sprintf("scan_report_%s.pdf", timestamp)
    }
  }

  stats := s.stats.Summarize(records)
  ts := s.chartData.TimeSeries(records)
  segHistory := s.chartData.SegmentalHistory(records)
  latestSeg := s.chartData.LatestSegmental(records)
  comparison, err := s.chartData.Comparison(records)
  if err != nil {
    // Signaled zero-baseline; the comparison section degrades, the rest of
    // the report still renders.
    s.log.Warn("Comparison table unavailable", "error", err)
    comparison = nil
  }

  pdf := gofpdf.New("P", "mm", "A4", "")
  pdf.SetMargins(pageMargin, pageMargin, pageMargin)
  pdf.SetAutoPageBreak(true, 12)
  pdf.AddPage()

  s.addTitleSection(pdf, records, stats, opts)
  s.addDashboardSection(pdf, ts, stats)
  pdf.AddPage()
  s.addWeightSection(pdf, ts, stats)
  s.addCompositionSection(pdf, ts, stats)
  pdf.AddPage()
  s.addHealthMetricsSection(pdf, ts)
  s.addBodyMetricsSection(pdf, ts)
  pdf.AddPage()
  s.addControlRecommendationsSection(pdf, ts)
  s.addAdvancedCompositionSection(pdf, ts)
  pdf.AddPage()
  s.addComparisonSection(pdf, comparison)
  s.addSegmentalSection(pdf, segHistory, latestSeg)
  pdf.AddPage()
  s.addInsightsSection(pdf, records, stats)

  if err := pdf.OutputFileAndClose(outputPath); err != nil {
    return "", fmt.Errorf("write report pdf: %w", err)
  }

  s.log.Info("Report generated", "path", outputPath, "scans", len(records))
  return outputPath, nil
}

// -------------------- Section helpers --------------------

func (s *reportService) sectionHeader(pdf *gofpdf.Fpdf, title string) {
  pdf.SetFont("Helvetica", "B", 16)
  pdf.SetTextColor(0xA2, 0x3B, 0x72)
  pdf.CellFormat(contentWidth, 10, title, "", 1, "L", false, 0, "")
  pdf.SetTextColor(0x2C, 0x3E, 0x50)
  pdf.Ln(2)
}

func (s *reportService) bodyText(pdf *gofpdf.Fpdf, text string) {
  pdf.SetFont("Helvetica", "", 10)
  pdf.MultiCell(contentWidth, 5, text, "", "L", false)
  pdf.Ln(1)
}

func (s *reportService) insightText(pdf *gofpdf.Fpdf, text string) {
  pdf.SetFont("Helvetica", "", 10)
  pdf.SetX(pageMargin + 6)
  pdf.MultiCell(contentWidth-6, 5, "- "+text, "", "L", false)
}

func (s *reportService) placeholder(pdf *gofpdf.Fpdf, text string) {
  pdf.SetFont("Helvetica", "I", 10)
  pdf.SetTextColor(0x80, 0x80, 0x80)
  pdf.CellFormat(contentWidth, 8, text, "", 1, "L", false, 0, "")
  pdf.SetTextColor(0x2C, 0x3E, 0x50)
  pdf.Ln(2)
}

var chartImageCounter atomic.Int64

// embedChart places a rendered PNG at the current position, scaled to the
// content width. Image names must be unique per registration.
func (s *reportService) embedChart(pdf *gofpdf.Fpdf, chart bytes.Buffer, heightMM float64) {
  name := fmt.Sprintf("chart_%d", chartImageCounter.Add(1))
  opts := gofpdf.ImageOptions{ImageType: "PNG"}
  pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(chart.Bytes()))
  pdf.ImageOptions(name, pageMargin, pdf.GetY(), contentWidth, heightMM, true, opts, 0, "")
  pdf.Ln(3)
}

// renderChartInto renders a chart and embeds it, degrading to a placeholder
// when the renderer reports insufficient data.
func (s *reportService) renderChartInto(pdf *gofpdf.Fpdf, heightMM float64, render func() (bytes.Buffer, error)) {
  chart, err := render()
  if err != nil {
    s.log.Warn("Chart rendering skipped", "error", err)
    s.placeholder(pdf, "No data available for this section.")
    return
  }
  s.embedChart(pdf, chart, heightMM)
}

// -------------------- Sections --------------------

func (s *reportService) addTitleSection(pdf *gofpdf.Fpdf, records []*types.ScanRecord, stats SummaryStatistics, opts ReportOptions) {
  title := opts.Title
  if title == "" {
    title = "Body Composition Progress Report"
  }
  pdf.SetFont("Helvetica", "B", 24)
  pdf.SetTextColor(0x2E, 0x86, 0xAB)
  pdf.CellFormat(contentWidth, 14, title, "", 1, "C", false, 0, "")
  pdf.SetTextColor(0x2C, 0x3E, 0x50)

  pdf.SetFont("Helvetica", "", 10)
  pdf.CellFormat(contentWidth, 6, "Report generated on "+time.Now().Format("January 2, 2006 at 3:04 PM"), "", 1, "C", false, 0, "")
  pdf.Ln(4)

  rangeText := "Data range: "
  switch {
  case opts.StartDate != nil || opts.EndDate != nil:
    if opts.StartDate != nil {
      rangeText += opts.StartDate.Format("January 2, 2006")
    } else {
      rangeText += "Beginning"
    }
    rangeText += " to "
    if opts.EndDate != nil {
      rangeText += opts.EndDate.Format("January 2, 2006")
    } else {
      rangeText += "Present"
    }
  case stats.DateRange != nil:
    rangeText += fmt.Sprintf("%s to %s",
      stats.DateRange.Start.Format("January 2, 2006"),
      stats.DateRange.End.Format("January 2, 2006"))
  default:
    rangeText += "n/a"
  }
  pdf.CellFormat(contentWidth, 6, rangeText, "", 1, "C", false, 0, "")
  pdf.Ln(6)

  s.sectionHeader(pdf, "Summary Statistics")

  rows := [][2]string{{"Total Scans", fmt.Sprintf("%d", stats.TotalScans)}}
  if stats.DateRange != nil {
    rows = append(rows, [2]string{"Tracking Period", fmt.Sprintf("%d days", stats.DateRange.Days)})
  }
  if wc := stats.WeightChange; wc != nil {
    rows = append(rows, [2]string{"Weight Change", fmt.Sprintf("%+.1f kg", wc.TotalKg)})
    rows = append(rows, [2]string{"Weight Range", fmt.Sprintf("%.1f - %.1f kg", wc.MinWeight, wc.MaxWeight)})
  }
  if bc := stats.BodyFatChange; bc != nil {
    rows = append(rows, [2]string{"Body Fat Change", fmt.Sprintf("%+.1f%%", bc.TotalPercent)})
  }
  if mc := stats.MuscleChange; mc != nil {
    rows = append(rows, [2]string{"Muscle Mass Change", fmt.Sprintf("%+.1f kg", mc.TotalKg)})
  }
  if bmi := stats.BMIChange; bmi != nil {
    rows = append(rows, [2]string{"BMI Change", fmt.Sprintf("%+.1f", bmi.Total)})
  }

  pdf.SetFont("Helvetica", "", 10)
  for i, row := range rows {
    fill := i%2 == 1
    pdf.SetFillColor(0xF9, 0xF9, 0xF9)
    pdf.CellFormat(90, 8, row[0], "1", 0, "L", fill, 0, "")
    pdf.CellFormat(60, 8, row[1], "1", 1, "L", fill, 0, "")
  }
  pdf.Ln(4)
}

func (s *reportService) addDashboardSection(pdf *gofpdf.Fpdf, ts []TimeSeriesRow, stats SummaryStatistics) {
  s.sectionHeader(pdf, "Progress Dashboard")
  s.renderChartInto(pdf, 130, func() (bytes.Buffer, error) { return s.charts.SummaryDashboard(ts, stats) })
}

func (s *reportService) addWeightSection(pdf *gofpdf.Fpdf, ts []TimeSeriesRow, stats SummaryStatistics) {
  s.sectionHeader(pdf, "Weight Progression")
  s.renderChartInto(pdf, 85, func() (bytes.Buffer, error) { return s.charts.WeightProgression(ts) })

  if wc := stats.WeightChange; wc != nil {
    s.bodyText(pdf, "Weight Analysis:")
    s.insightText(pdf, fmt.Sprintf("Your weight changed by %+.1f kg from %.1f kg to %.1f kg.", wc.TotalKg, wc.StartWeight, wc.EndWeight))
    s.insightText(pdf, fmt.Sprintf("During this period, your weight ranged from %.1f kg to %.1f kg.", wc.MinWeight, wc.MaxWeight))
  }
  pdf.Ln(4)
}

func (s *reportService) addCompositionSection(pdf *gofpdf.Fpdf, ts []TimeSeriesRow, stats SummaryStatistics) {
  s.sectionHeader(pdf, "Body Composition")
  s.renderChartInto(pdf, 120, func() (bytes.Buffer, error) { return s.charts.BodyComposition(ts) })

  s.bodyText(pdf, "Body Composition Analysis:")
  if mc := stats.MuscleChange; mc != nil {
    s.insightText(pdf, fmt.Sprintf("Muscle mass changed by %+.1f kg from %.1f kg to %.1f kg.", mc.TotalKg, mc.StartMuscle, mc.EndMuscle))
  }
  if bc := stats.BodyFatChange; bc != nil {
    s.insightText(pdf, fmt.Sprintf("Body fat percentage changed by %+.1f%% from %.1f%% to %.1f%%.", bc.TotalPercent, bc.StartBF, bc.EndBF))
  }
}

func (s *reportService) addHealthMetricsSection(pdf *gofpdf.Fpdf, ts []TimeSeriesRow) {
  s.sectionHeader(pdf, "Health Metrics")
  s.renderChartInto(pdf, 110, func() (bytes.Buffer, error) { return s.charts.HealthMetrics(ts) })
  pdf.Ln(4)
}

func (s *reportService) addBodyMetricsSection(pdf *gofpdf.Fpdf, ts []TimeSeriesRow) {
  s.sectionHeader(pdf, "Body Metrics - WHR & Body Water")
  s.renderChartInto(pdf, 75, func() (bytes.Buffer, error) { return s.charts.BodyMetrics(ts) })
  s.bodyText(pdf, "Waist-Hip Ratio (WHR) is an important indicator of body fat distribution and health risks. Total body water reflects hydration and overall body composition.")
}

func (s *reportService) addControlRecommendationsSection(pdf *gofpdf.Fpdf, ts []TimeSeriesRow) {
  s.sectionHeader(pdf, "Control Recommendations")
  s.renderChartInto(pdf, 85, func() (bytes.Buffer, error) { return s.charts.ControlRecommendations(ts) })
  s.bodyText(pdf, "These are the machine's recommendations for how to improve your body composition. Positive values suggest gaining muscle or losing fat. Zero indicates you're at the ideal target.")
}

func (s *reportService) addAdvancedCompositionSection(pdf *gofpdf.Fpdf, ts []TimeSeriesRow) {
  s.sectionHeader(pdf, "Advanced Body Composition")
  s.renderChartInto(pdf, 75, func() (bytes.Buffer, error) { return s.charts.AdvancedComposition(ts) })
  s.bodyText(pdf, "PBF (Percent Body Fat) and Fat-Free Mass provide additional insights into your body composition. Fat-Free Mass includes muscle, bone, and organs - everything except fat.")
}

func (s *reportService) addComparisonSection(pdf *gofpdf.Fpdf, comparison []ComparisonRow) {
  s.sectionHeader(pdf, "Progress Comparison")
  if len(comparison) == 0 {
    s.placeholder(pdf, "Not enough data for comparison analysis.")
    return
  }
  s.renderChartInto(pdf, 90, func() (bytes.Buffer, error) { return s.charts.ProgressComparison(comparison) })

  pdf.SetFont("Helvetica", "", 10)
  pdf.SetFillColor(0xE8, 0xF4, 0xFD)
  pdf.CellFormat(50, 8, "Metric", "1", 0, "L", true, 0, "")
  pdf.CellFormat(32, 8, "First", "1", 0, "R", true, 0, "")
  pdf.CellFormat(32, 8, "Last", "1", 0, "R", true, 0, "")
  pdf.CellFormat(32, 8, "Change", "1", 0, "R", true, 0, "")
  pdf.CellFormat(34, 8, "Change %", "1", 1, "R", true, 0, "")
  for _, row := range comparison {
    pdf.CellFormat(50, 8, row.Metric, "1", 0, "L", false, 0, "")
    pdf.CellFormat(32, 8, fmt.Sprintf("%.1f", row.FirstScan), "1", 0, "R", false, 0, "")
    pdf.CellFormat(32, 8, fmt.Sprintf("%.1f", row.LastScan), "1", 0, "R", false, 0, "")
    pdf.CellFormat(32, 8, fmt.Sprintf("%+.1f", row.Change), "1", 0, "R", false, 0, "")
    pdf.CellFormat(34, 8, fmt.Sprintf("%+.1f%%", row.ChangePercent), "1", 1, "R", false, 0, "")
  }
  pdf.Ln(4)
}

func (s *reportService) addSegmentalSection(pdf *gofpdf.Fpdf, history []SegmentalRow, latest []SegmentalValue) {
  s.sectionHeader(pdf, "Segmental Analysis - Historical Trends")
  if len(history) == 0 {
    s.placeholder(pdf, "No segmental analysis data available.")
    return
  }
  s.renderChartInto(pdf, 130, func() (bytes.Buffer, error) { return s.charts.SegmentalAnalysis(history, latest) })
  s.bodyText(pdf, "This analysis shows the historical development of lean and fat mass across different body parts over time. Solid lines represent lean mass, dashed lines represent fat mass. The bottom-right chart shows your latest measurements for comparison.")
}

func (s *reportService) addInsightsSection(pdf *gofpdf.Fpdf, records []*types.ScanRecord, stats SummaryStatistics) {
  s.sectionHeader(pdf, "Insights & Recommendations")

  for _, insight := range s.insights.Insights(records, stats) {
    s.insightText(pdf, insight)
  }
  pdf.Ln(4)

  s.bodyText(pdf, "General Recommendations:")
  recommendations := []string{
    "Continue regular scans to track progress consistently",
    "Focus on maintaining muscle mass while managing body fat levels",
    "Consider consulting with a healthcare professional for personalized advice",
    "Combine regular exercise with proper nutrition for optimal results",
    "Monitor trends rather than individual measurements for better insights",
  }
  for _, rec := range recommendations {
    s.insightText(pdf, rec)
  }

  pdf.Ln(6)
  pdf.SetDrawColor(0x80, 0x80, 0x80)
  pdf.Line(pageMargin, pdf.GetY(), pageMargin+contentWidth, pdf.GetY())
  pdf.Ln(3)
  s.bodyText(pdf, "This report was automatically generated from your scan data. Consult with healthcare professionals for medical advice.")
}
