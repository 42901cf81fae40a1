package services

import (
  "bytes"
  "fmt"
  "image/color"
  "math"
  "os"
  "time"

  "github.com/fogleman/gg"
  "github.com/golang/freetype/truetype"
  "golang.org/x/image/font"

  "github.com/yungbote/bodyscan-backend/internal/logger"
  errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
)

// ChartService renders the report's chart PNGs from shaped chart data. The
// report assembler treats the outputs as opaque image blobs.
type ChartService interface {
  SummaryDashboard(ts []TimeSeriesRow, stats SummaryStatistics) (bytes.Buffer, error)
  WeightProgression(ts []TimeSeriesRow) (bytes.Buffer, error)
  BodyComposition(ts []TimeSeriesRow) (bytes.Buffer, error)
  HealthMetrics(ts []TimeSeriesRow) (bytes.Buffer, error)
  BodyMetrics(ts []TimeSeriesRow) (bytes.Buffer, error)
  ControlRecommendations(ts []TimeSeriesRow) (bytes.Buffer, error)
  AdvancedComposition(ts []TimeSeriesRow) (bytes.Buffer, error)
  ProgressComparison(rows []ComparisonRow) (bytes.Buffer, error)
  SegmentalAnalysis(history []SegmentalRow, latest []SegmentalValue) (bytes.Buffer, error)
}

type chartService struct {
  log   *logger.Logger
  style ChartStyle

  labelFace font.Face
  titleFace font.Face
}

func NewChartService(log *logger.Logger, style ChartStyle) (ChartService, error) {
  serviceLog := log.With("service", "ChartService")

  svc := &chartService{log: serviceLog, style: style}
  if style.FontPath != "" {
    labelFace, err := loadChartFontFace(style.FontPath, 14)
    if err != nil {
      return nil, fmt.Errorf("could not load chart font: %w", err)
    }
    titleFace, err := loadChartFontFace(style.FontPath, 20)
    if err != nil {
      return nil, fmt.Errorf("could not load chart font: %w", err)
    }
    svc.labelFace = labelFace
    svc.titleFace = titleFace
  }
  return svc, nil
}

func loadChartFontFace(fontPath string, size float64) (font.Face, error) {
  fontBytes, err := os.ReadFile(fontPath)
  if err != nil {
    return nil, fmt.Errorf("failed to read font file: %w", err)
  }
  parsedFont, err := truetype.Parse(fontBytes)
  if err != nil {
    return nil, fmt.Errorf("failed to parse TTF: %w", err)
  }
  face := truetype.NewFace(parsedFont, &truetype.Options{
    Size:    size,
    DPI:     72,
    Hinting: font.HintingNone,
  })
  return face, nil
}

// -------------------- Series plumbing --------------------

type chartPoint struct {
  t time.Time
  v float64
}

type chartSeries struct {
  label  string
  color  color.NRGBA
  dashed bool
  points []chartPoint
}

func collectSeries(ts []TimeSeriesRow, label string, c color.NRGBA, get func(TimeSeriesRow) *float64) chartSeries {
  s := chartSeries{label: label, color: c}
  for _, row := range ts {
    if v := get(row); v != nil {
      s.points = append(s.points, chartPoint{t: row.ScanDate, v: *v})
    }
  }
  return s
}

func collectSegmental(history []SegmentalRow, label string, c color.NRGBA, dashed bool, get func(SegmentalRow) *float64) chartSeries {
  s := chartSeries{label: label, color: c, dashed: dashed}
  for _, row := range history {
    if v := get(row); v != nil {
      s.points = append(s.points, chartPoint{t: row.ScanDate, v: *v})
    }
  }
  return s
}

func nonEmpty(series []chartSeries) []chartSeries {
  var out []chartSeries
  for _, s := range series {
    if len(s.points) > 0 {
      out = append(out, s)
    }
  }
  return out
}

// -------------------- Panel drawing --------------------

func (cs *chartService) setLabelFont(dc *gg.Context) {
  if cs.labelFace != nil {
    dc.SetFontFace(cs.labelFace)
  }
}

func (cs *chartService) setTitleFont(dc *gg.Context) {
  if cs.titleFace != nil {
    dc.SetFontFace(cs.titleFace)
  }
}

// drawLinePanel draws one titled line-chart panel inside the given rectangle.
// Gaps between observations are connected; a missing value simply has no
// point, matching how the shaper leaves nil values out of each series.
func (cs *chartService) drawLinePanel(dc *gg.Context, x, y, w, h float64, title string, series []chartSeries) {
  style := cs.style
  series = nonEmpty(series)

  dc.SetColor(style.PanelFill)
  dc.DrawRectangle(x, y, w, h)
  dc.Fill()

  cs.setTitleFont(dc)
  dc.SetColor(style.TextColor)
  dc.DrawStringAnchored(title, x+w/2, y+16, 0.5, 0.5)
  cs.setLabelFont(dc)

  const padLeft, padRight, padTop, padBottom = 64.0, 16.0, 40.0, 34.0
  plotX := x + padLeft
  plotY := y + padTop
  plotW := w - padLeft - padRight
  plotH := h - padTop - padBottom

  if len(series) == 0 {
    dc.SetColor(style.Light)
    dc.DrawStringAnchored("no data available", x+w/2, y+h/2, 0.5, 0.5)
    return
  }

  tMin, tMax := series[0].points[0].t, series[0].points[0].t
  vMin, vMax := series[0].points[0].v, series[0].points[0].v
  for _, s := range series {
    for _, p := range s.points {
      if p.t.Before(tMin) {
        tMin = p.t
      }
      if p.t.After(tMax) {
        tMax = p.t
      }
      vMin = math.Min(vMin, p.v)
      vMax = math.Max(vMax, p.v)
    }
  }
  if vMax == vMin {
    vMax += 1
    vMin -= 1
  }
  vPad := (vMax - vMin) * 0.1
  vMin -= vPad
  vMax += vPad
  tSpan := tMax.Sub(tMin)
  if tSpan <= 0 {
    tSpan = 24 * time.Hour
  }

  toX := func(t time.Time) float64 {
    return plotX + plotW*float64(t.Sub(tMin))/float64(tSpan)
  }
  toY := func(v float64) float64 {
    return plotY + plotH - plotH*(v-vMin)/(vMax-vMin)
  }

  // Horizontal grid with value labels
  dc.SetLineWidth(1)
  for i := 0; i <= 4; i++ {
    gy := plotY + plotH*float64(i)/4
    gv := vMax - (vMax-vMin)*float64(i)/4
    dc.SetColor(style.GridColor)
    dc.DrawLine(plotX, gy, plotX+plotW, gy)
    dc.Stroke()
    dc.SetColor(style.TextColor)
    dc.DrawStringAnchored(fmt.Sprintf("%.1f", gv), plotX-8, gy, 1, 0.5)
  }

  // Date labels at the domain edges and midpoint
  dc.SetColor(style.TextColor)
  for _, frac := range []float64{0, 0.5, 1} {
    t := tMin.Add(time.Duration(float64(tSpan) * frac))
    dc.DrawStringAnchored(t.Format("2006-01-02"), plotX+plotW*frac, plotY+plotH+14, 0.5, 0.5)
  }

  for _, s := range series {
    dc.SetColor(s.color)
    dc.SetLineWidth(2)
    if s.dashed {
      dc.SetDash(6, 4)
    } else {
      dc.SetDash()
    }
    for i := 1; i < len(s.points); i++ {
      a, b := s.points[i-1], s.points[i]
      dc.DrawLine(toX(a.t), toY(a.v), toX(b.t), toY(b.v))
      dc.Stroke()
    }
    dc.SetDash()
    for _, p := range s.points {
      dc.DrawCircle(toX(p.t), toY(p.v), 3)
      dc.Fill()
    }
  }

  // Legend across the top of the plot area
  lx := plotX
  for _, s := range series {
    dc.SetColor(s.color)
    dc.DrawRectangle(lx, plotY-12, 10, 10)
    dc.Fill()
    dc.SetColor(style.TextColor)
    dc.DrawStringAnchored(s.label, lx+14, plotY-7, 0, 0.5)
    tw, _ := dc.MeasureString(s.label)
    lx += 14 + tw + 18
  }
}

type barGroup struct {
  category string
  values   []float64 // one per sub-series
}

// drawBarPanel draws grouped bars, one group per category.
func (cs *chartService) drawBarPanel(dc *gg.Context, x, y, w, h float64, title string, subLabels []string, subColors []color.NRGBA, groups []barGroup) {
  style := cs.style

  dc.SetColor(style.PanelFill)
  dc.DrawRectangle(x, y, w, h)
  dc.Fill()

  cs.setTitleFont(dc)
  dc.SetColor(style.TextColor)
  dc.DrawStringAnchored(title, x+w/2, y+16, 0.5, 0.5)
  cs.setLabelFont(dc)

  const padLeft, padRight, padTop, padBottom = 64.0, 16.0, 40.0, 40.0
  plotX := x + padLeft
  plotY := y + padTop
  plotW := w - padLeft - padRight
  plotH := h - padTop - padBottom

  if len(groups) == 0 {
    dc.SetColor(style.Light)
    dc.DrawStringAnchored("no data available", x+w/2, y+h/2, 0.5, 0.5)
    return
  }

  vMin, vMax := 0.0, 0.0
  for _, g := range groups {
    for _, v := range g.values {
      vMin = math.Min(vMin, v)
      vMax = math.Max(vMax, v)
    }
  }
  if vMax == vMin {
    vMax = vMin + 1
  }
  span := vMax - vMin
  vMax += span * 0.1
  if vMin < 0 {
    vMin -= span * 0.1
  }

  toY := func(v float64) float64 {
    return plotY + plotH - plotH*(v-vMin)/(vMax-vMin)
  }
  zeroY := toY(math.Max(vMin, 0))

  dc.SetLineWidth(1)
  for i := 0; i <= 4; i++ {
    gy := plotY + plotH*float64(i)/4
    gv := vMax - (vMax-vMin)*float64(i)/4
    dc.SetColor(style.GridColor)
    dc.DrawLine(plotX, gy, plotX+plotW, gy)
    dc.Stroke()
    dc.SetColor(style.TextColor)
    dc.DrawStringAnchored(fmt.Sprintf("%.1f", gv), plotX-8, gy, 1, 0.5)
  }

  groupW := plotW / float64(len(groups))
  barW := groupW * 0.7 / float64(len(subLabels))

  for gi, g := range groups {
    gx := plotX + groupW*float64(gi) + groupW*0.15
    for si, v := range g.values {
      if si >= len(subColors) {
        break
      }
      bx := gx + barW*float64(si)
      by := toY(v)
      dc.SetColor(subColors[si])
      if v >= 0 {
        dc.DrawRectangle(bx, by, barW-2, zeroY-by)
      } else {
        dc.DrawRectangle(bx, zeroY, barW-2, by-zeroY)
      }
      dc.Fill()
    }
    dc.SetColor(style.TextColor)
    dc.DrawStringAnchored(g.category, plotX+groupW*float64(gi)+groupW/2, plotY+plotH+16, 0.5, 0.5)
  }

  lx := plotX
  for i, label := range subLabels {
    if i >= len(subColors) {
      break
    }
    dc.SetColor(subColors[i])
    dc.DrawRectangle(lx, plotY-12, 10, 10)
    dc.Fill()
    dc.SetColor(style.TextColor)
    dc.DrawStringAnchored(label, lx+14, plotY-7, 0, 0.5)
    tw, _ := dc.MeasureString(label)
    lx += 14 + tw + 18
  }
}

func (cs *chartService) newCanvas(w, h int) *gg.Context {
  dc := gg.NewContext(w, h)
  dc.SetColor(cs.style.Background)
  dc.Clear()
  cs.setLabelFont(dc)
  return dc
}

func encodeChart(dc *gg.Context) (bytes.Buffer, error) {
  var buf bytes.Buffer
  if err := dc.EncodePNG(&buf); err != nil {
    return buf, fmt.Errorf("failed to encode PNG: %w", err)
  }
  return buf, nil
}

// -------------------- Chart builders --------------------

func (cs *chartService) SummaryDashboard(ts []TimeSeriesRow, stats SummaryStatistics) (bytes.Buffer, error) {
  if len(ts) == 0 {
    return bytes.Buffer{}, fmt.Errorf("dashboard needs at least one row: %w", errs.ErrInsufficientData)
  }
  style := cs.style
  w, h := style.Width, style.Width*3/4
  dc := cs.newCanvas(w, h)

  halfW := float64(w) / 2
  halfH := float64(h) / 2
  cs.drawLinePanel(dc, 0, 0, halfW-4, halfH-4, "Weight (kg)", []chartSeries{
    collectSeries(ts, "Weight", style.Primary, func(r TimeSeriesRow) *float64 { return r.Weight }),
  })
  cs.drawLinePanel(dc, halfW+4, 0, halfW-4, halfH-4, "Muscle Mass (kg)", []chartSeries{
    collectSeries(ts, "Muscle Mass", style.Success, func(r TimeSeriesRow) *float64 { return r.MuscleMass }),
  })
  cs.drawLinePanel(dc, 0, halfH+4, halfW-4, halfH-4, "Body Fat %", []chartSeries{
    collectSeries(ts, "Body Fat %", style.Secondary, func(r TimeSeriesRow) *float64 { return r.BodyFatPercentage }),
  })
  cs.drawLinePanel(dc, halfW+4, halfH+4, halfW-4, halfH-4, "BMI", []chartSeries{
    collectSeries(ts, "BMI", style.Accent, func(r TimeSeriesRow) *float64 { return r.BMI }),
  })

  return encodeChart(dc)
}

func (cs *chartService) WeightProgression(ts []TimeSeriesRow) (bytes.Buffer, error) {
  style := cs.style
  dc := cs.newCanvas(style.Width, style.Height)
  cs.drawLinePanel(dc, 0, 0, float64(style.Width), float64(style.Height), "Weight Progression (kg)", []chartSeries{
    collectSeries(ts, "Weight", style.Primary, func(r TimeSeriesRow) *float64 { return r.Weight }),
  })
  return encodeChart(dc)
}

func (cs *chartService) BodyComposition(ts []TimeSeriesRow) (bytes.Buffer, error) {
  style := cs.style
  w, h := style.Width, style.Height*2
  dc := cs.newCanvas(w, h)
  halfH := float64(h) / 2
  cs.drawLinePanel(dc, 0, 0, float64(w), halfH-4, "Mass Composition (kg)", []chartSeries{
    collectSeries(ts, "Muscle Mass", style.Success, func(r TimeSeriesRow) *float64 { return r.MuscleMass }),
    collectSeries(ts, "Body Fat Mass", style.Secondary, func(r TimeSeriesRow) *float64 { return r.BodyFatMass }),
  })
  cs.drawLinePanel(dc, 0, halfH+4, float64(w), halfH-4, "Body Fat Percentage", []chartSeries{
    collectSeries(ts, "Body Fat %", style.Accent, func(r TimeSeriesRow) *float64 { return r.BodyFatPercentage }),
  })
  return encodeChart(dc)
}

func (cs *chartService) HealthMetrics(ts []TimeSeriesRow) (bytes.Buffer, error) {
  style := cs.style
  w, h := style.Width, style.Width*2/3
  dc := cs.newCanvas(w, h)
  halfW := float64(w) / 2
  halfH := float64(h) / 2
  cs.drawLinePanel(dc, 0, 0, halfW-4, halfH-4, "BMI", []chartSeries{
    collectSeries(ts, "BMI", style.Primary, func(r TimeSeriesRow) *float64 { return r.BMI }),
  })
  cs.drawLinePanel(dc, halfW+4, 0, halfW-4, halfH-4, "BMR (kcal)", []chartSeries{
    collectSeries(ts, "BMR", style.Accent, func(r TimeSeriesRow) *float64 { return r.BMR }),
  })
  cs.drawLinePanel(dc, 0, halfH+4, halfW-4, halfH-4, "Visceral Fat Level", []chartSeries{
    collectSeries(ts, "Visceral Fat", style.Secondary, func(r TimeSeriesRow) *float64 { return r.VisceralFatLevel }),
  })
  cs.drawLinePanel(dc, halfW+4, halfH+4, halfW-4, halfH-4, "Body Score", []chartSeries{
    collectSeries(ts, "Score", style.Info, func(r TimeSeriesRow) *float64 { return r.BodyScore }),
  })
  return encodeChart(dc)
}

func (cs *chartService) BodyMetrics(ts []TimeSeriesRow) (bytes.Buffer, error) {
  style := cs.style
  w, h := style.Width, style.Height
  dc := cs.newCanvas(w, h)
  halfW := float64(w) / 2
  cs.drawLinePanel(dc, 0, 0, halfW-4, float64(h), "Waist-Hip Ratio", []chartSeries{
    collectSeries(ts, "WHR", style.Info, func(r TimeSeriesRow) *float64 { return r.WHR }),
  })
  cs.drawLinePanel(dc, halfW+4, 0, halfW-4, float64(h), "Total Body Water (L)", []chartSeries{
    collectSeries(ts, "TBW", style.Primary, func(r TimeSeriesRow) *float64 { return r.TotalBodyWater }),
  })
  return encodeChart(dc)
}

func (cs *chartService) ControlRecommendations(ts []TimeSeriesRow) (bytes.Buffer, error) {
  style := cs.style
  dc := cs.newCanvas(style.Width, style.Height)
  cs.drawLinePanel(dc, 0, 0, float64(style.Width), float64(style.Height), "Control Recommendations (kg)", []chartSeries{
    collectSeries(ts, "Muscle Control", style.Success, func(r TimeSeriesRow) *float64 { return r.MuscleControl }),
    collectSeries(ts, "Fat Control", style.Secondary, func(r TimeSeriesRow) *float64 { return r.FatControl }),
  })
  return encodeChart(dc)
}

func (cs *chartService) AdvancedComposition(ts []TimeSeriesRow) (bytes.Buffer, error) {
  style := cs.style
  w, h := style.Width, style.Height
  dc := cs.newCanvas(w, h)
  halfW := float64(w) / 2
  cs.drawLinePanel(dc, 0, 0, halfW-4, float64(h), "Percent Body Fat", []chartSeries{
    collectSeries(ts, "PBF", style.Secondary, func(r TimeSeriesRow) *float64 { return r.PBF }),
  })
  cs.drawLinePanel(dc, halfW+4, 0, halfW-4, float64(h), "Fat-Free Mass (kg)", []chartSeries{
    collectSeries(ts, "FFM", style.Success, func(r TimeSeriesRow) *float64 { return r.FatFreeMass }),
  })
  return encodeChart(dc)
}

func (cs *chartService) ProgressComparison(rows []ComparisonRow) (bytes.Buffer, error) {
  if len(rows) == 0 {
    return bytes.Buffer{}, fmt.Errorf("comparison chart needs at least one row: %w", errs.ErrInsufficientData)
  }
  style := cs.style
  dc := cs.newCanvas(style.Width, style.Height)

  groups := make([]barGroup, 0, len(rows))
  for _, row := range rows {
    groups = append(groups, barGroup{category: row.Metric, values: []float64{row.ChangePercent}})
  }
  cs.drawBarPanel(dc, 0, 0, float64(style.Width), float64(style.Height),
    "Change Since First Scan (%)",
    []string{"% Change"}, []color.NRGBA{style.Primary}, groups)
  return encodeChart(dc)
}

func (cs *chartService) SegmentalAnalysis(history []SegmentalRow, latest []SegmentalValue) (bytes.Buffer, error) {
  if len(history) == 0 {
    return bytes.Buffer{}, fmt.Errorf("segmental chart needs history rows: %w", errs.ErrInsufficientData)
  }
  style := cs.style
  w, h := style.Width, style.Width*3/4
  dc := cs.newCanvas(w, h)
  halfW := float64(w) / 2
  halfH := float64(h) / 2

  cs.drawLinePanel(dc, 0, 0, halfW-4, halfH-4, "Arms (kg)", []chartSeries{
    collectSegmental(history, "R Arm Lean", style.Primary, false, func(r SegmentalRow) *float64 { return r.RightArmLean }),
    collectSegmental(history, "L Arm Lean", style.Accent, false, func(r SegmentalRow) *float64 { return r.LeftArmLean }),
    collectSegmental(history, "R Arm Fat", style.Primary, true, func(r SegmentalRow) *float64 { return r.RightArmFat }),
    collectSegmental(history, "L Arm Fat", style.Accent, true, func(r SegmentalRow) *float64 { return r.LeftArmFat }),
  })
  cs.drawLinePanel(dc, halfW+4, 0, halfW-4, halfH-4, "Legs (kg)", []chartSeries{
    collectSegmental(history, "R Leg Lean", style.Success, false, func(r SegmentalRow) *float64 { return r.RightLegLean }),
    collectSegmental(history, "L Leg Lean", style.Info, false, func(r SegmentalRow) *float64 { return r.LeftLegLean }),
    collectSegmental(history, "R Leg Fat", style.Success, true, func(r SegmentalRow) *float64 { return r.RightLegFat }),
    collectSegmental(history, "L Leg Fat", style.Info, true, func(r SegmentalRow) *float64 { return r.LeftLegFat }),
  })
  cs.drawLinePanel(dc, 0, halfH+4, halfW-4, halfH-4, "Trunk (kg)", []chartSeries{
    collectSegmental(history, "Trunk Lean", style.Dark, false, func(r SegmentalRow) *float64 { return r.TrunkLean }),
    collectSegmental(history, "Trunk Fat", style.Secondary, true, func(r SegmentalRow) *float64 { return r.TrunkFat }),
  })

  // Bottom right: latest lean vs fat per body part
  byPart := map[string]*barGroup{}
  var order []string
  for _, v := range latest {
    g, ok := byPart[v.BodyPart]
    if !ok {
      g = &barGroup{category: v.BodyPart, values: []float64{0, 0}}
      byPart[v.BodyPart] = g
      order = append(order, v.BodyPart)
    }
    if v.MeasurementType == "Lean Mass" {
      g.values[0] = v.Value
    } else {
      g.values[1] = v.Value
    }
  }
  groups := make([]barGroup, 0, len(order))
  for _, part := range order {
    groups = append(groups, *byPart[part])
  }
  cs.drawBarPanel(dc, halfW+4, halfH+4, halfW-4, halfH-4, "Latest Scan (kg)",
    []string{"Lean Mass", "Fat Mass"},
    []color.NRGBA{style.Success, style.Secondary},
    groups)

  return encodeChart(dc)
}
