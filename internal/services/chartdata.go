package services

import (
  "fmt"
  "time"
  "github.com/yungbote/bodyscan-backend/internal/logger"
  errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
  "github.com/yungbote/bodyscan-backend/internal/types"
)

// TimeSeriesRow is one scan projected onto the tracked metric columns. Missing
// values stay nil; the chart renderer decides how to draw gaps.
type TimeSeriesRow struct {
  ScanDate          time.Time
  Weight            *float64
  MuscleMass        *float64
  BodyFatMass       *float64
  BodyFatPercentage *float64
  BMI               *float64
  BMR               *float64
  VisceralFatLevel  *float64
  TotalBodyWater    *float64
  FatFreeMass       *float64
  BodyScore         *float64
  MuscleControl     *float64
  FatControl        *float64
  WHR               *float64
  PBF               *float64
}

// SegmentalRow is one scan projected onto the ten segmental columns.
type SegmentalRow struct {
  ScanDate     time.Time
  RightArmLean *float64
  LeftArmLean  *float64
  TrunkLean    *float64
  RightLegLean *float64
  LeftLegLean  *float64
  RightArmFat  *float64
  LeftArmFat   *float64
  TrunkFat     *float64
  RightLegFat  *float64
  LeftLegFat   *float64
}

// SegmentalValue is one bar of the latest-scan segmental snapshot.
type SegmentalValue struct {
  BodyPart        string  `json:"body_part"`
  MeasurementType string  `json:"measurement_type"`
  Value           float64 `json:"value"`
}

// ComparisonRow compares a metric between the positional first and last scans.
type ComparisonRow struct {
  Metric        string  `json:"metric"`
  FirstScan     float64 `json:"first_scan"`
  LastScan      float64 `json:"last_scan"`
  Change        float64 `json:"change"`
  ChangePercent float64 `json:"change_percent"`
}

// ChartDataService shapes a retrieved record sequence into the tabular forms
// the chart renderer and report sections need. Pure projections, no store
// access; each projection decides row inclusion independently.
type ChartDataService interface {
  TimeSeries(records []*types.ScanRecord) []TimeSeriesRow
  SegmentalHistory(records []*types.ScanRecord) []SegmentalRow
  LatestSegmental(records []*types.ScanRecord) []SegmentalValue
  Comparison(records []*types.ScanRecord) ([]ComparisonRow, error)
}

type chartDataService struct {
  log *logger.Logger
}

func NewChartDataService(log *logger.Logger) ChartDataService {
  return &chartDataService{log: log.With("service", "ChartDataService")}
}

func (s *chartDataService) TimeSeries(records []*types.ScanRecord) []TimeSeriesRow {
  rows := make([]TimeSeriesRow, 0, len(records))
  for _, r := range records {
    if r.ScanDate.IsZero() {
      continue
    }
    weight := r.Weight
    var score *float64
    if r.BodyScore != nil {
      v := float64(*r.BodyScore)
      score = &v
    }
    rows = append(rows, TimeSeriesRow{
      ScanDate:          r.ScanDate,
      Weight:            &weight,
      MuscleMass:        r.MuscleMass,
      BodyFatMass:       r.BodyFatMass,
      BodyFatPercentage: r.BodyFatPercentage,
      BMI:               r.BMI,
      BMR:               r.BMR,
      VisceralFatLevel:  r.VisceralFatLevel,
      TotalBodyWater:    r.TotalBodyWater,
      FatFreeMass:       r.FatFreeMass,
      BodyScore:         score,
      MuscleControl:     r.MuscleControl,
      FatControl:        r.FatControl,
      WHR:               r.WHR,
      PBF:               r.PBF,
    })
  }
  return rows
}

func (s *chartDataService) SegmentalHistory(records []*types.ScanRecord) []SegmentalRow {
  rows := make([]SegmentalRow, 0, len(records))
  for _, r := range records {
    if !r.HasSegmental() {
      continue
    }
    rows = append(rows, SegmentalRow{
      ScanDate:     r.ScanDate,
      RightArmLean: r.RightArmLean,
      LeftArmLean:  r.LeftArmLean,
      TrunkLean:    r.TrunkLean,
      RightLegLean: r.RightLegLean,
      LeftLegLean:  r.LeftLegLean,
      RightArmFat:  r.RightArmFat,
      LeftArmFat:   r.LeftArmFat,
      TrunkFat:     r.TrunkFat,
      RightLegFat:  r.RightLegFat,
      LeftLegFat:   r.LeftLegFat,
    })
  }
  return rows
}

func (s *chartDataService) LatestSegmental(records []*types.ScanRecord) []SegmentalValue {
  history := s.SegmentalHistory(records)
  if len(history) == 0 {
    return nil
  }
  latest := history[len(history)-1]

  var values []SegmentalValue
  leanParts := []struct {
    name string
    val  *float64
  }{
    {"Right Arm", latest.RightArmLean},
    {"Left Arm", latest.LeftArmLean},
    {"Trunk", latest.TrunkLean},
    {"Right Leg", latest.RightLegLean},
    {"Left Leg", latest.LeftLegLean},
  }
  for _, p := range leanParts {
    if p.val != nil {
      values = append(values, SegmentalValue{BodyPart: p.name, MeasurementType: "Lean Mass", Value: *p.val})
    }
  }
  fatParts := []struct {
    name string
    val  *float64
  }{
    {"Right Arm", latest.RightArmFat},
    {"Left Arm", latest.LeftArmFat},
    {"Trunk", latest.TrunkFat},
    {"Right Leg", latest.RightLegFat},
    {"Left Leg", latest.LeftLegFat},
  }
  for _, p := range fatParts {
    if p.val != nil {
      values = append(values, SegmentalValue{BodyPart: p.name, MeasurementType: "Fat Mass", Value: *p.val})
    }
  }
  return values
}

func (s *chartDataService) Comparison(records []*types.ScanRecord) ([]ComparisonRow, error) {
  if len(records) < 2 {
    return nil, nil
  }

  first := records[0]
  last := records[len(records)-1]

  metrics := []struct {
    name string
    get  func(*types.ScanRecord) *float64
  }{
    {"Weight", func(r *types.ScanRecord) *float64 { return &r.Weight }},
    {"Muscle Mass", func(r *types.ScanRecord) *float64 { return r.MuscleMass }},
    {"Body Fat Mass", func(r *types.ScanRecord) *float64 { return r.BodyFatMass }},
    {"Body Fat %", func(r *types.ScanRecord) *float64 { return r.BodyFatPercentage }},
    {"BMI", func(r *types.ScanRecord) *float64 { return r.BMI }},
    {"Visceral Fat", func(r *types.ScanRecord) *float64 { return r.VisceralFatLevel }},
  }

  var rows []ComparisonRow
  for _, m := range metrics {
    firstVal := m.get(first)
    lastVal := m.get(last)
    if firstVal == nil || lastVal == nil {
      continue
    }
    if *firstVal == 0 {
      return nil, fmt.Errorf("metric %s has a zero first value, percentage change undefined: %w", m.name, errs.ErrZeroBaseline)
    }
    rows = append(rows, ComparisonRow{
      Metric:        m.name,
      FirstScan:     *firstVal,
      LastScan:      *lastVal,
      Change:        *lastVal - *firstVal,
      ChangePercent: (*lastVal - *firstVal) / *firstVal * 100,
    })
  }
  return rows, nil
}
