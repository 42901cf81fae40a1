package services

import (
  "math"
  "time"
  "github.com/yungbote/bodyscan-backend/internal/logger"
  "github.com/yungbote/bodyscan-backend/internal/types"
)

type DateRange struct {
  Start time.Time `json:"start"`
  End   time.Time `json:"end"`
  Days  int       `json:"days"`
}

type WeightChange struct {
  TotalKg     float64 `json:"total_kg"`
  StartWeight float64 `json:"start_weight"`
  EndWeight   float64 `json:"end_weight"`
  MinWeight   float64 `json:"min_weight"`
  MaxWeight   float64 `json:"max_weight"`
}

type BodyFatChange struct {
  TotalPercent float64 `json:"total_percent"`
  StartBF      float64 `json:"start_bf"`
  EndBF        float64 `json:"end_bf"`
}

type MuscleChange struct {
  TotalKg     float64 `json:"total_kg"`
  StartMuscle float64 `json:"start_muscle"`
  EndMuscle   float64 `json:"end_muscle"`
}

type BMIChange struct {
  Total    float64 `json:"total"`
  StartBMI float64 `json:"start_bmi"`
  EndBMI   float64 `json:"end_bmi"`
}

// SummaryStatistics is derived per query and never stored. A nil change means
// the metric did not have enough observations in the filtered set.
type SummaryStatistics struct {
  TotalScans    int            `json:"total_scans"`
  DateRange     *DateRange     `json:"date_range,omitempty"`
  WeightChange  *WeightChange  `json:"weight_change,omitempty"`
  BodyFatChange *BodyFatChange `json:"body_fat_change,omitempty"`
  MuscleChange  *MuscleChange  `json:"muscle_change,omitempty"`
  BMIChange     *BMIChange     `json:"bmi_change,omitempty"`
}

type StatsService interface {
  // Summarize computes longitudinal deltas over an already-filtered,
  // ascending-ordered record set. Fewer than two records yield only the total
  // count, no range and no deltas.
  Summarize(records []*types.ScanRecord) SummaryStatistics
}

type statsService struct {
  log *logger.Logger
}

func NewStatsService(log *logger.Logger) StatsService {
  return &statsService{log: log.With("service", "StatsService")}
}

// round1 rounds to one decimal place, half to even.
func round1(v float64) float64 {
  return math.RoundToEven(v*10) / 10
}

func (s *statsService) Summarize(records []*types.ScanRecord) SummaryStatistics {
  stats := SummaryStatistics{TotalScans: len(records)}
  if len(records) < 2 {
    return stats
  }

  // Date range uses min/max over the scan_date column, not positional
  // first/last, although callers normally pre-sort ascending.
  minDate := records[0].ScanDate
  maxDate := records[0].ScanDate
  for _, r := range records[1:] {
    if r.ScanDate.Before(minDate) {
      minDate = r.ScanDate
    }
    if r.ScanDate.After(maxDate) {
      maxDate = r.ScanDate
    }
  }
  stats.DateRange = &DateRange{
    Start: minDate,
    End:   maxDate,
    Days:  int(maxDate.Sub(minDate).Hours() / 24),
  }

  first := records[0]
  last := records[len(records)-1]

  // Weight is required on every record so its delta always exists.
  minWeight := first.Weight
  maxWeight := first.Weight
  for _, r := range records[1:] {
    if r.Weight < minWeight {
      minWeight = r.Weight
    }
    if r.Weight > maxWeight {
      maxWeight = r.Weight
    }
  }
  stats.WeightChange = &WeightChange{
    TotalKg:     round1(last.Weight - first.Weight),
    StartWeight: round1(first.Weight),
    EndWeight:   round1(last.Weight),
    MinWeight:   round1(minWeight),
    MaxWeight:   round1(maxWeight),
  }

  // Optional metric deltas use the positional first and last rows of the
  // filtered set, not the first and last non-missing observations. Interior
  // gaps are ignored. A delta is emitted only when the column has at least two
  // non-missing values and both positional endpoints are present.
  if metricDeltaComputable(records, first, last, func(r *types.ScanRecord) *float64 { return r.BodyFatPercentage }) {
    stats.BodyFatChange = &BodyFatChange{
      TotalPercent: round1(*last.BodyFatPercentage - *first.BodyFatPercentage),
      StartBF:      round1(*first.BodyFatPercentage),
      EndBF:        round1(*last.BodyFatPercentage),
    }
  }
  if metricDeltaComputable(records, first, last, func(r *types.ScanRecord) *float64 { return r.MuscleMass }) {
    stats.MuscleChange = &MuscleChange{
      TotalKg:     round1(*last.MuscleMass - *first.MuscleMass),
      StartMuscle: round1(*first.MuscleMass),
      EndMuscle:   round1(*last.MuscleMass),
    }
  }
  if metricDeltaComputable(records, first, last, func(r *types.ScanRecord) *float64 { return r.BMI }) {
    stats.BMIChange = &BMIChange{
      Total:    round1(*last.BMI - *first.BMI),
      StartBMI: round1(*first.BMI),
      EndBMI:   round1(*last.BMI),
    }
  }

  return stats
}

func metricDeltaComputable(records []*types.ScanRecord, first, last *types.ScanRecord, get func(*types.ScanRecord) *float64) bool {
  nonMissing := 0
  for _, r := range records {
    if get(r) != nil {
      nonMissing++
    }
  }
  return nonMissing >= 2 && get(first) != nil && get(last) != nil
}
