package services

import (
  "fmt"
  "math"
  "github.com/yungbote/bodyscan-backend/internal/logger"
  "github.com/yungbote/bodyscan-backend/internal/types"
)

type InsightsService interface {
  // Insights turns summary statistics into short achievement sentences for
  // the report's final section. Purely textual; all numbers arrive rounded.
  Insights(records []*types.ScanRecord, stats SummaryStatistics) []string
}

type insightsService struct {
  log *logger.Logger
}

func NewInsightsService(log *logger.Logger) InsightsService {
  return &insightsService{log: log.With("service", "InsightsService")}
}

func (s *insightsService) Insights(records []*types.ScanRecord, stats SummaryStatistics) []string {
  if len(records) < 2 {
    return []string{"Not enough data to generate insights. Need at least 2 scans."}
  }

  var insights []string
  days := 0
  if stats.DateRange != nil {
    days = stats.DateRange.Days
  }

  if wc := stats.WeightChange; wc != nil {
    switch {
    case wc.TotalKg > 0:
      insights = append(insights, fmt.Sprintf("Weight increased by %.1fkg over %d days", math.Abs(wc.TotalKg), days))
    case wc.TotalKg < -0.5:
      insights = append(insights, fmt.Sprintf("Weight decreased by %.1fkg over %d days", math.Abs(wc.TotalKg), days))
    default:
      insights = append(insights, fmt.Sprintf("Weight remained stable (±%.1fkg) over %d days", math.Abs(wc.TotalKg), days))
    }
  }

  if bc := stats.BodyFatChange; bc != nil {
    if bc.TotalPercent < -1 {
      insights = append(insights, fmt.Sprintf("Body fat decreased by %.1f%% - Great progress!", math.Abs(bc.TotalPercent)))
    } else if bc.TotalPercent > 1 {
      insights = append(insights, fmt.Sprintf("Body fat increased by %.1f%%", bc.TotalPercent))
    }
  }

  if mc := stats.MuscleChange; mc != nil {
    if mc.TotalKg > 0.5 {
      insights = append(insights, fmt.Sprintf("Muscle mass increased by %.1fkg - Excellent!", mc.TotalKg))
    } else if mc.TotalKg < -0.5 {
      insights = append(insights, fmt.Sprintf("Muscle mass decreased by %.1fkg", math.Abs(mc.TotalKg)))
    }
  }

  if bmi := stats.BMIChange; bmi != nil {
    current := bmi.EndBMI
    switch {
    case current < 18.5:
      insights = append(insights, "Current BMI indicates underweight")
    case current < 25:
      insights = append(insights, "Current BMI is in the healthy range")
    case current < 30:
      insights = append(insights, "Current BMI indicates overweight")
    default:
      insights = append(insights, "Current BMI indicates obesity")
    }
  }

  // Scans per month as a rough consistency signal
  months := float64(days) / 30
  if months < 1 {
    months = 1
  }
  frequency := float64(len(records)) / months
  if frequency >= 1 {
    insights = append(insights, fmt.Sprintf("Excellent tracking consistency - %d scans over %d days", len(records), days))
  } else if frequency >= 0.5 {
    insights = append(insights, fmt.Sprintf("Good tracking consistency - %d scans over %d days", len(records), days))
  }

  return insights
}
