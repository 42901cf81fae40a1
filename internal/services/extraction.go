package services

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"
  "sync"
  "time"
  "gorm.io/datatypes"
  errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
  "github.com/yungbote/bodyscan-backend/internal/types"
)

// ScanExtractor turns raw scan-sheet image bytes into a structured scan.
// The returned string is the raw diagnostic text from the backend and is
// preserved verbatim in the ledger on failure and in the record for audit.
// Backends are swappable; ingestion and statistics never depend on which
// one produced a record.
type ScanExtractor interface {
  Extract(ctx context.Context, image []byte) (*ExtractedScan, string, error)
}

// NewLazyExtractor defers backend construction until the first Extract call.
// Commands that never extract (report, export, range queries) can be wired
// without extraction credentials being present.
func NewLazyExtractor(build func() (ScanExtractor, error)) ScanExtractor {
  return &lazyExtractor{build: build}
}

type lazyExtractor struct {
  mu    sync.Mutex
  build func() (ScanExtractor, error)
  inner ScanExtractor
}

func (l *lazyExtractor) Extract(ctx context.Context, image []byte) (*ExtractedScan, string, error) {
  l.mu.Lock()
  if l.inner == nil {
    inner, err := l.build()
    if err != nil {
      l.mu.Unlock()
      return nil, fmt.Sprintf("extractor init error: %v", err), fmt.Errorf("init extractor: %w", err)
    }
    l.inner = inner
  }
  inner := l.inner
  l.mu.Unlock()

  return inner.Extract(ctx, image)
}

type ExtractedSegmental struct {
  RightArmLean *float64 `json:"right_arm_lean"`
  LeftArmLean  *float64 `json:"left_arm_lean"`
  TrunkLean    *float64 `json:"trunk_lean"`
  RightLegLean *float64 `json:"right_leg_lean"`
  LeftLegLean  *float64 `json:"left_leg_lean"`
  RightArmFat  *float64 `json:"right_arm_fat"`
  LeftArmFat   *float64 `json:"left_arm_fat"`
  TrunkFat     *float64 `json:"trunk_fat"`
  RightLegFat  *float64 `json:"right_leg_fat"`
  LeftLegFat   *float64 `json:"left_leg_fat"`
}

// ExtractedScan mirrors the JSON shape extraction backends produce. Scan date
// arrives as a string so each backend can defer parsing to the shared mapper.
type ExtractedScan struct {
  ScanDate          string              `json:"scan_date"`
  Height            *float64            `json:"height"`
  Weight            *float64            `json:"weight"`
  Age               *int                `json:"age"`
  Gender            *string             `json:"gender"`
  MuscleMass        *float64            `json:"muscle_mass"`
  BodyFatMass       *float64            `json:"body_fat_mass"`
  BodyFatPercentage *float64            `json:"body_fat_percentage"`
  TotalBodyWater    *float64            `json:"total_body_water"`
  FatFreeMass       *float64            `json:"fat_free_mass"`
  BMI               *float64            `json:"bmi"`
  BMR               *float64            `json:"bmr"`
  VisceralFatLevel  *float64            `json:"visceral_fat_level"`
  PBF               *float64            `json:"pbf"`
  WHR               *float64            `json:"whr"`
  BodyScore         *int                `json:"body_score"`
  MuscleControl     *float64            `json:"muscle_control"`
  FatControl        *float64            `json:"fat_control"`
  Segmental         *ExtractedSegmental `json:"segmental"`
}

var scanDateLayouts = []string{
  "2006-01-02 15:04:05",
  "2006-01-02T15:04:05",
  time.RFC3339,
  "2006-01-02",
}

func parseScanDate(raw string) (time.Time, error) {
  trimmed := strings.TrimSpace(raw)
  if trimmed == "" {
    return time.Time{}, fmt.Errorf("scan_date is empty: %w", errs.ErrValidation)
  }
  for _, layout := range scanDateLayouts {
    if t, err := time.Parse(layout, trimmed); err == nil {
      return t, nil
    }
  }
  return time.Time{}, fmt.Errorf("scan_date %q is not parseable: %w", raw, errs.ErrValidation)
}

// ToScanRecord validates the required fields and maps the extraction result
// onto a persistable record. The raw diagnostic text travels along for audit.
func (e *ExtractedScan) ToScanRecord(contentHash string, rawText string) (*types.ScanRecord, error) {
  if e == nil {
    return nil, fmt.Errorf("extraction result is nil: %w", errs.ErrEmptyResult)
  }
  scanDate, err := parseScanDate(e.ScanDate)
  if err != nil {
    return nil, err
  }
  if e.Height == nil {
    return nil, fmt.Errorf("height is required: %w", errs.ErrValidation)
  }
  if e.Weight == nil {
    return nil, fmt.Errorf("weight is required: %w", errs.ErrValidation)
  }

  record := &types.ScanRecord{
    ContentHash:       contentHash,
    ScanDate:          scanDate,
    Height:            *e.Height,
    Weight:            *e.Weight,
    Age:               e.Age,
    Gender:            e.Gender,
    MuscleMass:        e.MuscleMass,
    BodyFatMass:       e.BodyFatMass,
    BodyFatPercentage: e.BodyFatPercentage,
    TotalBodyWater:    e.TotalBodyWater,
    FatFreeMass:       e.FatFreeMass,
    BMI:               e.BMI,
    BMR:               e.BMR,
    VisceralFatLevel:  e.VisceralFatLevel,
    PBF:               e.PBF,
    WHR:               e.WHR,
    BodyScore:         e.BodyScore,
    MuscleControl:     e.MuscleControl,
    FatControl:        e.FatControl,
  }
  if e.Segmental != nil {
    record.RightArmLean = e.Segmental.RightArmLean
    record.LeftArmLean = e.Segmental.LeftArmLean
    record.TrunkLean = e.Segmental.TrunkLean
    record.RightLegLean = e.Segmental.RightLegLean
    record.LeftLegLean = e.Segmental.LeftLegLean
    record.RightArmFat = e.Segmental.RightArmFat
    record.LeftArmFat = e.Segmental.LeftArmFat
    record.TrunkFat = e.Segmental.TrunkFat
    record.RightLegFat = e.Segmental.RightLegFat
    record.LeftLegFat = e.Segmental.LeftLegFat
  }

  if strings.TrimSpace(rawText) != "" {
    payload, mErr := json.Marshal(map[string]string{"raw_text": rawText})
    if mErr == nil {
      record.RawExtraction = datatypes.JSON(payload)
    }
  }

  return record, nil
}

// scanResultSchema is the JSON schema shared by structured-output backends.
// Required fields: scan_date, height, weight. Everything else is nullable.
func scanResultSchema() map[string]any {
  nullableNumber := map[string]any{"type": []string{"number", "null"}}
  nullableInteger := map[string]any{"type": []string{"integer", "null"}}

  segmentalProps := map[string]any{}
  for _, name := range []string{
    "right_arm_lean", "left_arm_lean", "trunk_lean", "right_leg_lean", "left_leg_lean",
    "right_arm_fat", "left_arm_fat", "trunk_fat", "right_leg_fat", "left_leg_fat",
  } {
    segmentalProps[name] = nullableNumber
  }

  return map[string]any{
    "type": "object",
    "properties": map[string]any{
      "scan_date": map[string]any{
        "type":        "string",
        "description": "Date and time of scan in ISO format (YYYY-MM-DD HH:MM:SS)",
      },
      "height":              map[string]any{"type": "number", "description": "Height in centimeters"},
      "weight":              map[string]any{"type": "number", "description": "Weight in kilograms"},
      "age":                 nullableInteger,
      "gender":              map[string]any{"type": []string{"string", "null"}},
      "muscle_mass":         nullableNumber,
      "body_fat_mass":       nullableNumber,
      "body_fat_percentage": nullableNumber,
      "total_body_water":    nullableNumber,
      "fat_free_mass":       nullableNumber,
      "bmi":                 nullableNumber,
      "bmr":                 nullableNumber,
      "visceral_fat_level":  nullableNumber,
      "pbf":                 nullableNumber,
      "whr":                 nullableNumber,
      "body_score":          nullableInteger,
      "muscle_control":      nullableNumber,
      "fat_control":         nullableNumber,
      "segmental": map[string]any{
        "type":       []string{"object", "null"},
        "properties": segmentalProps,
      },
    },
    "required": []string{"scan_date", "height", "weight"},
  }
}
