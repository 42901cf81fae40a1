package services

import (
  "context"
  "fmt"
  "os"
  "regexp"
  "strconv"
  "strings"

  vision "cloud.google.com/go/vision/v2/apiv1"
  visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
  "google.golang.org/api/option"

  errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
  "github.com/yungbote/bodyscan-backend/internal/logger"
)

// VisionExtractor is the OCR fallback backend: it runs GCP Vision
// DOCUMENT_TEXT_DETECTION over the scan sheet and parses labeled numbers out
// of the recognized text. Less complete than the structured-output backend but
// works without an OpenAI key.
type VisionExtractor struct {
  log    *logger.Logger
  client *vision.ImageAnnotatorClient
}

func NewVisionExtractor(ctx context.Context, log *logger.Logger) (*VisionExtractor, error) {
  serviceLog := log.With("service", "VisionExtractor")

  var opts []option.ClientOption
  if credsJSON := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")); credsJSON != "" {
    opts = append(opts, option.WithCredentialsJSON([]byte(credsJSON)))
  }

  client, err := vision.NewImageAnnotatorClient(ctx, opts...)
  if err != nil {
    return nil, fmt.Errorf("failed to create vision client: %w", err)
  }

  return &VisionExtractor{log: serviceLog, client: client}, nil
}

func (v *VisionExtractor) Close() error {
  if v.client != nil {
    return v.client.Close()
  }
  return nil
}

func (v *VisionExtractor) Extract(ctx context.Context, image []byte) (*ExtractedScan, string, error) {
  resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
    Requests: []*visionpb.AnnotateImageRequest{
      {
        Image:    &visionpb.Image{Content: image},
        Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
      },
    },
  })
  if err != nil {
    return nil, fmt.Sprintf("vision ocr error: %v", err), fmt.Errorf("vision ocr: %w", err)
  }

  text, err := documentText(resp)
  if err != nil {
    return nil, err.Error(), err
  }

  extracted := parseScanText(text)
  return extracted, text, nil
}

// documentText pulls the full text annotation out of a batch response.
func documentText(resp *visionpb.BatchAnnotateImagesResponse) (string, error) {
  if resp == nil || len(resp.GetResponses()) == 0 {
    return "", fmt.Errorf("no annotation responses: %w", errs.ErrEmptyResult)
  }
  annotation := resp.GetResponses()[0]
  if st := annotation.GetError(); st != nil {
    return "", fmt.Errorf("vision annotation failed: %s", st.GetMessage())
  }
  text := annotation.GetFullTextAnnotation().GetText()
  if strings.TrimSpace(text) == "" {
    return "", fmt.Errorf("no text detected: %w", errs.ErrEmptyResult)
  }
  return text, nil
}

// -------------------- OCR text parsing --------------------

var (
  dateTimePattern = regexp.MustCompile(`(\d{4})[./-](\d{2})[./-](\d{2})[ T]?(\d{2}:\d{2}(?::\d{2})?)?`)
  numberPattern   = `[-+]?\d+(?:[.,]\d+)?`
)

type labeledMetric struct {
  re     *regexp.Regexp
  assign func(e *ExtractedScan, v float64)
}

func metricPattern(labels ...string) *regexp.Regexp {
  alt := strings.Join(labels, "|")
  return regexp.MustCompile(`(?i)(?:` + alt + `)\D{0,12}?(` + numberPattern + `)`)
}

var labeledMetrics = []labeledMetric{
  {metricPattern(`height`), func(e *ExtractedScan, v float64) { e.Height = &v }},
  {metricPattern(`weight`), func(e *ExtractedScan, v float64) { e.Weight = &v }},
  {metricPattern(`skeletal muscle mass`, `muscle mass`, `\bSMM\b`), func(e *ExtractedScan, v float64) { e.MuscleMass = &v }},
  {metricPattern(`body fat mass`, `\bBFM\b`), func(e *ExtractedScan, v float64) { e.BodyFatMass = &v }},
  {metricPattern(`percent body fat`, `body fat percentage`, `\bPBF\b`), func(e *ExtractedScan, v float64) {
    e.BodyFatPercentage = &v
    e.PBF = &v
  }},
  {metricPattern(`total body water`, `\bTBW\b`), func(e *ExtractedScan, v float64) { e.TotalBodyWater = &v }},
  {metricPattern(`fat free mass`, `fat-free mass`, `\bFFM\b`), func(e *ExtractedScan, v float64) { e.FatFreeMass = &v }},
  {metricPattern(`\bBMI\b`), func(e *ExtractedScan, v float64) { e.BMI = &v }},
  {metricPattern(`\bBMR\b`, `basal metabolic rate`), func(e *ExtractedScan, v float64) { e.BMR = &v }},
  {metricPattern(`visceral fat`), func(e *ExtractedScan, v float64) { e.VisceralFatLevel = &v }},
  {metricPattern(`\bWHR\b`, `waist-hip ratio`), func(e *ExtractedScan, v float64) { e.WHR = &v }},
  {metricPattern(`muscle control`), func(e *ExtractedScan, v float64) { e.MuscleControl = &v }},
  {metricPattern(`fat control`), func(e *ExtractedScan, v float64) { e.FatControl = &v }},
}

var scorePattern = metricPattern(`inbody score`, `fitness score`)
var agePattern = metricPattern(`\bage\b`)

// parseScanText pulls labeled values out of OCR text. Labels vary between
// machine models; first match wins for each metric.
func parseScanText(text string) *ExtractedScan {
  extracted := &ExtractedScan{}

  if m := dateTimePattern.FindStringSubmatch(text); m != nil {
    clock := m[4]
    if clock == "" {
      clock = "00:00:00"
    } else if len(clock) == 5 {
      clock += ":00"
    }
    extracted.ScanDate = fmt.Sprintf("%s-%s-%s %s", m[1], m[2], m[3], clock)
  }

  for _, lm := range labeledMetrics {
    if m := lm.re.FindStringSubmatch(text); m != nil {
      if v, err := parseLocalizedFloat(m[1]); err == nil {
        lm.assign(extracted, v)
      }
    }
  }

  if m := scorePattern.FindStringSubmatch(text); m != nil {
    if v, err := parseLocalizedFloat(m[1]); err == nil {
      score := int(v)
      extracted.BodyScore = &score
    }
  }
  if m := agePattern.FindStringSubmatch(text); m != nil {
    if v, err := parseLocalizedFloat(m[1]); err == nil && v > 0 && v < 130 {
      age := int(v)
      extracted.Age = &age
    }
  }

  if g := parseGender(text); g != "" {
    extracted.Gender = &g
  }

  return extracted
}

func parseLocalizedFloat(raw string) (float64, error) {
  return strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
}

func parseGender(text string) string {
  lower := strings.ToLower(text)
  if regexp.MustCompile(`\bfemale\b`).MatchString(lower) {
    return "Female"
  }
  if regexp.MustCompile(`\bmale\b`).MatchString(lower) {
    return "Male"
  }
  return ""
}
