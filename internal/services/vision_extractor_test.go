package services

import (
	"errors"
	"strings"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/genproto/googleapis/rpc/status"

	errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
)

func TestParseScanText_LabeledMetrics(t *testing.T) {
	text := `InBody Results
2024.03.15 10:30
Height 180.0 cm
Weight 70.5 kg
Skeletal Muscle Mass 31.2 kg
Body Fat Mass 12,3 kg
PBF 17.4 %
BMI 21.8
BMR 1650 kcal
Visceral Fat Level 5
InBody Score 82
Age 34
Gender Male`

	extracted := parseScanText(text)

	if extracted.ScanDate != "2024-03-15 10:30:00" {
		t.Fatalf("unexpected scan date: %q", extracted.ScanDate)
	}
	if extracted.Height == nil || *extracted.Height != 180.0 {
		t.Fatalf("height not parsed: %+v", extracted.Height)
	}
	if extracted.Weight == nil || *extracted.Weight != 70.5 {
		t.Fatalf("weight not parsed: %+v", extracted.Weight)
	}
	if extracted.MuscleMass == nil || *extracted.MuscleMass != 31.2 {
		t.Fatalf("muscle mass not parsed: %+v", extracted.MuscleMass)
	}
	// Decimal comma is normalized
	if extracted.BodyFatMass == nil || *extracted.BodyFatMass != 12.3 {
		t.Fatalf("body fat mass not parsed: %+v", extracted.BodyFatMass)
	}
	if extracted.BodyFatPercentage == nil || *extracted.BodyFatPercentage != 17.4 {
		t.Fatalf("body fat percentage not parsed: %+v", extracted.BodyFatPercentage)
	}
	if extracted.PBF == nil || *extracted.PBF != 17.4 {
		t.Fatalf("pbf should mirror body fat percentage: %+v", extracted.PBF)
	}
	if extracted.BMI == nil || *extracted.BMI != 21.8 {
		t.Fatalf("bmi not parsed: %+v", extracted.BMI)
	}
	if extracted.BMR == nil || *extracted.BMR != 1650 {
		t.Fatalf("bmr not parsed: %+v", extracted.BMR)
	}
	if extracted.VisceralFatLevel == nil || *extracted.VisceralFatLevel != 5 {
		t.Fatalf("visceral fat not parsed: %+v", extracted.VisceralFatLevel)
	}
	if extracted.BodyScore == nil || *extracted.BodyScore != 82 {
		t.Fatalf("body score not parsed: %+v", extracted.BodyScore)
	}
	if extracted.Age == nil || *extracted.Age != 34 {
		t.Fatalf("age not parsed: %+v", extracted.Age)
	}
	if extracted.Gender == nil || *extracted.Gender != "Male" {
		t.Fatalf("gender not parsed: %+v", extracted.Gender)
	}
}

func TestParseScanText_AgeRequiresWholeWord(t *testing.T) {
	// "percentage" must not feed the age field
	extracted := parseScanText("Percentage 17.4\nWeight 70 kg")
	if extracted.Age != nil {
		t.Fatalf("age parsed from 'percentage': %d", *extracted.Age)
	}

	extracted = parseScanText("Age 34\nWeight 70 kg")
	if extracted.Age == nil || *extracted.Age != 34 {
		t.Fatalf("age not parsed: %+v", extracted.Age)
	}
}

func TestDocumentText_ReadsFullTextAnnotation(t *testing.T) {
	resp := &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{
			{FullTextAnnotation: &visionpb.TextAnnotation{Text: "Weight 70 kg"}},
		},
	}

	text, err := documentText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Weight 70 kg" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestDocumentText_EmptyAndErrorResponses(t *testing.T) {
	if _, err := documentText(nil); !errors.Is(err, errs.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult for nil response, got %v", err)
	}
	if _, err := documentText(&visionpb.BatchAnnotateImagesResponse{}); !errors.Is(err, errs.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult for zero responses, got %v", err)
	}

	noText := &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{}},
	}
	if _, err := documentText(noText); !errors.Is(err, errs.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult for blank annotation, got %v", err)
	}

	failed := &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{
			{Error: &status.Status{Message: "image too large"}},
		},
	}
	_, err := documentText(failed)
	if err == nil || !strings.Contains(err.Error(), "image too large") {
		t.Fatalf("expected annotation error to surface, got %v", err)
	}
}

func TestParseScanText_DateWithoutClock(t *testing.T) {
	extracted := parseScanText("Scan 2024-03-15\nWeight 70 kg\nHeight 180 cm")
	if extracted.ScanDate != "2024-03-15 00:00:00" {
		t.Fatalf("unexpected scan date: %q", extracted.ScanDate)
	}
}

func TestParseGender_FemaleBeforeMale(t *testing.T) {
	// "female" contains "male" as a substring; word boundaries keep them apart
	if got := parseGender("Gender: Female"); got != "Female" {
		t.Fatalf("expected Female, got %q", got)
	}
	if got := parseGender("gender male"); got != "Male" {
		t.Fatalf("expected Male, got %q", got)
	}
	if got := parseGender("no gender line"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestParseLocalizedFloat(t *testing.T) {
	v, err := parseLocalizedFloat("12,3")
	if err != nil || v != 12.3 {
		t.Fatalf("expected 12.3, got %v (%v)", v, err)
	}
	if _, err := parseLocalizedFloat("abc"); err == nil {
		t.Fatalf("expected error for non-numeric input")
	}
}
