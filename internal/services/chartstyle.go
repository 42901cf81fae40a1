package services

import (
  "encoding/json"
  "fmt"
  "image/color"
  "os"
  "strings"
)

// ChartStyle is the immutable styling configuration passed into the chart
// renderer at construction time. It replaces ad-hoc global styling state so
// two renderers with different palettes can coexist.
type ChartStyle struct {
  Width  int
  Height int

  FontPath string

  Background color.NRGBA
  PanelFill  color.NRGBA
  GridColor  color.NRGBA
  TextColor  color.NRGBA

  Primary   color.NRGBA
  Secondary color.NRGBA
  Accent    color.NRGBA
  Success   color.NRGBA
  Info      color.NRGBA
  Light     color.NRGBA
  Dark      color.NRGBA
}

func DefaultChartStyle() ChartStyle {
  return ChartStyle{
    Width:      1200,
    Height:     600,
    Background: color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
    PanelFill:  color.NRGBA{R: 0xFA, G: 0xFA, B: 0xFA, A: 0xFF},
    GridColor:  color.NRGBA{R: 0xDD, G: 0xDD, B: 0xDD, A: 0xFF},
    TextColor:  color.NRGBA{R: 0x2C, G: 0x3E, B: 0x50, A: 0xFF},
    Primary:    color.NRGBA{R: 0x2E, G: 0x86, B: 0xAB, A: 0xFF},
    Secondary:  color.NRGBA{R: 0xA2, G: 0x3B, B: 0x72, A: 0xFF},
    Accent:     color.NRGBA{R: 0xF1, G: 0x8F, B: 0x01, A: 0xFF},
    Success:    color.NRGBA{R: 0xC7, G: 0x3E, B: 0x1D, A: 0xFF},
    Info:       color.NRGBA{R: 0x8E, G: 0x44, B: 0xAD, A: 0xFF},
    Light:      color.NRGBA{R: 0xBD, G: 0xC3, B: 0xC7, A: 0xFF},
    Dark:       color.NRGBA{R: 0x2C, G: 0x3E, B: 0x50, A: 0xFF},
  }
}

type chartStyleFile struct {
  Width    int               `json:"width"`
  Height   int               `json:"height"`
  FontPath string            `json:"font_path"`
  Palette  map[string]string `json:"palette"`
}

// LoadChartStyle reads a JSON style file and overlays it on the defaults.
// Unknown palette keys are ignored; missing ones keep their default.
func LoadChartStyle(jsonPath string) (ChartStyle, error) {
  style := DefaultChartStyle()

  data, err := os.ReadFile(jsonPath)
  if err != nil {
    return style, fmt.Errorf("read chart style file: %w", err)
  }
  var file chartStyleFile
  if err := json.Unmarshal(data, &file); err != nil {
    return style, fmt.Errorf("parse chart style file: %w", err)
  }

  if file.Width > 0 {
    style.Width = file.Width
  }
  if file.Height > 0 {
    style.Height = file.Height
  }
  if strings.TrimSpace(file.FontPath) != "" {
    style.FontPath = file.FontPath
  }

  targets := map[string]*color.NRGBA{
    "background": &style.Background,
    "panel_fill": &style.PanelFill,
    "grid":       &style.GridColor,
    "text":       &style.TextColor,
    "primary":    &style.Primary,
    "secondary":  &style.Secondary,
    "accent":     &style.Accent,
    "success":    &style.Success,
    "info":       &style.Info,
    "light":      &style.Light,
    "dark":       &style.Dark,
  }
  for key, hexStr := range file.Palette {
    target, ok := targets[key]
    if !ok {
      continue
    }
    c, err := parseHexColor(hexStr)
    if err != nil {
      return style, fmt.Errorf("palette key %q: %w", key, err)
    }
    *target = c
  }

  return style, nil
}

func parseHexColor(s string) (color.NRGBA, error) {
  s = strings.TrimSpace(strings.TrimPrefix(s, "#"))
  if len(s) != 6 {
    return color.NRGBA{}, fmt.Errorf("expected 6 hex chars, got %q", s)
  }
  var r, g, b uint8
  if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
    return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
  }
  return color.NRGBA{R: r, G: g, B: b, A: 0xFF}, nil
}
