package services

import (
  "context"
  "crypto/sha256"
  "encoding/hex"
  "encoding/json"
  "fmt"
  "io"
  "os"
  "path/filepath"
  "sort"
  "strings"
  "time"
  "gorm.io/gorm"
  "github.com/yungbote/bodyscan-backend/internal/logger"
  errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
  "github.com/yungbote/bodyscan-backend/internal/repos"
  "github.com/yungbote/bodyscan-backend/internal/types"
)

type ImageOutcome string

const (
  OutcomeStored  ImageOutcome = "stored"
  OutcomeSkipped ImageOutcome = "skipped"
  OutcomeFailed  ImageOutcome = "failed"
)

type BatchStats struct {
  Total     int `json:"total"`
  Processed int `json:"processed"`
  Failed    int `json:"failed"`
  Skipped   int `json:"skipped"`
}

var supportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".webp"}

type IngestService interface {
  // ProcessImage runs one image through the ingestion state machine:
  // Pending -> Hashed -> {Skipped | Extracted -> Stored} | Failed.
  // Extraction failures are terminal for the image, recorded in the ledger,
  // and reported as OutcomeFailed with a nil error.
  ProcessImage(ctx context.Context, imagePath string, force bool) (ImageOutcome, error)
  // ProcessFolder ingests every supported image in a folder. A single image's
  // failure never aborts the batch.
  ProcessFolder(ctx context.Context, folderPath string, force bool) (BatchStats, error)
  // ExportJSON writes all records joined with their source paths to a JSON
  // file and returns the path written.
  ExportJSON(ctx context.Context, outputPath string) (string, error)
  ProcessingStats(ctx context.Context) (repos.LedgerStats, error)
}

type ingestService struct {
  db         *gorm.DB
  log        *logger.Logger
  ledgerRepo repos.IngestionLedgerRepo
  recordRepo repos.ScanRecordRepo
  extractor  ScanExtractor
}

func NewIngestService(db *gorm.DB, log *logger.Logger, ledgerRepo repos.IngestionLedgerRepo, recordRepo repos.ScanRecordRepo, extractor ScanExtractor) IngestService {
  serviceLog := log.With("service", "IngestService")
  return &ingestService{
    db:         db,
    log:        serviceLog,
    ledgerRepo: ledgerRepo,
    recordRepo: recordRepo,
    extractor:  extractor,
  }
}

func hashImageFile(path string) (string, error) {
  f, err := os.Open(path)
  if err != nil {
    if os.IsNotExist(err) {
      return "", fmt.Errorf("image file %s: %w", path, errs.ErrNotFound)
    }
    return "", fmt.Errorf("open image file: %w", err)
  }
  defer f.Close()

  h := sha256.New()
  if _, err := io.Copy(h, f); err != nil {
    return "", fmt.Errorf("hash image file: %w", err)
  }
  return hex.EncodeToString(h.Sum(nil)), nil
}

func findImageFiles(folderPath string) ([]string, error) {
  info, err := os.Stat(folderPath)
  if err != nil {
    if os.IsNotExist(err) {
      return nil, fmt.Errorf("folder %s: %w", folderPath, errs.ErrNotFound)
    }
    return nil, err
  }
  if !info.IsDir() {
    return nil, fmt.Errorf("path %s is not a directory: %w", folderPath, errs.ErrValidation)
  }

  entries, err := os.ReadDir(folderPath)
  if err != nil {
    return nil, fmt.Errorf("read folder: %w", err)
  }

  var files []string
  for _, entry := range entries {
    if entry.IsDir() {
      continue
    }
    ext := strings.ToLower(filepath.Ext(entry.Name()))
    for _, supported := range supportedImageExtensions {
      if ext == supported {
        files = append(files, filepath.Join(folderPath, entry.Name()))
        break
      }
    }
  }
  sort.Strings(files)
  return files, nil
}

func (s *ingestService) recordFailure(ctx context.Context, imagePath, contentHash, message string) {
  msg := message
  entry := &types.IngestionLedgerEntry{
    FilePath:     imagePath,
    ContentHash:  contentHash,
    ProcessedAt:  time.Now(),
    Success:      false,
    ErrorMessage: &msg,
  }
  if err := s.ledgerRepo.RecordAttempt(ctx, nil, entry); err != nil {
    s.log.Error("Failed to record ledger failure entry", "path", imagePath, "error", err)
  }
}

func (s *ingestService) ProcessImage(ctx context.Context, imagePath string, force bool) (ImageOutcome, error) {
  contentHash, err := hashImageFile(imagePath)
  if err != nil {
    return OutcomeFailed, err
  }
  slog := s.log.With("path", imagePath, "content_hash", contentHash[:12])

  known, err := s.ledgerRepo.IsKnown(ctx, nil, contentHash)
  if err != nil {
    return OutcomeFailed, err
  }
  if known && !force {
    slog.Info("Skipping already processed image")
    return OutcomeSkipped, nil
  }

  raw, err := os.ReadFile(imagePath)
  if err != nil {
    return OutcomeFailed, fmt.Errorf("read image file: %w", err)
  }

  slog.Info("Extracting scan data...")
  extracted, diagnostic, err := s.extractor.Extract(ctx, raw)
  if err != nil {
    slog.Warn("Extraction failed", "error", err)
    s.recordFailure(ctx, imagePath, contentHash, diagnostic)
    return OutcomeFailed, nil
  }

  record, err := extracted.ToScanRecord(contentHash, diagnostic)
  if err != nil {
    slog.Warn("Extraction result failed validation", "error", err)
    s.recordFailure(ctx, imagePath, contentHash, fmt.Sprintf("validation error: %v", err))
    return OutcomeFailed, nil
  }

  entry := &types.IngestionLedgerEntry{
    FilePath:    imagePath,
    ContentHash: contentHash,
    ProcessedAt: time.Now(),
    Success:     true,
  }
  if err := s.ledgerRepo.RecordAttempt(ctx, nil, entry); err != nil {
    return OutcomeFailed, fmt.Errorf("record ledger entry: %w", err)
  }

  // A failure between the two writes leaves a success ledger row with no
  // record. That window is detectable (ledger says success, record missing)
  // and the image can be re-ingested with force.
  if _, err := s.recordRepo.Save(ctx, nil, record, contentHash); err != nil {
    slog.Error("Ledger entry written but record persistence failed; store is inconsistent for this hash", "error", err)
    return OutcomeFailed, fmt.Errorf("save scan record: %w", err)
  }

  slog.Info("Stored scan record",
    "scan_date", record.ScanDate.Format("2006-01-02"),
    "weight", record.Weight,
    "height", record.Height,
  )
  return OutcomeStored, nil
}

func (s *ingestService) ProcessFolder(ctx context.Context, folderPath string, force bool) (BatchStats, error) {
  s.log.Info("Scanning folder for images...", "folder", folderPath)

  imageFiles, err := findImageFiles(folderPath)
  if err != nil {
    return BatchStats{}, err
  }
  if len(imageFiles) == 0 {
    s.log.Warn("No image files found in folder", "folder", folderPath)
    return BatchStats{}, nil
  }

  stats := BatchStats{Total: len(imageFiles)}
  for i, imagePath := range imageFiles {
    s.log.Info("Processing image", "index", i+1, "total", len(imageFiles), "file", filepath.Base(imagePath))

    outcome, err := s.ProcessImage(ctx, imagePath, force)
    if err != nil {
      s.log.Error("Image processing errored", "file", filepath.Base(imagePath), "error", err)
    }
    switch outcome {
    case OutcomeStored:
      stats.Processed++
    case OutcomeSkipped:
      stats.Skipped++
    default:
      stats.Failed++
    }
  }

  s.log.Info("Batch complete",
    "total", stats.Total,
    "processed", stats.Processed,
    "failed", stats.Failed,
    "skipped", stats.Skipped,
  )
  return stats, nil
}

type exportRow struct {
  *types.ScanRecord
  FilePath string `json:"file_path,omitempty"`
}

func (s *ingestService) ExportJSON(ctx context.Context, outputPath string) (string, error) {
  if outputPath == "" {
    outputPath = fmt.Sprintf("scan_results_%s.json", time.Now().Format("20060102_150405"))
  }

  records, err := s.recordRepo.Query(ctx, nil, nil, nil)
  if err != nil {
    return "", fmt.Errorf("query records: %w", err)
  }

  hashes := make([]string, 0, len(records))
  for _, r := range records {
    hashes = append(hashes, r.ContentHash)
  }
  entries, err := s.ledgerRepo.GetByHashes(ctx, nil, hashes)
  if err != nil {
    return "", fmt.Errorf("query ledger: %w", err)
  }
  pathByHash := make(map[string]string, len(entries))
  for _, e := range entries {
    pathByHash[e.ContentHash] = e.FilePath
  }

  rows := make([]exportRow, 0, len(records))
  for _, r := range records {
    rows = append(rows, exportRow{ScanRecord: r, FilePath: pathByHash[r.ContentHash]})
  }

  data, err := json.MarshalIndent(rows, "", "  ")
  if err != nil {
    return "", fmt.Errorf("marshal export: %w", err)
  }
  if err := os.WriteFile(outputPath, data, 0o644); err != nil {
    return "", fmt.Errorf("write export file: %w", err)
  }

  s.log.Info("Exported records", "path", outputPath, "count", len(rows))
  return outputPath, nil
}

func (s *ingestService) ProcessingStats(ctx context.Context) (repos.LedgerStats, error) {
  return s.ledgerRepo.Stats(ctx, nil)
}
