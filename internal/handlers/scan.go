package handlers

import (
  "errors"
  "net/http"
  "time"
  "github.com/gin-gonic/gin"
  errs "github.com/yungbote/bodyscan-backend/internal/pkg/errors"
  "github.com/yungbote/bodyscan-backend/internal/repos"
  "github.com/yungbote/bodyscan-backend/internal/services"
)

type ScanHandler struct {
  recordRepo    repos.ScanRecordRepo
  ingestService services.IngestService
  statsService  services.StatsService
  reportService services.ReportService
}

func NewScanHandler(recordRepo repos.ScanRecordRepo, ingestService services.IngestService, statsService services.StatsService, reportService services.ReportService) *ScanHandler {
  return &ScanHandler{
    recordRepo:    recordRepo,
    ingestService: ingestService,
    statsService:  statsService,
    reportService: reportService,
  }
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter.
func parseDateQuery(c *gin.Context, key string) (*time.Time, error) {
  raw := c.Query(key)
  if raw == "" {
    return nil, nil
  }
  t, err := time.Parse("2006-01-02", raw)
  if err != nil {
    return nil, err
  }
  return &t, nil
}

func (sh *ScanHandler) ListRecords(c *gin.Context) {
  start, err := parseDateQuery(c, "start")
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_start_date", err)
    return
  }
  end, err := parseDateQuery(c, "end")
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_end_date", err)
    return
  }
  records, err := sh.recordRepo.Query(c.Request.Context(), nil, start, end)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "query_failed", err)
    return
  }
  RespondOK(c, gin.H{"records": records, "count": len(records)})
}

func (sh *ScanHandler) GetRange(c *gin.Context) {
  start, end, err := sh.recordRepo.GetRange(c.Request.Context(), nil)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "range_failed", err)
    return
  }
  if start == nil || end == nil {
    RespondOK(c, gin.H{"start": nil, "end": nil, "empty": true})
    return
  }
  RespondOK(c, gin.H{"start": start, "end": end, "empty": false})
}

func (sh *ScanHandler) GetStats(c *gin.Context) {
  start, err := parseDateQuery(c, "start")
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_start_date", err)
    return
  }
  end, err := parseDateQuery(c, "end")
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_end_date", err)
    return
  }
  records, err := sh.recordRepo.Query(c.Request.Context(), nil, start, end)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "query_failed", err)
    return
  }
  RespondOK(c, sh.statsService.Summarize(records))
}

func (sh *ScanHandler) GetProcessingStats(c *gin.Context) {
  stats, err := sh.ingestService.ProcessingStats(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "stats_failed", err)
    return
  }
  RespondOK(c, stats)
}

type generateReportRequest struct {
  OutputPath string `json:"output_path"`
  StartDate  string `json:"start_date"`
  EndDate    string `json:"end_date"`
  Title      string `json:"title"`
}

func (sh *ScanHandler) GenerateReport(c *gin.Context) {
  var req generateReportRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }
  opts := services.ReportOptions{OutputPath: req.OutputPath, Title: req.Title}
  if req.StartDate != "" {
    t, err := time.Parse("2006-01-02", req.StartDate)
    if err != nil {
      RespondError(c, http.StatusBadRequest, "invalid_start_date", err)
      return
    }
    opts.StartDate = &t
  }
  if req.EndDate != "" {
    t, err := time.Parse("2006-01-02", req.EndDate)
    if err != nil {
      RespondError(c, http.StatusBadRequest, "invalid_end_date", err)
      return
    }
    opts.EndDate = &t
  }
  path, err := sh.reportService.Generate(c.Request.Context(), opts)
  if err != nil {
    if errors.Is(err, errs.ErrInsufficientData) {
      RespondError(c, http.StatusUnprocessableEntity, "insufficient_data", err)
      return
    }
    RespondError(c, http.StatusInternalServerError, "report_failed", err)
    return
  }
  RespondOK(c, gin.H{"report_path": path})
}
