package main

import (
  "context"
  "fmt"
  "os"
  "time"
  "github.com/joho/godotenv"
  "github.com/spf13/cobra"
  "github.com/yungbote/bodyscan-backend/internal/db"
  "github.com/yungbote/bodyscan-backend/internal/handlers"
  "github.com/yungbote/bodyscan-backend/internal/logger"
  "github.com/yungbote/bodyscan-backend/internal/repos"
  "github.com/yungbote/bodyscan-backend/internal/server"
  "github.com/yungbote/bodyscan-backend/internal/services"
  "github.com/yungbote/bodyscan-backend/internal/utils"
)

// app bundles the wired repos and services behind the CLI commands.
type app struct {
  log           *logger.Logger
  recordRepo    repos.ScanRecordRepo
  ledgerRepo    repos.IngestionLedgerRepo
  ingestService services.IngestService
  statsService  services.StatsService
  reportService services.ReportService
}

func buildApp(log *logger.Logger) (*app, error) {
  // SQLite
  dbPath := utils.GetEnv("BODYSCAN_DB_PATH", "scan_data.db", log)
  sqliteService, err := db.NewSQLiteService(dbPath, log)
  if err != nil {
    return nil, fmt.Errorf("init sqlite: %w", err)
  }
  if err := sqliteService.AutoMigrateAll(); err != nil {
    return nil, fmt.Errorf("auto migration: %w", err)
  }
  theDB := sqliteService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  recordRepo := repos.NewScanRecordRepo(theDB, log)
  ledgerRepo := repos.NewIngestionLedgerRepo(theDB, log)

  // Extraction backend is built lazily: only ingest ever extracts, and the
  // other commands must work without extraction credentials.
  extractor := services.NewLazyExtractor(func() (services.ScanExtractor, error) {
    backend := utils.GetEnv("EXTRACTOR_BACKEND", "openai", log)
    if backend == "vision" {
      return services.NewVisionExtractor(context.Background(), log)
    }
    return services.NewOpenAIExtractor(log)
  })

  // Services
  log.Info("Setting up Services from main...")
  ingestService := services.NewIngestService(theDB, log, ledgerRepo, recordRepo, extractor)
  statsService := services.NewStatsService(log)
  chartDataService := services.NewChartDataService(log)

  style := services.DefaultChartStyle()
  if stylePath := utils.GetEnv("CHART_STYLE_PATH", "", log); stylePath != "" {
    style, err = services.LoadChartStyle(stylePath)
    if err != nil {
      return nil, fmt.Errorf("load chart style: %w", err)
    }
  }
  chartService, err := services.NewChartService(log, style)
  if err != nil {
    return nil, fmt.Errorf("init chart service: %w", err)
  }
  insightsService := services.NewInsightsService(log)
  reportService := services.NewReportService(log, recordRepo, statsService, chartDataService, chartService, insightsService)

  return &app{
    log:           log,
    recordRepo:    recordRepo,
    ledgerRepo:    ledgerRepo,
    ingestService: ingestService,
    statsService:  statsService,
    reportService: reportService,
  }, nil
}

func parseDateFlag(raw, name string) (*time.Time, error) {
  if raw == "" {
    return nil, nil
  }
  t, err := time.Parse("2006-01-02", raw)
  if err != nil {
    return nil, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", name, raw)
  }
  return &t, nil
}

func main() {
  // .env is optional; real deployments use actual environment variables
  _ = godotenv.Load()

  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  rootCmd := &cobra.Command{
    Use:           "bodyscan",
    Short:         "Ingest body composition scan images and generate progress reports",
    SilenceUsage:  true,
    SilenceErrors: true,
  }

  // -------------------- ingest --------------------
  var ingestForce bool
  var ingestExport string
  ingestCmd := &cobra.Command{
    Use:   "ingest <folder>",
    Short: "Process every scan image in a folder, skipping already-known files",
    Args:  cobra.ExactArgs(1),
    RunE: func(cmd *cobra.Command, args []string) error {
      a, err := buildApp(log)
      if err != nil {
        return err
      }
      stats, err := a.ingestService.ProcessFolder(cmd.Context(), args[0], ingestForce)
      if err != nil {
        return err
      }
      fmt.Printf("Total: %d  Processed: %d  Skipped: %d  Failed: %d\n",
        stats.Total, stats.Processed, stats.Skipped, stats.Failed)
      if ingestExport != "" {
        path, err := a.ingestService.ExportJSON(cmd.Context(), ingestExport)
        if err != nil {
          return err
        }
        fmt.Printf("Exported results to %s\n", path)
      }
      return nil
    },
  }
  ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "reprocess images even when their content hash is already known")
  ingestCmd.Flags().StringVar(&ingestExport, "export", "", "also export all stored records to the given JSON file")

  // -------------------- report --------------------
  var reportStart, reportEnd, reportOutput, reportTitle string
  reportCmd := &cobra.Command{
    Use:   "report",
    Short: "Generate a PDF progress report from stored scans",
    RunE: func(cmd *cobra.Command, args []string) error {
      a, err := buildApp(log)
      if err != nil {
        return err
      }
      start, err := parseDateFlag(reportStart, "start date")
      if err != nil {
        return err
      }
      end, err := parseDateFlag(reportEnd, "end date")
      if err != nil {
        return err
      }
      path, err := a.reportService.Generate(cmd.Context(), services.ReportOptions{
        OutputPath: reportOutput,
        StartDate:  start,
        EndDate:    end,
        Title:      reportTitle,
      })
      if err != nil {
        return err
      }
      fmt.Printf("Report written to %s\n", path)
      return nil
    },
  }
  reportCmd.Flags().StringVar(&reportStart, "start-date", "", "include scans on or after this date (YYYY-MM-DD)")
  reportCmd.Flags().StringVar(&reportEnd, "end-date", "", "include scans on or before this date (YYYY-MM-DD)")
  reportCmd.Flags().StringVar(&reportOutput, "output", "", "output PDF path (default: timestamped name)")
  reportCmd.Flags().StringVar(&reportTitle, "title", "", "report title override")

  // -------------------- range --------------------
  rangeCmd := &cobra.Command{
    Use:   "range",
    Short: "Show the date range covered by stored scans",
    RunE: func(cmd *cobra.Command, args []string) error {
      a, err := buildApp(log)
      if err != nil {
        return err
      }
      start, end, err := a.recordRepo.GetRange(cmd.Context(), nil)
      if err != nil {
        return err
      }
      if start == nil || end == nil {
        fmt.Println("No scans stored yet")
        return nil
      }
      count, err := a.recordRepo.Count(cmd.Context(), nil)
      if err != nil {
        return err
      }
      fmt.Printf("%d scans from %s to %s\n", count, start.Format("2006-01-02"), end.Format("2006-01-02"))
      return nil
    },
  }

  // -------------------- export --------------------
  var exportOutput string
  exportCmd := &cobra.Command{
    Use:   "export",
    Short: "Export all stored scan records to JSON",
    RunE: func(cmd *cobra.Command, args []string) error {
      a, err := buildApp(log)
      if err != nil {
        return err
      }
      path, err := a.ingestService.ExportJSON(cmd.Context(), exportOutput)
      if err != nil {
        return err
      }
      fmt.Printf("Exported results to %s\n", path)
      return nil
    },
  }
  exportCmd.Flags().StringVar(&exportOutput, "output", "", "output JSON path (default: timestamped name)")

  // -------------------- serve --------------------
  serveCmd := &cobra.Command{
    Use:   "serve",
    Short: "Run the HTTP API for browsing records and generating reports",
    RunE: func(cmd *cobra.Command, args []string) error {
      a, err := buildApp(log)
      if err != nil {
        return err
      }
      scanHandler := handlers.NewScanHandler(a.recordRepo, a.ingestService, a.statsService, a.reportService)
      router := server.NewRouter(server.RouterConfig{ScanHandler: scanHandler})
      port := utils.GetEnv("PORT", "8080", log)
      fmt.Printf("Server listening on :%s\n", port)
      return router.Run(":" + port)
    },
  }

  rootCmd.AddCommand(ingestCmd, reportCmd, rangeCmd, exportCmd, serveCmd)

  if err := rootCmd.Execute(); err != nil {
    log.Error("Command failed", "error", err)
    os.Exit(1)
  }
}
