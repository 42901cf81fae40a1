package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "github.com/yungbote/bodyscan-backend/internal/handlers"
)

type RouterConfig struct {
  ScanHandler     *handlers.ScanHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  router.GET("/healthcheck", handlers.HealthCheck)

  api := router.Group("/api/v1")
  {
    api.GET("/records", cfg.ScanHandler.ListRecords)
    api.GET("/range", cfg.ScanHandler.GetRange)
    api.GET("/stats", cfg.ScanHandler.GetStats)
    api.GET("/processing-stats", cfg.ScanHandler.GetProcessingStats)
    api.POST("/reports", cfg.ScanHandler.GenerateReport)
  }

  return router
}
