package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"financial-reconciliation-backend/internal/config"
	handler "financial-reconciliation-backend/internal/handlers"
	"financial-reconciliation-backend/internal/llm"
	"financial-reconciliation-backend/internal/pipeline"
	"financial-reconciliation-backend/internal/runs"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.App, log *zap.SugaredLogger) {
	runService := runs.NewService(db)

	var narrator llm.Client
	if cfg.AnthropicAPIKey != "" {
		narrator = llm.NewClient(cfg.AnthropicAPIKey, cfg.NarrationModel)
	}
	pipe := pipeline.New(runService, cfg.Engine, narrator, cfg.OutputDir, log)
	runHandler := handler.NewRunHandler(runService, pipe.Run, cfg.DataDir, log)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	recon := api.Group("/reconciliation")
	recon.POST("/upload", runHandler.Upload)
	recon.POST("/start", runHandler.Start)
	recon.GET("/runs", runHandler.ListRuns)
	recon.GET("/:runId", runHandler.GetStatus)
	recon.GET("/:runId/logs", runHandler.GetLogs)
	recon.GET("/:runId/download", runHandler.Download)
}
