package main

import (
	"log"
	"os"
	"time"

	"financial-reconciliation-backend/internal/config"
	"financial-reconciliation-backend/internal/models"
	"financial-reconciliation-backend/internal/routes"
	"financial-reconciliation-backend/pkg/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg := config.Load()

	logger, err := logging.Init(os.Getenv("LOG_DEV") != "")
	if err != nil {
		log.Fatalf("could not initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := config.InitDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("database connection failed", "error", err)
	}

	if err := db.AutoMigrate(
		&models.ReconciliationRun{},
		&models.AgentLog{},
	); err != nil {
		logger.Fatalw("migration failed", "error", err)
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, cfg, logger)

	logger.Infow("server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatalw("server stopped", "error", err)
	}
}
