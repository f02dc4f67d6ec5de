package config

import (
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"financial-reconciliation-backend/internal/reconcile"
)

// App holds process configuration, loaded from the environment.
type App struct {
	Port            string
	DatabaseURL     string
	DataDir         string
	OutputDir       string
	AnthropicAPIKey string
	NarrationModel  string
	Engine          reconcile.Config
}

// Load reads configuration from the environment, with working defaults for
// local development. Matching thresholds can be tuned per deployment.
func Load() App {
	engine := reconcile.DefaultConfig()
	engine.AmountRoundingTolerance = envFloat("AMOUNT_ROUNDING_TOLERANCE", engine.AmountRoundingTolerance)
	engine.FuzzyAmountAbs = envFloat("FUZZY_AMOUNT_ABS", engine.FuzzyAmountAbs)
	engine.FuzzyDateDays = envInt("FUZZY_DATE_DAYS", engine.FuzzyDateDays)
	engine.ConfidenceThresholdHumanReview = envFloat("CONFIDENCE_THRESHOLD_HUMAN_REVIEW", engine.ConfidenceThresholdHumanReview)

	return App{
		Port:            env("PORT", "8080"),
		DatabaseURL:     env("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=reconciliation port=5432 sslmode=disable"),
		DataDir:         env("DATA_DIR", "data/uploads"),
		OutputDir:       env("OUTPUT_DIR", "data/outputs"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		NarrationModel:  env("NARRATION_MODEL", "claude-3-5-haiku-latest"),
		Engine:          engine,
	}
}

// InitDB opens the postgres connection.
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, eris.Wrap(err, "config: connect to database")
	}
	return db, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
