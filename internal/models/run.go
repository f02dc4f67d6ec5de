package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Run statuses.
const (
	RunStatusPending    = "pending"
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

// ReconciliationRun is the persisted bookkeeping row for one end-to-end run.
type ReconciliationRun struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"run_id"`
	Status         string         `gorm:"index" json:"status"`
	Progress       int            `json:"progress"`
	CurrentStep    string         `json:"current_step"`
	StepsCompleted datatypes.JSON `json:"steps_completed"`
	Errors         datatypes.JSON `json:"errors"`

	BankFile    string         `json:"bank_file"`
	ErpFile     string         `json:"erp_file"`
	OutputFiles datatypes.JSON `json:"output_files"`
	Summary     datatypes.JSON `json:"summary"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}
