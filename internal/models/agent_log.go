package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AgentLog is one audit entry recorded by a pipeline stage. Together the
// entries for a run form the audit trail for its match decisions.
type AgentLog struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID        uuid.UUID `gorm:"index"`
	AgentName    string
	InputSummary string
	Output       datatypes.JSON
	Reasoning    string
	Decision     string
	Confidence   float64
	RuleFired    string
	CreatedAt    time.Time
}
