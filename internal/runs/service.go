package runs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"financial-reconciliation-backend/internal/models"
	"financial-reconciliation-backend/internal/pipeline"
	"financial-reconciliation-backend/internal/reconcile"
)

// Service persists run bookkeeping and agent audit logs.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateRun registers a new pending run for the given uploaded files.
func (s *Service) CreateRun(bankFile, erpFile string) (*models.ReconciliationRun, error) {
	run := &models.ReconciliationRun{
		ID:             uuid.New(),
		Status:         models.RunStatusPending,
		Progress:       0,
		CurrentStep:    "uploaded",
		StepsCompleted: datatypes.JSON([]byte("[]")),
		Errors:         datatypes.JSON([]byte("[]")),
		BankFile:       bankFile,
		ErpFile:        erpFile,
		StartedAt:      time.Now(),
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, eris.Wrap(err, "runs: create run")
	}
	return run, nil
}

func (s *Service) GetRun(id uuid.UUID) (*models.ReconciliationRun, error) {
	var run models.ReconciliationRun
	if err := s.db.First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs newest first.
func (s *Service) ListRuns(limit int) ([]models.ReconciliationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.ReconciliationRun
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, eris.Wrap(err, "runs: list runs")
	}
	return runs, nil
}

// ClaimPending transitions a run from pending to processing and reports
// whether this caller won the transition. The guard lives in the UPDATE's
// WHERE clause so concurrent starts of the same run race on one row write.
func (s *Service) ClaimPending(id uuid.UUID) (bool, error) {
	res := s.db.Model(&models.ReconciliationRun{}).
		Where("id = ? AND status = ?", id, models.RunStatusPending).
		Update("status", models.RunStatusProcessing)
	if res.Error != nil {
		return false, eris.Wrap(res.Error, "runs: claim pending run")
	}
	return res.RowsAffected == 1, nil
}

// UpdateStep moves a run to the given pipeline step, appending the previous
// step to steps_completed.
func (s *Service) UpdateStep(id uuid.UUID, step string, progress int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var run models.ReconciliationRun
		if err := tx.First(&run, "id = ?", id).Error; err != nil {
			return eris.Wrap(err, "runs: load run for step update")
		}
		steps := decodeStrings(run.StepsCompleted)
		if run.CurrentStep != "" && run.CurrentStep != "uploaded" {
			steps = append(steps, run.CurrentStep)
		}
		updates := map[string]interface{}{
			"status":          models.RunStatusProcessing,
			"current_step":    step,
			"progress":        progress,
			"steps_completed": encodeJSON(steps),
		}
		return tx.Model(&run).Updates(updates).Error
	})
}

// MarkCompleted finalizes a successful run with its output files and summary.
func (s *Service) MarkCompleted(id uuid.UUID, outputFiles []string, summary reconcile.RunSummary) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.RunStatusCompleted,
		"progress":     100,
		"current_step": "completed",
		"output_files": encodeJSON(outputFiles),
		"summary":      encodeJSON(summary),
		"completed_at": &now,
	}
	err := s.db.Model(&models.ReconciliationRun{}).Where("id = ?", id).Updates(updates).Error
	return eris.Wrap(err, "runs: mark completed")
}

// MarkFailed records a failed run together with the stage that broke.
func (s *Service) MarkFailed(id uuid.UUID, stage string, runErr error) error {
	now := time.Now()
	errs := []map[string]string{{
		"stage": stage,
		"error": runErr.Error(),
	}}
	updates := map[string]interface{}{
		"status":       models.RunStatusFailed,
		"current_step": stage,
		"errors":       encodeJSON(errs),
		"completed_at": &now,
	}
	err := s.db.Model(&models.ReconciliationRun{}).Where("id = ?", id).Updates(updates).Error
	return eris.Wrap(err, "runs: mark failed")
}

// SaveAgentLog appends one audit entry for a pipeline stage.
func (s *Service) SaveAgentLog(runID uuid.UUID, entry pipeline.AgentEntry) error {
	log := &models.AgentLog{
		ID:           uuid.New(),
		RunID:        runID,
		AgentName:    entry.AgentName,
		InputSummary: entry.InputSummary,
		Output:       encodeJSON(entry.Output),
		Reasoning:    entry.Reasoning,
		Decision:     entry.Decision,
		Confidence:   entry.Confidence,
		RuleFired:    entry.RuleFired,
	}
	return eris.Wrap(s.db.Create(log).Error, "runs: save agent log")
}

// GetLogs returns the audit trail for a run in insertion order.
func (s *Service) GetLogs(runID uuid.UUID) ([]models.AgentLog, error) {
	var logs []models.AgentLog
	if err := s.db.Where("run_id = ?", runID).Order("created_at ASC").Find(&logs).Error; err != nil {
		return nil, eris.Wrap(err, "runs: get logs")
	}
	return logs, nil
}

func encodeJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(data)
}

func decodeStrings(raw datatypes.JSON) []string {
	var out []string
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
