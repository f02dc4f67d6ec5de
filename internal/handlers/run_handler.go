package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"financial-reconciliation-backend/internal/models"
	"financial-reconciliation-backend/internal/report"
)

// RunStore is the run bookkeeping the handlers read and transition.
type RunStore interface {
	CreateRun(bankFile, erpFile string) (*models.ReconciliationRun, error)
	GetRun(id uuid.UUID) (*models.ReconciliationRun, error)
	ListRuns(limit int) ([]models.ReconciliationRun, error)
	GetLogs(runID uuid.UUID) ([]models.AgentLog, error)
	ClaimPending(id uuid.UUID) (bool, error)
}

// StartFunc executes the reconciliation pipeline for a claimed run.
type StartFunc func(runID uuid.UUID, bankPath, erpPath string) error

type RunHandler struct {
	runs    RunStore
	start   StartFunc
	dataDir string
	log     *zap.SugaredLogger
}

func NewRunHandler(runs RunStore, start StartFunc, dataDir string, log *zap.SugaredLogger) *RunHandler {
	return &RunHandler{runs: runs, start: start, dataDir: dataDir, log: log}
}

// Upload receives the bank statement and ERP export as multipart files and
// registers a pending run.
func (h *RunHandler) Upload(c *gin.Context) {
	bank, err := c.FormFile("bank")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bank file is required"})
		return
	}
	erp, err := c.FormFile("erp")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "erp file is required"})
		return
	}

	if err := os.MkdirAll(h.dataDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not prepare upload directory"})
		return
	}
	id := uuid.New()
	bankPath := filepath.Join(h.dataDir, fmt.Sprintf("%s_bank%s", id, filepath.Ext(bank.Filename)))
	erpPath := filepath.Join(h.dataDir, fmt.Sprintf("%s_erp%s", id, filepath.Ext(erp.Filename)))
	if err := c.SaveUploadedFile(bank, bankPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save bank file"})
		return
	}
	if err := c.SaveUploadedFile(erp, erpPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save erp file"})
		return
	}

	run, err := h.runs.CreateRun(bankPath, erpPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"run_id": run.ID,
		"status": run.Status,
	})
}

// Start launches the reconciliation pipeline for an uploaded run in the
// background and returns immediately.
func (h *RunHandler) Start(c *gin.Context) {
	var body struct {
		RunID string `json:"run_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id is required"})
		return
	}
	id, err := uuid.Parse(body.RunID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}
	run, err := h.runs.GetRun(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	// Claim the pending->processing transition in the store so concurrent
	// starts of the same run launch the pipeline at most once.
	claimed, err := h.runs.ClaimPending(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !claimed {
		c.JSON(http.StatusConflict, gin.H{"error": "run already started", "status": run.Status})
		return
	}

	go func() {
		if err := h.start(run.ID, run.BankFile, run.ErpFile); err != nil {
			h.log.Errorw("run failed", "run_id", run.ID, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID, "status": models.RunStatusProcessing})
}

func (h *RunHandler) GetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}
	run, err := h.runs.GetRun(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *RunHandler) GetLogs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}
	logs, err := h.runs.GetLogs(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "logs": logs})
}

// Download streams a zip bundle of the run's output artifacts.
func (h *RunHandler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}
	run, err := h.runs.GetRun(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if run.Status != models.RunStatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run has not completed", "status": run.Status})
		return
	}

	var paths []string
	if err := json.Unmarshal(run.OutputFiles, &paths); err != nil || len(paths) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no output files recorded for run"})
		return
	}
	files := make(map[string]string, len(paths))
	for _, path := range paths {
		files[filepath.Base(path)] = path
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="reconciliation_%s.zip"`, id))
	if err := report.WriteBundle(c.Writer, files); err != nil {
		h.log.Errorw("download failed", "run_id", id, "error", err)
	}
}

func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.runs.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": list, "count": len(list)})
}
