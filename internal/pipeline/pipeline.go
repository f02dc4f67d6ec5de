package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"financial-reconciliation-backend/internal/explain"
	"financial-reconciliation-backend/internal/ingest"
	"financial-reconciliation-backend/internal/llm"
	"financial-reconciliation-backend/internal/reconcile"
	"financial-reconciliation-backend/internal/report"
	"financial-reconciliation-backend/pkg/logging"
)

// AgentEntry is one audit record emitted by a pipeline stage.
type AgentEntry struct {
	AgentName    string
	InputSummary string
	Output       interface{}
	Reasoning    string
	Decision     string
	Confidence   float64
	RuleFired    string
}

// Store is the run bookkeeping the pipeline reports into.
type Store interface {
	UpdateStep(id uuid.UUID, step string, progress int) error
	MarkCompleted(id uuid.UUID, outputFiles []string, summary reconcile.RunSummary) error
	MarkFailed(id uuid.UUID, stage string, runErr error) error
	SaveAgentLog(runID uuid.UUID, entry AgentEntry) error
}

// Stage progress checkpoints reported to the store.
const (
	progressIngestBank = 10
	progressIngestErp  = 20
	progressDedupe     = 35
	progressMatcher    = 50
	progressClassifier = 70
	progressExplain    = 85
	progressOutput     = 95
)

type Pipeline struct {
	store     Store
	cfg       reconcile.Config
	narrator  llm.Client
	outputDir string
	log       *zap.SugaredLogger
}

func New(store Store, cfg reconcile.Config, narrator llm.Client, outputDir string, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{
		store:     store,
		cfg:       cfg,
		narrator:  narrator,
		outputDir: outputDir,
		log:       log,
	}
}

// Run executes the full reconciliation for one run: ingest both sources,
// dedupe, match, classify, explain, and write the output artifacts. Any
// stage failure marks the run failed with the stage name.
func (p *Pipeline) Run(runID uuid.UUID, bankPath, erpPath string) error {
	start := time.Now()
	p.log.Infow("[PIPELINE] run started", "run_id", runID, "bank_file", bankPath, "erp_file", erpPath)

	fail := func(stage string, err error) error {
		p.log.Errorw("[PIPELINE] stage failed", "run_id", runID, "stage", stage, "error", err)
		if storeErr := p.store.MarkFailed(runID, stage, err); storeErr != nil {
			p.log.Errorw("[PIPELINE] could not persist failure", "run_id", runID, "error", storeErr)
		}
		return eris.Wrapf(err, "pipeline: stage %s", stage)
	}

	// Stage: ingest bank statement.
	if err := p.store.UpdateStep(runID, "ingest_bank", progressIngestBank); err != nil {
		return fail("ingest_bank", err)
	}
	bank, err := p.ingestBank(bankPath)
	if err != nil {
		return fail("ingest_bank", err)
	}
	p.logAgent(runID, AgentEntry{
		AgentName:    "ingest_bank",
		InputSummary: fmt.Sprintf("file=%s", filepath.Base(bankPath)),
		Output:       map[string]interface{}{"records": len(bank)},
		Decision:     fmt.Sprintf("parsed %d bank transactions", len(bank)),
		Confidence:   1.0,
	})

	// Stage: ingest ERP export.
	if err := p.store.UpdateStep(runID, "ingest_erp", progressIngestErp); err != nil {
		return fail("ingest_erp", err)
	}
	erpResult, err := p.ingestERP(erpPath)
	if err != nil {
		return fail("ingest_erp", err)
	}
	p.logAgent(runID, AgentEntry{
		AgentName:    "ingest_erp",
		InputSummary: fmt.Sprintf("file=%s", filepath.Base(erpPath)),
		Output: map[string]interface{}{
			"records":  len(erpResult.Records),
			"mapping":  erpResult.Mapping,
			"warnings": erpResult.Warnings,
		},
		Reasoning:  strings.Join(erpResult.Warnings, "; "),
		Decision:   fmt.Sprintf("parsed %d ERP records", len(erpResult.Records)),
		Confidence: 1.0,
	})

	// Stage: dedupe both sides.
	if err := p.store.UpdateStep(runID, "dedupe", progressDedupe); err != nil {
		return fail("dedupe", err)
	}
	bank, bankGroups := reconcile.DedupeBank(bank, reconcile.DefaultDupKeyFields)
	erp, erpGroups := reconcile.DedupeERP(erpResult.Records, reconcile.DefaultDupKeyFields)
	p.logAgent(runID, AgentEntry{
		AgentName:    "dedupe",
		InputSummary: fmt.Sprintf("bank=%d erp=%d", len(bank), len(erp)),
		Output: map[string]interface{}{
			"bank_duplicate_groups": len(bankGroups),
			"erp_duplicate_groups":  len(erpGroups),
		},
		Decision:   fmt.Sprintf("flagged %d bank and %d ERP duplicate groups", len(bankGroups), len(erpGroups)),
		Confidence: 1.0,
	})

	// Stage: three-tier matching.
	if err := p.store.UpdateStep(runID, "matcher", progressMatcher); err != nil {
		return fail("matcher", err)
	}
	outcome := reconcile.Match(bank, erp, p.cfg)
	p.logAgent(runID, AgentEntry{
		AgentName:    "matcher",
		InputSummary: fmt.Sprintf("bank=%d erp=%d", len(bank), len(erp)),
		Output:       outcome.Stats,
		Decision: fmt.Sprintf("exact=%d rounding=%d fuzzy=%d unmatched=%d",
			outcome.Stats.ExactMatches, outcome.Stats.RoundingMatches,
			outcome.Stats.FuzzyMatches, outcome.Stats.NoMatch),
		Confidence: 1.0,
	})

	// Stage: exception classification.
	if err := p.store.UpdateStep(runID, "classifier", progressClassifier); err != nil {
		return fail("classifier", err)
	}
	classification := reconcile.Classify(bank, erp, outcome.Results, outcome.UsedErpIDs, p.cfg)
	p.logAgent(runID, AgentEntry{
		AgentName:    "classifier",
		InputSummary: fmt.Sprintf("results=%d", len(outcome.Results)),
		Output:       classification.Stats,
		Decision:     fmt.Sprintf("%d exceptions identified", classification.Stats.TotalExceptions),
		Confidence:   1.0,
	})

	// Stage: explanations and optional narrative.
	if err := p.store.UpdateStep(runID, "explain", progressExplain); err != nil {
		return fail("explain", err)
	}
	explainer := explain.New(p.narrator, p.log)
	matches := explainer.ExplainMatches(classification.Matches)
	nonInvoice := explainer.ExplainMatches(classification.NonInvoice)
	summary := reconcile.Summarize(bank, erp, bankGroups, erpGroups, outcome.Stats, classification.Stats)
	summaryText := explain.SummaryReport(summary, p.cfg)
	narrative := explainer.Narrate(context.Background(), summary)
	if narrative != "" {
		summaryText += "\nNARRATIVE\n---------\n" + narrative + "\n"
	}
	p.logAgent(runID, AgentEntry{
		AgentName:    "explain",
		InputSummary: fmt.Sprintf("matches=%d non_invoice=%d", len(matches), len(nonInvoice)),
		Decision:     fmt.Sprintf("explained %d rows, narrative=%t", len(matches)+len(nonInvoice), narrative != ""),
		Confidence:   1.0,
	})

	// Stage: output artifacts.
	if err := p.store.UpdateStep(runID, "output", progressOutput); err != nil {
		return fail("output", err)
	}
	outputFiles, err := p.writeOutputs(runID, matches, nonInvoice, classification.Erp, summary, summaryText)
	if err != nil {
		return fail("output", err)
	}
	p.logAgent(runID, AgentEntry{
		AgentName:    "output",
		InputSummary: fmt.Sprintf("artifacts=%d", len(outputFiles)),
		Output:       outputFiles,
		Decision:     "wrote reconciliation artifacts",
		Confidence:   1.0,
	})

	if err := p.store.MarkCompleted(runID, outputFiles, summary); err != nil {
		return fail("completed", err)
	}
	p.log.Infow("[PIPELINE] run completed",
		"run_id", runID,
		"duration", time.Since(start).String(),
		"match_rate", summary.MatchRate)
	return nil
}

func (p *Pipeline) ingestBank(path string) ([]reconcile.BankRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open bank file")
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ingest.ParseBankCSV(f)
	}
	return ingest.ParseBankStatement(f)
}

func (p *Pipeline) ingestERP(path string) (*ingest.ERPResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open erp file")
	}
	defer f.Close()
	return ingest.ParseERP(f)
}

func (p *Pipeline) writeOutputs(runID uuid.UUID, matches, nonInvoice []explain.ExplainedMatch, erp []reconcile.ClassifiedErp, summary reconcile.RunSummary, summaryText string) ([]string, error) {
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "create output dir")
	}
	id := runID.String()
	now := time.Now()

	workbook, err := report.BuildReconciledWorkbook(matches, erp, nonInvoice)
	if err != nil {
		return nil, err
	}
	pdf, err := report.BuildSummaryPDF(id, summary, now)
	if err != nil {
		return nil, err
	}
	snapshot, err := report.ConfigSnapshot(id, p.cfg, now)
	if err != nil {
		return nil, err
	}

	artifacts := []struct {
		name string
		data []byte
	}{
		{fmt.Sprintf("reconciled_master_%s.xlsx", id), workbook},
		{fmt.Sprintf("summary_report_%s.pdf", id), pdf},
		{fmt.Sprintf("summary_%s.txt", id), []byte(summaryText)},
		{fmt.Sprintf("run_config_%s.json", id), snapshot},
	}
	files := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := filepath.Join(p.outputDir, a.name)
		if err := os.WriteFile(path, a.data, 0o644); err != nil {
			return nil, eris.Wrapf(err, "write %s", a.name)
		}
		files = append(files, path)
	}
	return files, nil
}

func (p *Pipeline) logAgent(runID uuid.UUID, entry AgentEntry) {
	logging.Agent(p.log, entry.AgentName).Infow("[AGENT] END",
		"run_id", runID, "decision", entry.Decision)
	if err := p.store.SaveAgentLog(runID, entry); err != nil {
		p.log.Warnw("[PIPELINE] could not save agent log",
			"run_id", runID, "agent", entry.AgentName, "error", err)
	}
}
