package explain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"financial-reconciliation-backend/internal/llm"
	"financial-reconciliation-backend/internal/reconcile"
)

// ExplainedMatch pairs a classified result with its human-readable
// explanation. The explanation is derived from the deterministic fields
// only; it describes the decision, it never makes one.
type ExplainedMatch struct {
	reconcile.ClassifiedMatch
	Explanation string
}

// Explainer renders explanations and summary text for a run. The narrator
// is optional; when present it appends advisory commentary to the summary
// and its failures are logged and dropped.
type Explainer struct {
	narrator llm.Client
	log      *zap.SugaredLogger
}

func New(narrator llm.Client, log *zap.SugaredLogger) *Explainer {
	return &Explainer{narrator: narrator, log: log}
}

// ExplainMatches attaches a row explanation to every classified result.
func (e *Explainer) ExplainMatches(matches []reconcile.ClassifiedMatch) []ExplainedMatch {
	out := make([]ExplainedMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, ExplainedMatch{
			ClassifiedMatch: m,
			Explanation:     RowExplanation(m),
		})
	}
	return out
}

// RowExplanation describes one match decision in plain language.
func RowExplanation(m reconcile.ClassifiedMatch) string {
	invoice := m.BankInvoiceID
	if invoice == "" {
		invoice = "N/A"
	}

	switch m.Status {
	case reconcile.StatusExactMatch:
		return fmt.Sprintf("Invoice %s ($%.2f) matched exactly with ERP record. High confidence match.",
			invoice, m.BankAmount)
	case reconcile.StatusRoundingDifference:
		return fmt.Sprintf("Invoice %s matched with $%.4f rounding difference. This is within acceptable tolerance.",
			invoice, m.AmountDifference)
	case reconcile.StatusProbableMatch:
		return fmt.Sprintf("Invoice %s ($%.2f) is a probable match with %.0f%% confidence. Manual verification recommended.",
			invoice, m.BankAmount, m.Confidence*100)
	case reconcile.StatusNoMatch:
		switch m.Exception {
		case reconcile.ExceptionMissingInERP:
			return fmt.Sprintf("Invoice %s ($%.2f) from bank has no matching ERP record. Investigate for missing ERP entry.",
				invoice, m.BankAmount)
		case reconcile.ExceptionNonInvoiceItem:
			return fmt.Sprintf("Bank transaction ($%.2f) is a non-invoice item (fee/adjustment). Excluded from invoice reconciliation.",
				m.BankAmount)
		default:
			return fmt.Sprintf("Invoice %s could not be matched. Requires manual investigation.", invoice)
		}
	case reconcile.StatusNonInvoice:
		kind := string(m.NonInvoiceKind)
		if kind == "" {
			kind = "Unknown"
		}
		return fmt.Sprintf("Non-invoice bank item: %s of $%.2f", kind, m.BankAmount)
	}
	return fmt.Sprintf("Transaction status: %s", m.Status)
}

// SummaryReport renders the run-level text report from the derived
// statistics and the thresholds in effect.
func SummaryReport(s reconcile.RunSummary, cfg reconcile.Config) string {
	var b strings.Builder

	b.WriteString("FINANCIAL RECONCILIATION SUMMARY REPORT\n")
	b.WriteString("========================================\n\n")

	b.WriteString("DATA SUMMARY\n------------\n")
	fmt.Fprintf(&b, "- Bank Transactions Processed: %d\n", s.TotalBankTransactions)
	fmt.Fprintf(&b, "- ERP Records Processed: %d\n", s.TotalErpRecords)
	fmt.Fprintf(&b, "- Invoice Transactions (Bank): %d\n", s.BankInvoiceCount)
	fmt.Fprintf(&b, "- Non-Invoice Items (Bank): %d\n", s.BankNonInvoiceCount)
	fmt.Fprintf(&b, "- Duplicate Rows Flagged: %d bank, %d ERP\n\n", s.BankDuplicateRows, s.ErpDuplicateRows)

	b.WriteString("MATCHING RESULTS\n----------------\n")
	fmt.Fprintf(&b, "- Exact Matches: %d\n", s.Match.ExactMatches)
	fmt.Fprintf(&b, "- Rounding Difference Matches: %d\n", s.Match.RoundingMatches)
	fmt.Fprintf(&b, "- Fuzzy/Probable Matches: %d\n", s.Match.FuzzyMatches)
	fmt.Fprintf(&b, "- Unmatched Transactions: %d\n\n", s.Match.NoMatch)
	fmt.Fprintf(&b, "OVERALL MATCH RATE: %.1f%%\n\n", s.MatchRate)

	b.WriteString("EXCEPTIONS IDENTIFIED\n---------------------\n")
	fmt.Fprintf(&b, "- Missing in ERP: %d\n", s.Exceptions.MissingInERP)
	fmt.Fprintf(&b, "- Missing in Bank: %d\n", s.Exceptions.MissingInBank)
	fmt.Fprintf(&b, "- Non-Invoice Items: %d\n", s.Exceptions.NonInvoiceItems)
	fmt.Fprintf(&b, "- Manual Review Required: %d\n\n", s.Exceptions.ManualReview)

	b.WriteString("MATCHING THRESHOLDS USED\n------------------------\n")
	fmt.Fprintf(&b, "- Rounding Tolerance: $%g\n", cfg.AmountRoundingTolerance)
	fmt.Fprintf(&b, "- Fuzzy Amount Tolerance: $%g\n", cfg.FuzzyAmountAbs)
	fmt.Fprintf(&b, "- Fuzzy Date Tolerance: %d days\n", cfg.FuzzyDateDays)
	fmt.Fprintf(&b, "- Manual Review Threshold: %g\n\n", cfg.ConfidenceThresholdHumanReview)

	b.WriteString("RECOMMENDATIONS\n---------------\n")
	b.WriteString("1. Review all 'Missing in ERP' items for potential data entry gaps\n")
	b.WriteString("2. Verify 'Missing in Bank' items for timing differences or errors\n")
	b.WriteString("3. Manually verify all low-confidence fuzzy matches\n")
	b.WriteString("4. Non-invoice items (fees, adjustments) should be reconciled separately\n")
	b.WriteString("5. Investigate duplicate transactions for potential double-posting\n")

	return b.String()
}

const narrationSystem = "You are a financial reconciliation analyst. Comment on match quality and what to investigate, in 3-4 sentences."

// Narrate asks the optional narrator for commentary on the run. The result
// is advisory text for the report; any failure yields an empty string and
// never affects the run.
func (e *Explainer) Narrate(ctx context.Context, s reconcile.RunSummary) string {
	if e.narrator == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(
		"Reconciliation outcome: %d exact, %d rounding, %d fuzzy, %d unmatched out of %d invoice transactions (match rate %.1f%%). Exceptions: %d missing in ERP, %d missing in bank, %d non-invoice, %d manual review.",
		s.Match.ExactMatches, s.Match.RoundingMatches, s.Match.FuzzyMatches, s.Match.NoMatch,
		s.BankInvoiceCount, s.MatchRate,
		s.Exceptions.MissingInERP, s.Exceptions.MissingInBank,
		s.Exceptions.NonInvoiceItems, s.Exceptions.ManualReview,
	)
	text, err := e.narrator.Narrate(ctx, narrationSystem, prompt)
	if err != nil {
		if e.log != nil {
			e.log.Warnw("narration unavailable", "error", err)
		}
		return ""
	}
	return text
}
