package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/rotisserie/eris"

	"financial-reconciliation-backend/internal/reconcile"
)

// BuildSummaryPDF renders the one-page run summary.
func BuildSummaryPDF(runID string, s reconcile.RunSummary, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Financial Reconciliation Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Run ID: %s", runID), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format("2006-01-02 15:04:05")), "", 1, "", false, 0, "")
	pdf.Ln(3)

	section := func(title string, lines []string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, title, "", 1, "", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, line := range lines {
			pdf.CellFormat(0, 6, line, "", 1, "", false, 0, "")
		}
		pdf.Ln(3)
	}

	section("Executive Summary", []string{
		fmt.Sprintf("Bank Transactions: %d", s.TotalBankTransactions),
		fmt.Sprintf("ERP Records: %d", s.TotalErpRecords),
		fmt.Sprintf("Overall Match Rate: %.1f%%", s.MatchRate),
	})

	section("Matching Results", []string{
		fmt.Sprintf("Exact Matches: %d", s.Match.ExactMatches),
		fmt.Sprintf("Rounding Matches: %d", s.Match.RoundingMatches),
		fmt.Sprintf("Fuzzy Matches: %d", s.Match.FuzzyMatches),
		fmt.Sprintf("Unmatched: %d", s.Match.NoMatch),
	})

	section("Exceptions Identified", []string{
		fmt.Sprintf("Missing in ERP: %d", s.Exceptions.MissingInERP),
		fmt.Sprintf("Missing in Bank: %d", s.Exceptions.MissingInBank),
		fmt.Sprintf("Non-Invoice Items: %d", s.Exceptions.NonInvoiceItems),
		fmt.Sprintf("Manual Review Required: %d", s.Exceptions.ManualReview),
	})

	section("Recommendations", []string{
		"- Review all Missing in ERP items for data entry gaps",
		"- Verify Missing in Bank items for timing differences",
		"- Manually verify low-confidence fuzzy matches",
		"- Non-invoice items should be reconciled separately",
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, eris.Wrap(err, "report: write pdf")
	}
	return buf.Bytes(), nil
}
