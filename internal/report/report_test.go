package report

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"financial-reconciliation-backend/internal/explain"
	"financial-reconciliation-backend/internal/reconcile"
)

func TestBuildReconciledWorkbook(t *testing.T) {
	matches := []explain.ExplainedMatch{
		{
			ClassifiedMatch: reconcile.ClassifiedMatch{MatchResult: reconcile.MatchResult{
				BankRef: "1", BankDate: "2024-01-10", BankInvoiceID: "INV100", BankAmount: 500.00,
				ErpRowID: 1, ErpInvoiceID: "INV100", ErpAmount: 500.00, ErpDate: "2024-01-10",
				Status: reconcile.StatusExactMatch, Confidence: 0.99, RuleFired: reconcile.RuleExactInvoiceAmount,
			}},
			Explanation: "Invoice INV100 ($500.00) matched exactly with ERP record. High confidence match.",
		},
		{
			ClassifiedMatch: reconcile.ClassifiedMatch{
				MatchResult: reconcile.MatchResult{BankRef: "2", BankInvoiceID: "INV200", BankAmount: 10.00,
					Status: reconcile.StatusNoMatch, RuleFired: reconcile.RuleNoMatchFound},
				Exception: reconcile.ExceptionMissingInERP,
			},
			Explanation: "no match",
		},
	}
	erp := []reconcile.ClassifiedErp{
		{ErpRecord: reconcile.ErpRecord{ErpRowID: 1, InvoiceID: "INV100", Amount: 500.00}, Matched: true},
		{ErpRecord: reconcile.ErpRecord{ErpRowID: 2, InvoiceID: "INV300", Amount: 42.00}, Exception: reconcile.ExceptionMissingInBank},
	}
	nonInvoice := []explain.ExplainedMatch{
		{
			ClassifiedMatch: reconcile.ClassifiedMatch{
				MatchResult:    reconcile.MatchResult{BankRef: "3", BankAmount: -15.00, BankDescription: "Monthly bank fee", Status: reconcile.StatusNonInvoice},
				Exception:      reconcile.ExceptionNonInvoiceItem,
				NonInvoiceKind: reconcile.NonInvoiceBankFee,
			},
			Explanation: "Non-invoice bank item: Bank Fee of $-15.00",
		},
	}

	data, err := BuildReconciledWorkbook(matches, erp, nonInvoice)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t,
		[]string{"Reconciled Transactions", "Missing in Bank", "Non-Invoice Items"},
		f.GetSheetList())

	rows, err := f.GetRows("Reconciled Transactions")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "bank_ref", rows[0][0])
	assert.Equal(t, "INV100", rows[1][2])
	assert.Equal(t, "Exact Match", rows[1][8])

	missing, err := f.GetRows("Missing in Bank")
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, "INV300", missing[1][1])
}

func TestBuildReconciledWorkbookOmitsEmptySheets(t *testing.T) {
	data, err := BuildReconciledWorkbook(nil, nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Reconciled Transactions"}, f.GetSheetList())
}

func TestBuildSummaryPDF(t *testing.T) {
	s := reconcile.RunSummary{
		TotalBankTransactions: 10,
		TotalErpRecords:       8,
		Match:                 reconcile.MatchStats{ExactMatches: 6, NoMatch: 1},
		MatchRate:             85.7,
	}

	data, err := BuildSummaryPDF("20240110_120000", s, time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestConfigSnapshot(t *testing.T) {
	data, err := ConfigSnapshot("run1", reconcile.DefaultConfig(), time.Now())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run1"`)
	assert.Contains(t, string(data), "AmountRoundingTolerance")
}

func TestWriteBundle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	var buf bytes.Buffer
	err := WriteBundle(&buf, map[string]string{
		"results/summary.txt": path,
		"results/missing.txt": filepath.Join(dir, "does-not-exist"),
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "results/summary.txt", zr.File[0].Name)
}
