package report

import (
	"bytes"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"financial-reconciliation-backend/internal/explain"
	"financial-reconciliation-backend/internal/reconcile"
)

const (
	sheetReconciled    = "Reconciled Transactions"
	sheetMissingInBank = "Missing in Bank"
	sheetNonInvoice    = "Non-Invoice Items"
)

var reconciledHeaders = []string{
	"bank_ref", "bank_date", "bank_invoice", "bank_amount",
	"erp_row_id", "erp_date", "erp_invoice", "erp_amount",
	"match_status", "match_confidence", "exception_type",
	"explanation", "rule_fired",
}

// BuildReconciledWorkbook renders the master reconciliation workbook: all
// matcher results on the first sheet, unmatched ERP rows and non-invoice
// items on their own sheets.
func BuildReconciledWorkbook(matches []explain.ExplainedMatch, erp []reconcile.ClassifiedErp, nonInvoice []explain.ExplainedMatch) ([]byte, error) {
	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), sheetReconciled)

	if err := writeRow(f, sheetReconciled, 1, toCells(reconciledHeaders)); err != nil {
		return nil, err
	}
	for i, m := range matches {
		if err := writeRow(f, sheetReconciled, i+2, matchCells(m)); err != nil {
			return nil, err
		}
	}

	missing := make([]reconcile.ClassifiedErp, 0)
	for _, e := range erp {
		if e.Exception == reconcile.ExceptionMissingInBank {
			missing = append(missing, e)
		}
	}
	if len(missing) > 0 {
		if _, err := f.NewSheet(sheetMissingInBank); err != nil {
			return nil, eris.Wrap(err, "report: add sheet")
		}
		if err := writeRow(f, sheetMissingInBank, 1, toCells([]string{"erp_row_id", "invoice_id", "amount", "date", "exception_type"})); err != nil {
			return nil, err
		}
		for i, e := range missing {
			cells := []interface{}{e.ErpRowID, e.InvoiceID, e.Amount, e.Date, string(e.Exception)}
			if err := writeRow(f, sheetMissingInBank, i+2, cells); err != nil {
				return nil, err
			}
		}
	}

	if len(nonInvoice) > 0 {
		if _, err := f.NewSheet(sheetNonInvoice); err != nil {
			return nil, eris.Wrap(err, "report: add sheet")
		}
		if err := writeRow(f, sheetNonInvoice, 1, toCells([]string{"bank_ref", "bank_date", "description", "amount", "kind", "explanation"})); err != nil {
			return nil, err
		}
		for i, m := range nonInvoice {
			cells := []interface{}{m.BankRef, m.BankDate, m.BankDescription, m.BankAmount, string(m.NonInvoiceKind), m.Explanation}
			if err := writeRow(f, sheetNonInvoice, i+2, cells); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "report: write workbook")
	}
	return buf.Bytes(), nil
}

func matchCells(m explain.ExplainedMatch) []interface{} {
	var erpRowID interface{}
	var erpDate, erpInvoice interface{}
	var erpAmount interface{}
	if m.ErpRowID != 0 {
		erpRowID = m.ErpRowID
		erpDate = m.ErpDate
		erpInvoice = m.ErpInvoiceID
		erpAmount = m.ErpAmount
	}
	return []interface{}{
		m.BankRef, m.BankDate, m.BankInvoiceID, m.BankAmount,
		erpRowID, erpDate, erpInvoice, erpAmount,
		string(m.Status), m.Confidence, string(m.Exception),
		m.Explanation, m.RuleFired,
	}
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	for j, v := range cells {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(j+1, row)
		if err != nil {
			return eris.Wrap(err, "report: cell name")
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return eris.Wrap(err, fmt.Sprintf("report: set cell %s", cell))
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
