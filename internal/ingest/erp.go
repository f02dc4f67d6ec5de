package ingest

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"financial-reconciliation-backend/internal/reconcile"
)

// ERP spreadsheet ingestion. The source schema is not under our control, so
// the invoice, amount and date columns are auto-detected from synonym lists;
// all other columns ride along as passthrough fields.

var (
	invoiceSynonyms = []string{
		"invoice", "inv", "invoice_id", "invoiceid", "invoice_no",
		"invoice_number", "inv_id", "inv_no", "invoice #", "inv #",
		"reference", "ref", "transaction_id", "txn_id",
	}
	amountSynonyms = []string{
		"amount", "amt", "value", "total", "payment", "sum",
		"invoice_amount", "payment_amount", "gross", "net",
	}
	dateSynonyms = []string{
		"date", "invoice_date", "payment_date", "transaction_date",
		"txn_date", "posted_date", "created_date", "dt",
	}
)

// ColumnMapping records which source columns were detected for the three
// canonical fields. Empty means not detected.
type ColumnMapping struct {
	InvoiceColumn string `json:"invoice_column"`
	AmountColumn  string `json:"amount_column"`
	DateColumn    string `json:"date_column"`
}

// ERPResult is the ingestion output: normalized records plus the detection
// outcome and any degradation warnings.
type ERPResult struct {
	Records  []reconcile.ErpRecord
	Mapping  ColumnMapping
	Warnings []string
	Schema   []string
}

// ParseERP reads the first sheet of an XLSX workbook. A missing amount
// column degrades to all-zero amounts and a missing date column to absent
// dates; only an unreadable or empty workbook is an error.
func ParseERP(r io.Reader) (*ERPResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open erp workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, eris.New("ingest: erp workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read erp sheet")
	}
	if len(rows) < 2 {
		return nil, eris.New("ingest: erp sheet has no data rows")
	}

	headers := rows[0]
	result := &ERPResult{
		Schema: append([]string(nil), headers...),
		Mapping: ColumnMapping{
			InvoiceColumn: detectColumn(headers, invoiceSynonyms),
			AmountColumn:  detectColumn(headers, amountSynonyms),
			DateColumn:    detectColumn(headers, dateSynonyms),
		},
	}

	invoiceIdx := columnIndex(headers, result.Mapping.InvoiceColumn)
	amountIdx := columnIndex(headers, result.Mapping.AmountColumn)
	dateIdx := columnIndex(headers, result.Mapping.DateColumn)

	if invoiceIdx < 0 {
		// last resort: scan sample values for the invoice token
		invoiceIdx = scanForInvoiceColumn(rows[1:], len(headers))
		if invoiceIdx >= 0 {
			result.Mapping.InvoiceColumn = headers[invoiceIdx]
			result.Warnings = append(result.Warnings,
				"invoice column not detected by name; matched by sampled values")
		} else {
			result.Warnings = append(result.Warnings, "could not detect invoice column")
		}
	}
	if amountIdx < 0 {
		result.Warnings = append(result.Warnings, "could not detect amount column; amounts default to 0.00")
	}
	if dateIdx < 0 {
		result.Warnings = append(result.Warnings, "could not detect date column")
	}

	for i, row := range rows[1:] {
		rec := reconcile.ErpRecord{
			ErpRowID: i + 1,
			Extra:    make(map[string]string, len(headers)),
		}
		for j, h := range headers {
			rec.Extra[h] = cellAt(row, j)
		}
		if invoiceIdx >= 0 {
			rec.InvoiceID = reconcile.ExtractInvoiceID(cellAt(row, invoiceIdx))
		}
		if amountIdx >= 0 {
			rec.Amount = reconcile.NormalizeAmount(cellAt(row, amountIdx))
		}
		if dateIdx >= 0 {
			rec.Date = reconcile.NormalizeDate(cellAt(row, dateIdx))
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

// detectColumn prefers an exact (case-insensitive) header match over a
// substring match, trying synonyms in priority order. Ties within one
// synonym go to the leftmost column, so detection is stable for a given
// sheet.
func detectColumn(headers, synonyms []string) string {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, syn := range synonyms {
		for i, l := range lower {
			if l == syn {
				return headers[i]
			}
		}
	}
	for _, syn := range synonyms {
		for i, l := range lower {
			if strings.Contains(l, syn) {
				return headers[i]
			}
		}
	}
	return ""
}

func columnIndex(headers []string, name string) int {
	if name == "" {
		return -1
	}
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

// scanForInvoiceColumn samples up to ten data rows per column looking for
// the invoice token pattern.
func scanForInvoiceColumn(rows [][]string, width int) int {
	for j := 0; j < width; j++ {
		sampled := 0
		for _, row := range rows {
			v := cellAt(row, j)
			if v == "" {
				continue
			}
			sampled++
			if reconcile.ExtractInvoiceID(v) != "" {
				return j
			}
			if sampled >= 10 {
				break
			}
		}
	}
	return -1
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
