package ingest

import (
	"bufio"
	"encoding/csv"
	"io"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"financial-reconciliation-backend/internal/reconcile"
)

// Bank statement ingestion. Statements arrive either as the text extracted
// from a statement document (one transaction per line) or as a headered CSV
// export. Field values are canonicalized here; malformed fields never abort
// the run, only a statement with no recognizable rows at all does.

var (
	bankDatePattern      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	bankAmountRefPattern = regexp.MustCompile(`(-?[\d,]+\.?\d*)\s+(\d+)\s*$`)
)

// ParseBankStatement parses line-oriented statement text. Lines without a
// recognizable date or trailing amount/reference pair are skipped, as are
// header and blank lines.
func ParseBankStatement(r io.Reader) ([]reconcile.BankRecord, error) {
	scanner := bufio.NewScanner(r)
	var records []reconcile.BankRecord

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, "Date") && strings.Contains(line, "Description") {
			continue
		}
		if rec, ok := parseBankLine(line); ok {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: read bank statement")
	}
	if len(records) == 0 {
		return nil, eris.New("ingest: no transactions recognized in bank statement")
	}
	return records, nil
}

func parseBankLine(line string) (reconcile.BankRecord, bool) {
	loc := bankDatePattern.FindStringIndex(line)
	if loc == nil {
		return reconcile.BankRecord{}, false
	}
	date := line[loc[0]:loc[1]]
	rest := strings.TrimSpace(line[loc[1]:])

	amountLoc := bankAmountRefPattern.FindStringSubmatchIndex(rest)
	if amountLoc == nil {
		return reconcile.BankRecord{}, false
	}
	amount := reconcile.NormalizeAmount(rest[amountLoc[2]:amountLoc[3]])
	refID := rest[amountLoc[4]:amountLoc[5]]
	description := strings.TrimSpace(rest[:amountLoc[0]])

	return newBankRecord(date, description, amount, refID), true
}

// ParseBankCSV parses a CSV export with a header row. Recognized columns are
// date, description, amount and ref_id (reference/ref accepted); anything
// else is ignored.
func ParseBankCSV(r io.Reader) ([]reconcile.BankRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read bank csv")
	}
	if len(rows) < 2 {
		return nil, eris.New("ingest: bank csv has no data rows")
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cell := func(row []string, names ...string) string {
		for _, name := range names {
			if i, ok := col[name]; ok && i < len(row) {
				return row[i]
			}
		}
		return ""
	}

	records := make([]reconcile.BankRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		date := cell(row, "date", "transaction_date")
		description := cell(row, "description", "narrative")
		amount := reconcile.NormalizeAmount(cell(row, "amount"))
		refID := cell(row, "ref_id", "reference", "ref")
		records = append(records, newBankRecord(date, description, amount, refID))
	}
	if len(records) == 0 {
		return nil, eris.New("ingest: no transactions recognized in bank csv")
	}
	return records, nil
}

func newBankRecord(date, description string, amount float64, refID string) reconcile.BankRecord {
	invoiceID := reconcile.ExtractInvoiceID(description)
	return reconcile.BankRecord{
		Date:        reconcile.NormalizeDate(date),
		Description: description,
		InvoiceID:   invoiceID,
		Amount:      amount,
		RefID:       strings.TrimSpace(refID),
		NonInvoice:  classifyNonInvoice(description, invoiceID, amount),
	}
}

// classifyNonInvoice tags rows without an invoice reference and with a
// negative amount as fees, adjustments or interest by description keyword.
func classifyNonInvoice(description, invoiceID string, amount float64) *reconcile.NonInvoiceInfo {
	if invoiceID != "" || amount >= 0 {
		return nil
	}
	desc := strings.ToLower(description)
	kind := reconcile.NonInvoiceOther
	switch {
	case strings.Contains(desc, "adjustment"):
		kind = reconcile.NonInvoiceAdjustment
	case strings.Contains(desc, "interest"):
		kind = reconcile.NonInvoiceInterest
	case strings.Contains(desc, "bank fee"):
		kind = reconcile.NonInvoiceBankFee
	}
	return &reconcile.NonInvoiceInfo{Kind: kind}
}
