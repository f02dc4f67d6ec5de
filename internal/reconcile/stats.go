package reconcile

// RunSummary is the purely derived statistics bundle handed to reporting.
// It holds no state of its own; every field is recomputable from the stage
// outputs.
type RunSummary struct {
	TotalBankTransactions int `json:"total_bank_transactions"`
	TotalErpRecords       int `json:"total_erp_records"`
	BankInvoiceCount      int `json:"bank_invoice_count"`
	BankNonInvoiceCount   int `json:"bank_non_invoice_count"`

	BankDuplicateGroups int `json:"bank_duplicate_groups"`
	ErpDuplicateGroups  int `json:"erp_duplicate_groups"`
	BankDuplicateRows   int `json:"bank_duplicate_rows"`
	ErpDuplicateRows    int `json:"erp_duplicate_rows"`

	Match      MatchStats     `json:"match"`
	Exceptions ExceptionStats `json:"exceptions"`

	// MatchRate is the matched share of processed invoice transactions, in
	// percent.
	MatchRate float64 `json:"match_rate"`
}

// Summarize tallies the counts downstream reporting needs from the outputs
// of the prior stages.
func Summarize(bank []BankRecord, erp []ErpRecord, bankGroups, erpGroups []DuplicateGroup, match MatchStats, exceptions ExceptionStats) RunSummary {
	s := RunSummary{
		TotalBankTransactions: len(bank),
		TotalErpRecords:       len(erp),
		BankDuplicateGroups:   len(bankGroups),
		ErpDuplicateGroups:    len(erpGroups),
		Match:                 match,
		Exceptions:            exceptions,
	}

	for _, b := range bank {
		if b.IsNonInvoice() {
			s.BankNonInvoiceCount++
		} else {
			s.BankInvoiceCount++
		}
	}
	for _, g := range bankGroups {
		s.BankDuplicateRows += g.Count - 1
	}
	for _, g := range erpGroups {
		s.ErpDuplicateRows += g.Count - 1
	}

	matched := match.ExactMatches + match.RoundingMatches + match.FuzzyMatches
	processed := matched + match.NoMatch
	if processed > 0 {
		s.MatchRate = float64(matched) / float64(processed) * 100
	}
	return s
}
