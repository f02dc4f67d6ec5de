package reconcile

// ClassifiedMatch is a MatchResult plus the exception annotation the
// classifier attached to it. Exception is empty for clean matches; for a
// low-confidence match it is a secondary annotation, the match itself is
// kept.
type ClassifiedMatch struct {
	MatchResult
	Exception      ExceptionKind
	NonInvoiceKind NonInvoiceKind // set only for direct non-invoice classifications
}

// ClassifiedErp is an ErpRecord plus its disposition.
type ClassifiedErp struct {
	ErpRecord
	Matched   bool
	Exception ExceptionKind
}

// ExceptionStats tallies exceptions per kind. TotalExceptions is always the
// sum of the four counters.
type ExceptionStats struct {
	MissingInERP    int `json:"missing_in_erp"`
	MissingInBank   int `json:"missing_in_bank"`
	NonInvoiceItems int `json:"non_invoice_items"`
	ManualReview    int `json:"manual_review"`
	TotalExceptions int `json:"total_exceptions"`
}

// Discrepancy is one entry of the short list surfaced to reporting.
type Discrepancy struct {
	Kind        ExceptionKind `json:"kind"`
	Invoice     string        `json:"invoice,omitempty"`
	Description string        `json:"description,omitempty"`
	Amount      float64       `json:"amount"`
	Date        string        `json:"date,omitempty"`
	Source      Source        `json:"source"`
}

// Classification is the classifier's complete output: every bank and ERP
// record ends with exactly one disposition.
type Classification struct {
	Matches          []ClassifiedMatch // matcher results, in matcher order
	NonInvoice       []ClassifiedMatch // non-invoice bank rows, classified directly
	Erp              []ClassifiedErp   // full ERP set, in source order
	Stats            ExceptionStats
	TopDiscrepancies []Discrepancy
}

const topDiscrepancyLimit = 10

// Classify labels every unmatched bank record and every unused ERP record
// with an exception kind and flags low-confidence matches for manual review.
// Bank records tagged non-invoice at ingestion bypass the matcher and are
// classified as Non-Invoice Items here.
func Classify(bank []BankRecord, erp []ErpRecord, results []MatchResult, usedErpIDs map[int]bool, cfg Config) Classification {
	var c Classification

	for _, r := range results {
		cm := ClassifiedMatch{MatchResult: r}
		switch {
		case r.Status == StatusNoMatch:
			if r.BankInvoiceID == "" {
				cm.Exception = ExceptionNonInvoiceItem
				c.Stats.NonInvoiceItems++
			} else {
				cm.Exception = ExceptionMissingInERP
				c.Stats.MissingInERP++
			}
		case r.Confidence < cfg.ConfidenceThresholdHumanReview:
			cm.Exception = ExceptionManualReview
			c.Stats.ManualReview++
		}
		c.Matches = append(c.Matches, cm)
	}

	for _, b := range bank {
		if !b.IsNonInvoice() {
			continue
		}
		c.NonInvoice = append(c.NonInvoice, ClassifiedMatch{
			MatchResult: MatchResult{
				BankRef:         b.RefID,
				BankDate:        b.Date,
				BankInvoiceID:   b.InvoiceID,
				BankAmount:      b.Amount,
				BankDescription: b.Description,
				Status:          StatusNonInvoice,
				Confidence:      1.0,
			},
			Exception:      ExceptionNonInvoiceItem,
			NonInvoiceKind: b.NonInvoice.Kind,
		})
		c.Stats.NonInvoiceItems++
	}

	for _, e := range erp {
		ce := ClassifiedErp{ErpRecord: e}
		if usedErpIDs[e.ErpRowID] {
			ce.Matched = true
		} else {
			ce.Exception = ExceptionMissingInBank
			c.Stats.MissingInBank++
		}
		c.Erp = append(c.Erp, ce)
	}

	c.Stats.TotalExceptions = c.Stats.MissingInERP +
		c.Stats.MissingInBank +
		c.Stats.NonInvoiceItems +
		c.Stats.ManualReview

	c.TopDiscrepancies = topDiscrepancies(c, topDiscrepancyLimit)
	return c
}

// topDiscrepancies samples up to limit entries, a third from each exception
// family, for the report's quick-look section.
func topDiscrepancies(c Classification, limit int) []Discrepancy {
	var out []Discrepancy
	per := limit / 3

	n := 0
	for _, m := range c.Matches {
		if m.Exception != ExceptionMissingInERP || n >= per {
			continue
		}
		out = append(out, Discrepancy{
			Kind:    ExceptionMissingInERP,
			Invoice: m.BankInvoiceID,
			Amount:  m.BankAmount,
			Date:    m.BankDate,
			Source:  SourceBank,
		})
		n++
	}

	n = 0
	for _, e := range c.Erp {
		if e.Exception != ExceptionMissingInBank || n >= per {
			continue
		}
		out = append(out, Discrepancy{
			Kind:    ExceptionMissingInBank,
			Invoice: e.InvoiceID,
			Amount:  e.Amount,
			Date:    e.Date,
			Source:  SourceERP,
		})
		n++
	}

	n = 0
	for _, m := range c.NonInvoice {
		if n >= per {
			break
		}
		out = append(out, Discrepancy{
			Kind:        ExceptionNonInvoiceItem,
			Description: m.BankDescription,
			Amount:      m.BankAmount,
			Date:        m.BankDate,
			Source:      SourceBank,
		})
		n++
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
