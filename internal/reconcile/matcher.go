package reconcile

import (
	"math"
	"strings"
	"time"
)

// dateDiffSentinel disqualifies a fuzzy candidate when either side's date is
// missing or unparsable.
const dateDiffSentinel = 999

// MatchStats tallies matcher outcomes per tier.
type MatchStats struct {
	ExactMatches    int `json:"exact_matches"`
	RoundingMatches int `json:"rounding_matches"`
	FuzzyMatches    int `json:"fuzzy_matches"`
	NoMatch         int `json:"no_match"`
}

// MatchOutcome is the full result of one matcher pass. UsedErpIDs is the
// run-scoped set of consumed ERP rows; the classifier reads it to find the
// ERP records that remain unmatched.
type MatchOutcome struct {
	Results    []MatchResult
	UsedErpIDs map[int]bool
	Stats      MatchStats
}

// Match assigns each invoice-bearing bank record to at most one ERP record
// using three ordered tiers: exact invoice+amount, rounding tolerance, then
// fuzzy amount/date scoring. Matching is greedy and order-dependent: bank
// records are processed in the given order and an ERP row consumed by an
// earlier bank record is unavailable to every later one, even when the later
// record would have scored higher. Non-invoice bank records are skipped
// entirely; the classifier handles them directly.
func Match(bank []BankRecord, erp []ErpRecord, cfg Config) MatchOutcome {
	used := make(map[int]bool)
	results := make([]MatchResult, 0, len(bank))
	var stats MatchStats

	for _, b := range bank {
		if b.IsNonInvoice() {
			continue
		}

		res, ok := exactMatch(b, erp, used)
		if ok {
			stats.ExactMatches++
		} else if res, ok = roundingMatch(b, erp, used, cfg); ok {
			stats.RoundingMatches++
		} else if res, ok = fuzzyMatch(b, erp, used, cfg); ok {
			stats.FuzzyMatches++
		}

		if ok {
			used[res.ErpRowID] = true
		} else {
			stats.NoMatch++
			res = MatchResult{
				Status:     StatusNoMatch,
				Confidence: 0.0,
				RuleFired:  RuleNoMatchFound,
			}
		}

		res.BankRef = b.RefID
		res.BankDate = b.Date
		res.BankInvoiceID = b.InvoiceID
		res.BankAmount = b.Amount
		res.BankDescription = b.Description
		results = append(results, res)
	}

	return MatchOutcome{Results: results, UsedErpIDs: used, Stats: stats}
}

// exactMatch selects the first unused ERP record, in source order, with the
// same canonical invoice id and exactly equal amount.
func exactMatch(b BankRecord, erp []ErpRecord, used map[int]bool) (MatchResult, bool) {
	if b.InvoiceID == "" {
		return MatchResult{}, false
	}
	for _, e := range erp {
		if used[e.ErpRowID] {
			continue
		}
		if strings.EqualFold(e.InvoiceID, b.InvoiceID) && e.Amount == b.Amount {
			return MatchResult{
				ErpRowID:     e.ErpRowID,
				ErpInvoiceID: e.InvoiceID,
				ErpAmount:    e.Amount,
				ErpDate:      e.Date,
				Status:       StatusExactMatch,
				Confidence:   0.99,
				RuleFired:    RuleExactInvoiceAmount,
			}, true
		}
	}
	return MatchResult{}, false
}

// roundingMatch selects the first unused ERP record with the same invoice id
// whose amount differs by a positive value within the rounding tolerance.
func roundingMatch(b BankRecord, erp []ErpRecord, used map[int]bool, cfg Config) (MatchResult, bool) {
	if b.InvoiceID == "" {
		return MatchResult{}, false
	}
	for _, e := range erp {
		if used[e.ErpRowID] {
			continue
		}
		if !strings.EqualFold(e.InvoiceID, b.InvoiceID) {
			continue
		}
		diff := math.Abs(b.Amount - e.Amount)
		if diff > 0 && diff <= cfg.AmountRoundingTolerance {
			return MatchResult{
				ErpRowID:         e.ErpRowID,
				ErpInvoiceID:     e.InvoiceID,
				ErpAmount:        e.Amount,
				ErpDate:          e.Date,
				Status:           StatusRoundingDifference,
				Confidence:       0.90,
				RuleFired:        RuleRoundingTolerance,
				AmountDifference: diff,
			}, true
		}
	}
	return MatchResult{}, false
}

// fuzzyMatch scores every unused ERP record within the amount and date
// tolerances and keeps the highest score, first-in-source-order on ties.
// The best candidate is accepted only when its score reaches the human
// review threshold.
func fuzzyMatch(b BankRecord, erp []ErpRecord, used map[int]bool, cfg Config) (MatchResult, bool) {
	bestIdx := -1
	var bestScore float64
	var bestAmountDiff float64
	var bestDateDiff int

	for i, e := range erp {
		if used[e.ErpRowID] {
			continue
		}
		amountDiff := math.Abs(b.Amount - e.Amount)
		if amountDiff > cfg.FuzzyAmountAbs {
			continue
		}
		dateDiff := dateDiffDays(b.Date, e.Date)
		if dateDiff > cfg.FuzzyDateDays {
			continue
		}

		score := 1.0 -
			(amountDiff/cfg.FuzzyAmountAbs)*0.5 -
			(float64(dateDiff)/float64(cfg.FuzzyDateDays))*0.3

		if bestIdx < 0 || score > bestScore {
			bestIdx = i
			bestScore = score
			bestAmountDiff = amountDiff
			bestDateDiff = dateDiff
		}
	}

	if bestIdx < 0 || bestScore < cfg.ConfidenceThresholdHumanReview {
		return MatchResult{}, false
	}

	e := erp[bestIdx]
	return MatchResult{
		ErpRowID:           e.ErpRowID,
		ErpInvoiceID:       e.InvoiceID,
		ErpAmount:          e.Amount,
		ErpDate:            e.Date,
		Status:             StatusProbableMatch,
		Confidence:         Round2(bestScore),
		RuleFired:          RuleFuzzyAmountDate,
		AmountDifference:   bestAmountDiff,
		DateDifferenceDays: bestDateDiff,
	}, true
}

// dateDiffDays returns the absolute calendar-day distance between two ISO
// dates, or the sentinel when either side is missing or unparsable.
func dateDiffDays(a, b string) int {
	if a == "" || b == "" {
		return dateDiffSentinel
	}
	ta, err := time.Parse("2006-01-02", a)
	if err != nil {
		return dateDiffSentinel
	}
	tb, err := time.Parse("2006-01-02", b)
	if err != nil {
		return dateDiffSentinel
	}
	days := int(ta.Sub(tb).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
