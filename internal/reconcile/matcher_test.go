package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchExactTier(t *testing.T) {
	bank := []BankRecord{{InvoiceID: "INV100", Amount: 500.00, Date: "2024-01-10", RefID: "1"}}
	erp := []ErpRecord{{ErpRowID: 1, InvoiceID: "INV100", Amount: 500.00, Date: "2024-01-10"}}

	out := Match(bank, erp, DefaultConfig())

	require.Len(t, out.Results, 1)
	r := out.Results[0]
	assert.Equal(t, StatusExactMatch, r.Status)
	assert.Equal(t, 0.99, r.Confidence)
	assert.Equal(t, RuleExactInvoiceAmount, r.RuleFired)
	assert.Equal(t, 1, r.ErpRowID)
	assert.True(t, out.UsedErpIDs[1])
	assert.Equal(t, 1, out.Stats.ExactMatches)
}

func TestMatchExactIsCaseInsensitive(t *testing.T) {
	bank := []BankRecord{{InvoiceID: "INV200", Amount: 75.00}}
	erp := []ErpRecord{{ErpRowID: 1, InvoiceID: "inv200", Amount: 75.00}}

	out := Match(bank, erp, DefaultConfig())
	assert.Equal(t, StatusExactMatch, out.Results[0].Status)
}

func TestMatchExactPrefersFirstInErpOrder(t *testing.T) {
	bank := []BankRecord{{InvoiceID: "INV300", Amount: 20.00}}
	erp := []ErpRecord{
		{ErpRowID: 1, InvoiceID: "INV300", Amount: 20.00},
		{ErpRowID: 2, InvoiceID: "INV300", Amount: 20.00},
	}

	out := Match(bank, erp, DefaultConfig())
	assert.Equal(t, 1, out.Results[0].ErpRowID)
}

func TestMatchRoundingTier(t *testing.T) {
	bank := []BankRecord{{InvoiceID: "INV101", Amount: 250.00, RefID: "2"}}
	erp := []ErpRecord{{ErpRowID: 1, InvoiceID: "INV101", Amount: 250.005}}

	out := Match(bank, erp, DefaultConfig())

	r := out.Results[0]
	assert.Equal(t, StatusRoundingDifference, r.Status)
	assert.Equal(t, 0.90, r.Confidence)
	assert.Equal(t, RuleRoundingTolerance, r.RuleFired)
	assert.InDelta(t, 0.005, r.AmountDifference, 1e-9)
	assert.Equal(t, 1, out.Stats.RoundingMatches)
}

func TestMatchRoundingRequiresPositiveDifference(t *testing.T) {
	// zero difference belongs to the exact tier; an identical amount must
	// never surface as a rounding match
	bank := []BankRecord{{InvoiceID: "INV101", Amount: 250.00}}
	erp := []ErpRecord{{ErpRowID: 1, InvoiceID: "INV101", Amount: 250.00}}

	out := Match(bank, erp, DefaultConfig())
	assert.Equal(t, StatusExactMatch, out.Results[0].Status)
}

func TestMatchRoundingBeyondToleranceFallsThrough(t *testing.T) {
	bank := []BankRecord{{InvoiceID: "INV101", Amount: 250.00, Date: "2024-01-10"}}
	erp := []ErpRecord{{ErpRowID: 1, InvoiceID: "INV101", Amount: 250.02, Date: "2024-01-10"}}

	out := Match(bank, erp, DefaultConfig())
	// diff 0.02 exceeds the rounding tolerance but sits inside the fuzzy
	// amount window with matching dates
	assert.Equal(t, StatusProbableMatch, out.Results[0].Status)
}

func TestMatchFuzzyTierScoring(t *testing.T) {
	bank := []BankRecord{{Amount: 99.50, Date: "2024-01-10", RefID: "3"}}
	erp := []ErpRecord{{ErpRowID: 1, Amount: 100.00, Date: "2024-01-11"}}

	out := Match(bank, erp, DefaultConfig())

	r := out.Results[0]
	require.Equal(t, StatusProbableMatch, r.Status)
	// score = 1.0 - (0.5/1.0)*0.5 - (1/3)*0.3 = 0.65
	assert.Equal(t, 0.65, r.Confidence)
	assert.Equal(t, RuleFuzzyAmountDate, r.RuleFired)
	assert.InDelta(t, 0.5, r.AmountDifference, 1e-9)
	assert.Equal(t, 1, r.DateDifferenceDays)
	assert.Equal(t, 1, out.Stats.FuzzyMatches)
}

func TestMatchFuzzyBelowThresholdIsNoMatch(t *testing.T) {
	// amountDiff 0.9 and dateDiff 3 → score 1.0 - 0.45 - 0.3 = 0.25 < 0.6
	bank := []BankRecord{{Amount: 100.00, Date: "2024-01-10"}}
	erp := []ErpRecord{{ErpRowID: 1, Amount: 100.90, Date: "2024-01-13"}}

	out := Match(bank, erp, DefaultConfig())

	r := out.Results[0]
	assert.Equal(t, StatusNoMatch, r.Status)
	assert.Equal(t, 0.0, r.Confidence)
	assert.Equal(t, RuleNoMatchFound, r.RuleFired)
	assert.Equal(t, 0, r.ErpRowID)
	assert.Empty(t, out.UsedErpIDs)
}

func TestMatchFuzzyPicksMaximumScore(t *testing.T) {
	bank := []BankRecord{{Amount: 100.00, Date: "2024-01-10"}}
	erp := []ErpRecord{
		{ErpRowID: 1, Amount: 100.80, Date: "2024-01-10"}, // score 0.60
		{ErpRowID: 2, Amount: 100.10, Date: "2024-01-10"}, // score 0.95
	}

	out := Match(bank, erp, DefaultConfig())
	assert.Equal(t, 2, out.Results[0].ErpRowID)
}

func TestMatchFuzzyTieBrokenByErpOrder(t *testing.T) {
	bank := []BankRecord{{Amount: 100.00, Date: "2024-01-10"}}
	erp := []ErpRecord{
		{ErpRowID: 1, Amount: 100.20, Date: "2024-01-10"},
		{ErpRowID: 2, Amount: 100.20, Date: "2024-01-10"},
	}

	out := Match(bank, erp, DefaultConfig())
	assert.Equal(t, 1, out.Results[0].ErpRowID)
}

func TestMatchFuzzyMissingDateDisqualifies(t *testing.T) {
	// either side lacking a parsable date scores the sentinel distance and
	// the candidate is rejected by the date tolerance
	bank := []BankRecord{{Amount: 100.00, Date: ""}}
	erp := []ErpRecord{{ErpRowID: 1, Amount: 100.00, Date: "2024-01-10"}}

	out := Match(bank, erp, DefaultConfig())
	assert.Equal(t, StatusNoMatch, out.Results[0].Status)
}

func TestMatchFuzzyUnparsableDateDisqualifies(t *testing.T) {
	bank := []BankRecord{{Amount: 100.00, Date: "2024-01-10"}}
	erp := []ErpRecord{{ErpRowID: 1, Amount: 100.00, Date: "mid January"}}

	out := Match(bank, erp, DefaultConfig())
	assert.Equal(t, StatusNoMatch, out.Results[0].Status)
}

func TestMatchTierExclusivity(t *testing.T) {
	// an exact candidate must never be reported by a lower tier
	bank := []BankRecord{
		{InvoiceID: "INV1", Amount: 10.00, Date: "2024-01-01"},
		{InvoiceID: "INV2", Amount: 20.00, Date: "2024-01-01"},
	}
	erp := []ErpRecord{
		{ErpRowID: 1, InvoiceID: "INV1", Amount: 10.00, Date: "2024-01-01"},
		{ErpRowID: 2, InvoiceID: "INV2", Amount: 20.005, Date: "2024-01-01"},
	}

	out := Match(bank, erp, DefaultConfig())
	assert.Equal(t, StatusExactMatch, out.Results[0].Status)
	assert.Equal(t, StatusRoundingDifference, out.Results[1].Status)
	assert.Equal(t, MatchStats{ExactMatches: 1, RoundingMatches: 1}, out.Stats)
}

func TestMatchGreedyOrderDependence(t *testing.T) {
	// two bank records compete for one ERP row: whoever is processed first
	// wins, even though the second would score higher
	first := BankRecord{RefID: "A", Amount: 100.50, Date: "2024-01-12"}
	second := BankRecord{RefID: "B", Amount: 100.00, Date: "2024-01-10"}
	erp := []ErpRecord{{ErpRowID: 1, Amount: 100.00, Date: "2024-01-10"}}

	out1 := Match([]BankRecord{first, second}, erp, DefaultConfig())
	require.Len(t, out1.Results, 2)
	assert.Equal(t, 1, out1.Results[0].ErpRowID)
	assert.Equal(t, StatusNoMatch, out1.Results[1].Status)

	out2 := Match([]BankRecord{second, first}, erp, DefaultConfig())
	assert.Equal(t, 1, out2.Results[0].ErpRowID)
	assert.Equal(t, StatusNoMatch, out2.Results[1].Status)

	// swapping the processing order changed which record got the match
	assert.Equal(t, "A", out1.Results[0].BankRef)
	assert.Equal(t, "B", out2.Results[0].BankRef)
}

func TestMatchAtMostOneConsumption(t *testing.T) {
	bank := []BankRecord{
		{InvoiceID: "INV9", Amount: 50.00, Date: "2024-01-01", RefID: "1"},
		{InvoiceID: "INV9", Amount: 50.00, Date: "2024-01-01", RefID: "2"},
		{Amount: 50.10, Date: "2024-01-01", RefID: "3"},
	}
	erp := []ErpRecord{
		{ErpRowID: 1, InvoiceID: "INV9", Amount: 50.00, Date: "2024-01-01"},
	}

	out := Match(bank, erp, DefaultConfig())

	seen := map[int]int{}
	for _, r := range out.Results {
		if r.ErpRowID != 0 {
			seen[r.ErpRowID]++
		}
	}
	for id, n := range seen {
		assert.Equalf(t, 1, n, "erp row %d consumed %d times", id, n)
	}
	// only the first bank record got the row
	assert.Equal(t, 1, out.Results[0].ErpRowID)
	assert.Equal(t, StatusNoMatch, out.Results[1].Status)
	assert.Equal(t, StatusNoMatch, out.Results[2].Status)
}

func TestMatchSkipsNonInvoiceRecords(t *testing.T) {
	bank := []BankRecord{
		{Description: "Monthly bank fee", Amount: -15.00, NonInvoice: &NonInvoiceInfo{Kind: NonInvoiceBankFee}},
		{InvoiceID: "INV5", Amount: 30.00},
	}
	erp := []ErpRecord{{ErpRowID: 1, InvoiceID: "INV5", Amount: 30.00}}

	out := Match(bank, erp, DefaultConfig())

	// only the invoice-bearing record produces a result
	require.Len(t, out.Results, 1)
	assert.Equal(t, "INV5", out.Results[0].BankInvoiceID)
}

func TestMatchDeterminism(t *testing.T) {
	bank := []BankRecord{
		{InvoiceID: "INV1", Amount: 10.00, Date: "2024-01-01", RefID: "1"},
		{InvoiceID: "INV2", Amount: 20.01, Date: "2024-01-02", RefID: "2"},
		{Amount: 30.25, Date: "2024-01-03", RefID: "3"},
		{Amount: 99.99, Date: "2024-01-04", RefID: "4"},
	}
	erp := []ErpRecord{
		{ErpRowID: 1, InvoiceID: "INV2", Amount: 20.00, Date: "2024-01-02"},
		{ErpRowID: 2, InvoiceID: "INV1", Amount: 10.00, Date: "2024-01-01"},
		{ErpRowID: 3, Amount: 30.00, Date: "2024-01-03"},
	}

	first := Match(bank, erp, DefaultConfig())
	for i := 0; i < 5; i++ {
		again := Match(bank, erp, DefaultConfig())
		assert.Equal(t, first.Results, again.Results)
		assert.Equal(t, first.UsedErpIDs, again.UsedErpIDs)
		assert.Equal(t, first.Stats, again.Stats)
	}
}
