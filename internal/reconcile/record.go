package reconcile

// Source identifies which ledger a record or duplicate group belongs to.
type Source string

const (
	SourceBank Source = "Bank"
	SourceERP  Source = "ERP"
)

// NonInvoiceKind categorizes bank rows that are not invoice payments.
type NonInvoiceKind string

const (
	NonInvoiceAdjustment NonInvoiceKind = "Adjustment"
	NonInvoiceInterest   NonInvoiceKind = "Interest"
	NonInvoiceBankFee    NonInvoiceKind = "Bank Fee"
	NonInvoiceOther      NonInvoiceKind = "Other"
)

// NonInvoiceInfo is attached to a BankRecord when the row is a fee,
// adjustment or similar item. A nil pointer means the record is an
// invoice-bearing transaction; the pointer is the variant tag.
type NonInvoiceInfo struct {
	Kind NonInvoiceKind
}

// BankRecord is one normalized bank statement transaction. Field values are
// set once during ingestion; dedupe appends the duplicate annotations and
// nothing else is ever overwritten.
type BankRecord struct {
	Date        string // ISO yyyy-mm-dd, or the raw value when unparsable, "" when absent
	Description string
	InvoiceID   string // canonical uppercase token, "" when absent
	Amount      float64
	RefID       string
	NonInvoice  *NonInvoiceInfo

	DuplicateFlag  bool
	DuplicateLabel string
}

// IsNonInvoice reports whether the record is excluded from invoice matching.
func (r BankRecord) IsNonInvoice() bool { return r.NonInvoice != nil }

// ErpRecord is one normalized ERP row. ErpRowID is assigned sequentially at
// ingestion, starting at 1, and is the stable identity for the run.
type ErpRecord struct {
	ErpRowID  int
	InvoiceID string
	Amount    float64
	Date      string
	Extra     map[string]string // passthrough columns from the source sheet

	DuplicateFlag  bool
	DuplicateLabel string
}

// DuplicateGroup describes one set of records sharing a composite key.
// MemberIndices is in source row order; the first member is the retained
// primary.
type DuplicateGroup struct {
	Key           string
	Count         int
	MemberIndices []int
	Source        Source
}

// MatchStatus is the outcome of the tiered matching pass for one bank record.
type MatchStatus string

const (
	StatusExactMatch         MatchStatus = "Exact Match"
	StatusRoundingDifference MatchStatus = "Rounding Difference"
	StatusProbableMatch      MatchStatus = "Probable Match"
	StatusNoMatch            MatchStatus = "No Match"
	StatusNonInvoice         MatchStatus = "Non-Invoice"
)

// Rule identifiers recorded on every MatchResult for the audit trail.
const (
	RuleExactInvoiceAmount = "exact_invoice_amount"
	RuleRoundingTolerance  = "rounding_tolerance"
	RuleFuzzyAmountDate    = "fuzzy_amount_date"
	RuleNoMatchFound       = "no_match_found"
)

// ExceptionKind labels a record that could not be cleanly reconciled.
type ExceptionKind string

const (
	ExceptionMissingInERP   ExceptionKind = "Missing in ERP"
	ExceptionMissingInBank  ExceptionKind = "Missing in Bank"
	ExceptionNonInvoiceItem ExceptionKind = "Non-Invoice Item"
	ExceptionManualReview   ExceptionKind = "Manual Review Required"
)

// MatchResult is created exactly once per bank record during the matcher
// pass and never mutated afterwards. ErpRowID is 0 when no ERP record was
// assigned. AmountDifference and DateDifferenceDays are meaningful only for
// rounding and probable matches.
type MatchResult struct {
	BankRef         string
	BankDate        string
	BankInvoiceID   string
	BankAmount      float64
	BankDescription string

	ErpRowID     int
	ErpInvoiceID string
	ErpAmount    float64
	ErpDate      string

	Status             MatchStatus
	Confidence         float64
	RuleFired          string
	AmountDifference   float64
	DateDifferenceDays int
}

// Config holds the matching thresholds. Zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// AmountRoundingTolerance is the maximum absolute amount difference the
	// rounding tier accepts.
	AmountRoundingTolerance float64
	// FuzzyAmountAbs is the maximum absolute amount difference a fuzzy
	// candidate may have.
	FuzzyAmountAbs float64
	// FuzzyDateDays is the maximum date distance, in days, a fuzzy candidate
	// may have.
	FuzzyDateDays int
	// ConfidenceThresholdHumanReview drives two gates with one value: a fuzzy
	// candidate is accepted only when its score reaches it, and any committed
	// match whose confidence falls below it is flagged for manual review.
	ConfidenceThresholdHumanReview float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		AmountRoundingTolerance:        0.01,
		FuzzyAmountAbs:                 1.0,
		FuzzyDateDays:                  3,
		ConfidenceThresholdHumanReview: 0.6,
	}
}
