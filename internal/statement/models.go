// Package statement implements the BBVA debit statement parsing and
// classification engine: segmentation of extracted PDF text, transaction
// line tokenization, summary extraction, and movement classification.
package statement

// MovementKind is the direction assigned to a transaction.
type MovementKind string

const (
	MovementCredit  MovementKind = "CREDIT"
	MovementDebit   MovementKind = "DEBIT"
	MovementUnknown MovementKind = "UNKNOWN"
)

// TransactionLine is a tokenized transaction row before classification.
type TransactionLine struct {
	// OperationDate and SettlementDate keep the statement's DD/MMM form;
	// full-date resolution against the statement month happens later.
	OperationDate  string `json:"operation_date"`
	SettlementDate string `json:"settlement_date"`

	Description string `json:"description"`

	// Detail is the optional secondary line printed under the main row
	// (transfer recipient, reference). Empty when absent.
	Detail string `json:"detail,omitempty"`

	// AmountAbs is the unsigned transaction amount, always > 0.
	AmountAbs float64 `json:"amount_abs"`

	// Balances are present only on rows that print three trailing amounts.
	OperationBalance  *float64 `json:"operation_balance,omitempty"`
	SettlementBalance *float64 `json:"settlement_balance,omitempty"`
}

// HasBalances reports whether the row carried the three-amount layout.
func (l *TransactionLine) HasBalances() bool {
	return l.OperationBalance != nil && l.SettlementBalance != nil
}

// ClassifiedTransaction is a transaction line with its assigned direction.
type ClassifiedTransaction struct {
	TransactionLine

	Movement MovementKind `json:"movement"`

	// Amount is the signed amount: positive for CREDIT, negative for DEBIT,
	// nil for UNKNOWN.
	Amount *float64 `json:"amount,omitempty"`

	// NeedsReview is set when the direction could not be determined.
	NeedsReview bool `json:"needs_review"`
}

// StatementSummary holds the four declared totals from the statement's
// summary section.
type StatementSummary struct {
	OpeningBalance float64 `json:"opening_balance"`
	ClosingBalance float64 `json:"closing_balance"`

	DepositCount int     `json:"deposit_count"`
	DepositTotal float64 `json:"deposit_total"`

	WithdrawalCount int     `json:"withdrawal_count"`
	WithdrawalTotal float64 `json:"withdrawal_total"`
}

// DeclaredCashFlow returns deposits minus withdrawals.
func (s *StatementSummary) DeclaredCashFlow() float64 {
	return s.DepositTotal - s.WithdrawalTotal
}

// Diagnostic is a non-fatal trace event emitted while parsing, returned
// as data rather than logged.
type Diagnostic struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Result is the output of Parse.
type Result struct {
	Transactions []ClassifiedTransaction `json:"transactions"`
	Summary      *StatementSummary       `json:"summary,omitempty"`

	// Warnings are classification-level anomalies (totals or counts that
	// deviate from the declared summary). They never abort a parse.
	Warnings []string `json:"warnings,omitempty"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// UnknownCount returns how many transactions ended up UNKNOWN.
func (r *Result) UnknownCount() int {
	n := 0
	for _, tx := range r.Transactions {
		if tx.Movement == MovementUnknown {
			n++
		}
	}
	return n
}
