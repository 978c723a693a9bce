// Package reconcile compares the classified cash flow of a processed
// statement against its declared summary. Reconciliation is advisory: a
// mismatch produces a report, never an error.
package reconcile

import (
	"math"

	"github.com/astrafin/statement-engine/internal/statement"
)

// DefaultTolerance is the allowed absolute difference between declared
// and computed cash flow before a statement is considered unreconciled.
const DefaultTolerance = 10.00

// Warning codes attached to a report.
const (
	WarningNoSummaryData          = "NO_SUMMARY_DATA"
	WarningIncompleteDueToUnknown = "INCOMPLETE_DUE_TO_UNKNOWN"
)

// Entry is the minimal view of a persisted transaction that
// reconciliation needs.
type Entry struct {
	Movement statement.MovementKind
	// Amount is the signed amount; nil for UNKNOWN rows.
	Amount *float64
}

// Report is the outcome of one reconciliation run.
type Report struct {
	// DeclaredCashFlow is deposits minus withdrawals from the summary;
	// nil when the statement carried no summary data.
	DeclaredCashFlow *float64 `json:"declared_cash_flow,omitempty"`

	// ComputedCashFlow is the sum of signed amounts over classified rows.
	ComputedCashFlow float64 `json:"computed_cash_flow"`

	// Difference is computed minus declared; nil without summary data.
	Difference *float64 `json:"difference,omitempty"`

	Tolerance  float64 `json:"tolerance"`
	Reconciled bool    `json:"reconciled"`

	UnknownCount int `json:"unknown_count"`

	Warnings []string `json:"warnings,omitempty"`
}

// Reconcile computes the report for one statement. A nil summary yields
// an unreconciled report with WarningNoSummaryData; UNKNOWN rows are
// excluded from the computed flow and flagged with
// WarningIncompleteDueToUnknown.
func Reconcile(summary *statement.StatementSummary, entries []Entry, tolerance float64) Report {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	report := Report{Tolerance: tolerance}
	for _, e := range entries {
		if e.Amount == nil || e.Movement == statement.MovementUnknown {
			report.UnknownCount++
			continue
		}
		report.ComputedCashFlow += *e.Amount
	}

	if report.UnknownCount > 0 {
		report.Warnings = append(report.Warnings, WarningIncompleteDueToUnknown)
	}

	if summary == nil {
		report.Warnings = append(report.Warnings, WarningNoSummaryData)
		return report
	}

	declared := summary.DeclaredCashFlow()
	diff := report.ComputedCashFlow - declared

	report.DeclaredCashFlow = &declared
	report.Difference = &diff
	report.Reconciled = math.Abs(diff) <= tolerance

	return report
}

// FromClassified adapts freshly classified transactions to reconciliation
// entries.
func FromClassified(txs []statement.ClassifiedTransaction) []Entry {
	entries := make([]Entry, 0, len(txs))
	for _, tx := range txs {
		entries = append(entries, Entry{Movement: tx.Movement, Amount: tx.Amount})
	}
	return entries
}
