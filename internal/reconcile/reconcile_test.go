package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrafin/statement-engine/internal/statement"
)

func fptr(v float64) *float64 { return &v }

func TestReconcile_Matching(t *testing.T) {
	summary := &statement.StatementSummary{
		DepositTotal:    1000.00,
		WithdrawalTotal: 10006.28,
	}
	entries := []Entry{
		{Movement: statement.MovementCredit, Amount: fptr(1000.00)},
		{Movement: statement.MovementDebit, Amount: fptr(-10006.28)},
	}

	report := Reconcile(summary, entries, DefaultTolerance)

	require.NotNil(t, report.DeclaredCashFlow)
	require.NotNil(t, report.Difference)
	assert.InDelta(t, -9006.28, *report.DeclaredCashFlow, 0.001)
	assert.InDelta(t, -9006.28, report.ComputedCashFlow, 0.001)
	assert.InDelta(t, 0.00, *report.Difference, 0.001)
	assert.True(t, report.Reconciled)
	assert.Empty(t, report.Warnings)
}

func TestReconcile_DifferenceBeyondTolerance(t *testing.T) {
	summary := &statement.StatementSummary{
		DepositTotal:    1000.00,
		WithdrawalTotal: 10006.28,
	}
	entries := []Entry{
		{Movement: statement.MovementCredit, Amount: fptr(1000.00)},
		{Movement: statement.MovementDebit, Amount: fptr(-9990.00)},
	}

	report := Reconcile(summary, entries, DefaultTolerance)

	require.NotNil(t, report.Difference)
	assert.InDelta(t, 16.28, *report.Difference, 0.001)
	assert.False(t, report.Reconciled)
}

func TestReconcile_WithinTolerance(t *testing.T) {
	summary := &statement.StatementSummary{DepositTotal: 100.00}
	entries := []Entry{
		{Movement: statement.MovementCredit, Amount: fptr(95.00)},
	}

	report := Reconcile(summary, entries, DefaultTolerance)
	assert.True(t, report.Reconciled, "a 5.00 difference sits inside the default tolerance")
}

func TestReconcile_NoSummary(t *testing.T) {
	entries := []Entry{
		{Movement: statement.MovementCredit, Amount: fptr(100.00)},
	}

	report := Reconcile(nil, entries, DefaultTolerance)

	assert.Nil(t, report.DeclaredCashFlow)
	assert.Nil(t, report.Difference)
	assert.False(t, report.Reconciled)
	assert.Contains(t, report.Warnings, WarningNoSummaryData)
}

func TestReconcile_UnknownRowsExcluded(t *testing.T) {
	summary := &statement.StatementSummary{DepositTotal: 300.00}
	entries := []Entry{
		{Movement: statement.MovementCredit, Amount: fptr(100.00)},
		{Movement: statement.MovementUnknown},
	}

	report := Reconcile(summary, entries, DefaultTolerance)

	assert.Equal(t, 1, report.UnknownCount)
	assert.InDelta(t, 100.00, report.ComputedCashFlow, 0.001)
	assert.Contains(t, report.Warnings, WarningIncompleteDueToUnknown)
	assert.False(t, report.Reconciled)
}

func TestReconcile_ZeroToleranceFallsBackToDefault(t *testing.T) {
	summary := &statement.StatementSummary{DepositTotal: 100.00}
	entries := []Entry{{Movement: statement.MovementCredit, Amount: fptr(100.00)}}

	report := Reconcile(summary, entries, 0)
	assert.Equal(t, DefaultTolerance, report.Tolerance)
}

func TestFromClassified(t *testing.T) {
	txs := []statement.ClassifiedTransaction{
		{Movement: statement.MovementCredit, Amount: fptr(50.00)},
		{Movement: statement.MovementUnknown},
	}

	entries := FromClassified(txs)
	require.Len(t, entries, 2)
	assert.Equal(t, statement.MovementCredit, entries[0].Movement)
	assert.Nil(t, entries[1].Amount)
}
