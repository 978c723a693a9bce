package statement

import (
	"fmt"
	"math"
	"strings"
)

// balanceEpsilon absorbs float noise when comparing simulated balances.
const balanceEpsilon = 0.01

// ambiguousThirdPartyPhrase reads the same for an incoming and an
// outgoing account-to-account payment; direction comes from the detail
// line when one exists.
const ambiguousThirdPartyPhrase = "PAGO CUENTA DE TERCERO"

var creditKeywords = []string{
	"SPEI RECIBIDO",
	"TRANSFERENCIA RECIBIDA",
	"DEPOSITO",
	"ABONO",
	"REEMBOLSO",
	"DEVOLUC",
	"INTERESES",
	"BECAS",
	"BECA",
}

var debitKeywords = []string{
	"SPEI ENVIADO",
	"TRANSFERENCIA ENVIADA",
	"RETIRO CAJERO",
	"PAGO TARJETA DE CREDITO",
	"COMISION",
	"IVA",
	"EFECTIVO SEGURO",
}

// ClassifyTransactions assigns a direction to every tokenized line.
//
// Directions are decided in tiers, most reliable first:
//  1. running-balance simulation against the settlement balance,
//  2. the same delta check against the operation balance,
//  3. normalized-description keywords, with detail-line disambiguation
//     for the ambiguous third-party payment phrase,
//  4. UNKNOWN.
//
// The running balance starts at the declared opening balance and advances
// to each printed settlement balance regardless of which tier decided the
// row, so one undecidable row does not desynchronize the simulation.
func ClassifyTransactions(lines []TransactionLine, summary *StatementSummary, holderKey string) ([]ClassifiedTransaction, []string, []Diagnostic) {
	var diags []Diagnostic

	running := math.NaN()
	if summary != nil {
		running = summary.OpeningBalance
	}

	txs := make([]ClassifiedTransaction, 0, len(lines))
	for _, line := range lines {
		kind := classifyByBalance(line, running)
		if kind == MovementUnknown {
			kind = classifyByDescription(line, holderKey)
		}

		tx := ClassifiedTransaction{TransactionLine: line, Movement: kind}
		switch kind {
		case MovementCredit:
			amount := line.AmountAbs
			tx.Amount = &amount
		case MovementDebit:
			amount := -line.AmountAbs
			tx.Amount = &amount
		default:
			tx.NeedsReview = true
			diags = append(diags, Diagnostic{
				Stage:   "classifier",
				Message: fmt.Sprintf("undetermined direction for %s amount %.2f", line.OperationDate, line.AmountAbs),
			})
		}
		txs = append(txs, tx)

		if line.SettlementBalance != nil {
			running = *line.SettlementBalance
		}
	}

	warnings := summaryDeviations(txs, summary)
	return txs, warnings, diags
}

// classifyByBalance decides direction from the printed balances: a
// settlement (or operation) balance that moved by exactly the transaction
// amount pins the direction.
func classifyByBalance(line TransactionLine, running float64) MovementKind {
	if math.IsNaN(running) {
		return MovementUnknown
	}
	for _, balance := range []*float64{line.SettlementBalance, line.OperationBalance} {
		if balance == nil {
			continue
		}
		delta := *balance - running
		if math.Abs(delta-line.AmountAbs) <= balanceEpsilon {
			return MovementCredit
		}
		if math.Abs(delta+line.AmountAbs) <= balanceEpsilon {
			return MovementDebit
		}
	}
	return MovementUnknown
}

func classifyByDescription(line TransactionLine, holderKey string) MovementKind {
	desc := NormalizeDescription(line.Description)

	if strings.Contains(desc, ambiguousThirdPartyPhrase) {
		return classifyThirdPartyPayment(line.Detail, holderKey)
	}

	for _, kw := range creditKeywords {
		if strings.Contains(desc, kw) {
			return MovementCredit
		}
	}
	for _, kw := range debitKeywords {
		if strings.Contains(desc, kw) {
			return MovementDebit
		}
	}
	return MovementUnknown
}

// classifyThirdPartyPayment reads the detail line of an ambiguous
// account-to-account payment. A detail naming the account holder means
// money arrived; a detail naming anyone else means it left. Without a
// detail line or a holder key there is nothing to decide with.
func classifyThirdPartyPayment(detail, holderKey string) MovementKind {
	if detail == "" || holderKey == "" {
		return MovementUnknown
	}

	party := NormalizeDescription(detail)
	if party == "" {
		return MovementUnknown
	}

	if partyMatchesHolder(party, holderKey) {
		return MovementCredit
	}
	return MovementDebit
}

// partyMatchesHolder checks that every token of the holder key (first
// name plus first surname) appears in the named party. Shared surnames
// can collide; the key is deliberately short because statements truncate
// long names.
func partyMatchesHolder(party, holderKey string) bool {
	tokens := strings.Fields(strings.ToUpper(holderKey))
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if !strings.Contains(party, tok) {
			return false
		}
	}
	return true
}

// summaryDeviations compares classified totals and counts against the
// declared summary. Deviations are reported, never fatal: an UNKNOWN row
// legitimately leaves both sides short.
func summaryDeviations(txs []ClassifiedTransaction, summary *StatementSummary) []string {
	if summary == nil {
		return nil
	}

	var (
		creditTotal, debitTotal float64
		creditCount, debitCount int
		unknownCount            int
	)
	for _, tx := range txs {
		switch tx.Movement {
		case MovementCredit:
			creditTotal += tx.AmountAbs
			creditCount++
		case MovementDebit:
			debitTotal += tx.AmountAbs
			debitCount++
		default:
			unknownCount++
		}
	}

	var warnings []string
	if math.Abs(creditTotal-summary.DepositTotal) > summaryTolerance {
		warnings = append(warnings, fmt.Sprintf(
			"credit total %.2f deviates from declared deposits %.2f", creditTotal, summary.DepositTotal))
	}
	if math.Abs(debitTotal-summary.WithdrawalTotal) > summaryTolerance {
		warnings = append(warnings, fmt.Sprintf(
			"debit total %.2f deviates from declared withdrawals %.2f", debitTotal, summary.WithdrawalTotal))
	}
	if creditCount+unknownCount < summary.DepositCount {
		warnings = append(warnings, fmt.Sprintf(
			"credit count %d below declared deposit count %d", creditCount, summary.DepositCount))
	}
	if debitCount+unknownCount < summary.WithdrawalCount {
		warnings = append(warnings, fmt.Sprintf(
			"debit count %d below declared withdrawal count %d", debitCount, summary.WithdrawalCount))
	}
	if unknownCount > 0 {
		warnings = append(warnings, fmt.Sprintf("%d transactions pending manual review", unknownCount))
	}
	return warnings
}
