package statement

import (
	"errors"
	"strings"
	"testing"
)

func statementPage(summaryLines ...string) string {
	lines := []string{
		"Estado de Cuenta BBVA",
		"Detalle de Movimientos Realizados",
		"09/ENE 09/ENE SPEI RECIBIDO BANCO 150.00 8,650.00 8,650.00",
		"12/ENE 12/ENE RETIRO CAJERO AUTOMATICO 500.00 8,150.00 8,150.00",
		"Total de Movimientos 2",
	}
	lines = append(lines, summaryLines...)
	return strings.Join(lines, "\n")
}

func validSummaryLines() []string {
	return []string{
		"Comportamiento",
		"saldo anterior al 31 diciembre 8,500.00",
		"depósitos / abonos (+) total de depósitos efectuados 1 150.00",
		"retiros / cargos (-) total de retiros del periodo 1 500.00",
		"saldo final al corte del periodo 8,150.00",
		"Saldo Promedio Mínimo Mensual 1,000.00",
	}
}

func TestParse(t *testing.T) {
	result, err := Parse([]string{statementPage(validSummaryLines()...)}, Options{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.Transactions) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(result.Transactions))
	}
	if result.Transactions[0].Movement != MovementCredit {
		t.Errorf("Expected first transaction CREDIT, got %s", result.Transactions[0].Movement)
	}
	if result.Transactions[1].Movement != MovementDebit {
		t.Errorf("Expected second transaction DEBIT, got %s", result.Transactions[1].Movement)
	}
	if result.Summary == nil || result.Summary.OpeningBalance != 8500.00 {
		t.Errorf("Expected summary with opening 8500.00, got %+v", result.Summary)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings for a balanced statement, got %v", result.Warnings)
	}
}

func TestParse_SummaryInconsistencyIsFatal(t *testing.T) {
	summaryLines := []string{
		"Comportamiento",
		"saldo anterior al 31 diciembre 8,500.00",
		"depósitos / abonos (+) total de depósitos efectuados 1 150.00",
		"retiros / cargos (-) total de retiros del periodo 1 500.00",
		"saldo final al corte del periodo 9,000.00",
		"Saldo Promedio Mínimo Mensual 1,000.00",
	}

	_, err := Parse([]string{statementPage(summaryLines...)}, Options{})
	var sumErr *SummaryError
	if !errors.As(err, &sumErr) {
		t.Fatalf("Expected SummaryError, got %v", err)
	}
	if ErrorCategory(err) != CategorySummary {
		t.Errorf("Expected category %s, got %s", CategorySummary, ErrorCategory(err))
	}
}

func TestParse_MissingSummaryWithTransactionsIsFatal(t *testing.T) {
	_, err := Parse([]string{statementPage()}, Options{})
	var structErr *StructuralError
	if !errors.As(err, &structErr) {
		t.Fatalf("Expected StructuralError, got %v", err)
	}
	if ErrorCategory(err) != CategoryStructural {
		t.Errorf("Expected category %s, got %s", CategoryStructural, ErrorCategory(err))
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	result, err := Parse([]string{"Documento sin contenido bancario"}, Options{})
	if err != nil {
		t.Fatalf("Expected empty result for empty document, got error: %v", err)
	}
	if len(result.Transactions) != 0 || result.Summary != nil {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestParse_TooManyRejectionsIsFatal(t *testing.T) {
	page := strings.Join([]string{
		"Detalle de Movimientos Realizados",
		"09/ENE 09/ENE COMISION 50.00 8,100.00",
		"10/ENE 10/ENE COMISION 50.00 8,050.00",
		"11/ENE 11/ENE SPEI RECIBIDO BANCO 150.00 8,200.00 8,200.00",
		"Total de Movimientos 3",
	}, "\n")

	_, err := Parse([]string{page}, Options{})
	var structErr *StructuralError
	if !errors.As(err, &structErr) {
		t.Fatalf("Expected StructuralError for majority rejection, got %v", err)
	}
	if structErr.Section != "transactions" {
		t.Errorf("Expected transactions section in error, got %q", structErr.Section)
	}
}

func TestParse_AmbiguousRowNeedsReview(t *testing.T) {
	page := strings.Join([]string{
		"Detalle de Movimientos Realizados",
		"09/ENE 09/ENE PAGO CUENTA DE TERCERO 250.00",
		"Total de Movimientos 1",
		"Comportamiento",
		"saldo anterior al 31 diciembre 1,000.00",
		"depósitos / abonos (+) total de depósitos efectuados 0 0.00",
		"retiros / cargos (-) total de retiros del periodo 1 250.00",
		"saldo final al corte del periodo 750.00",
		"Saldo Promedio Mínimo Mensual 1,000.00",
	}, "\n")

	result, err := Parse([]string{page}, Options{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tx := result.Transactions[0]
	if tx.Movement != MovementUnknown || !tx.NeedsReview || tx.Amount != nil {
		t.Errorf("Expected undecidable row as UNKNOWN needing review, got %+v", tx)
	}
	if len(result.Warnings) == 0 {
		t.Error("Expected deviation warnings when a row stays UNKNOWN")
	}
}
