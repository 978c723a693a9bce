package statement

import (
	"errors"
	"strings"
	"testing"
)

func summaryPage(opening, deposits, withdrawals, closing string) string {
	return strings.Join([]string{
		"Comportamiento",
		"saldo anterior al 31 diciembre " + opening,
		"depósitos / abonos (+) total de depósitos efectuados 2 " + deposits,
		"retiros / cargos (-) total de retiros del periodo 3 " + withdrawals,
		"saldo final al corte del periodo " + closing,
		"Saldo Promedio Mínimo Mensual 1,000.00",
	}, "\n")
}

func TestExtractSummary(t *testing.T) {
	page := summaryPage("8,500.00", "5,000.00", "3,000.00", "10,500.00")

	summary, err := ExtractSummary([]string{page})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if summary.OpeningBalance != 8500.00 {
		t.Errorf("Expected opening 8500.00, got %.2f", summary.OpeningBalance)
	}
	if summary.DepositCount != 2 || summary.DepositTotal != 5000.00 {
		t.Errorf("Expected 2 deposits totaling 5000.00, got %d / %.2f", summary.DepositCount, summary.DepositTotal)
	}
	if summary.WithdrawalCount != 3 || summary.WithdrawalTotal != 3000.00 {
		t.Errorf("Expected 3 withdrawals totaling 3000.00, got %d / %.2f", summary.WithdrawalCount, summary.WithdrawalTotal)
	}
	if summary.ClosingBalance != 10500.00 {
		t.Errorf("Expected closing 10500.00, got %.2f", summary.ClosingBalance)
	}
}

func TestExtractSummary_MissingFigure(t *testing.T) {
	page := strings.Join([]string{
		"Comportamiento",
		"saldo anterior al 31 diciembre 8,500.00",
		"Saldo Promedio Mínimo Mensual 1,000.00",
	}, "\n")

	_, err := ExtractSummary([]string{page})
	var structErr *StructuralError
	if !errors.As(err, &structErr) {
		t.Fatalf("Expected StructuralError, got %v", err)
	}
	if structErr.Section != "summary" {
		t.Errorf("Expected summary section in error, got %q", structErr.Section)
	}
}

func TestExtractSummary_IgnoresLinesOutsideSection(t *testing.T) {
	page := "saldo anterior al 31 diciembre 8,500.00"

	_, err := ExtractSummary([]string{page})
	if err == nil {
		t.Fatal("Expected error when figures appear outside the summary section")
	}
}

func TestSummaryValidate(t *testing.T) {
	tests := []struct {
		name    string
		summary StatementSummary
		wantErr bool
	}{
		{
			name: "consistent",
			summary: StatementSummary{
				OpeningBalance: 8500.00, DepositTotal: 5000.00,
				WithdrawalTotal: 3000.00, ClosingBalance: 10500.00,
			},
		},
		{
			name: "within tolerance",
			summary: StatementSummary{
				OpeningBalance: 8500.00, DepositTotal: 5000.00,
				WithdrawalTotal: 3000.00, ClosingBalance: 10500.005,
			},
		},
		{
			name: "inconsistent",
			summary: StatementSummary{
				OpeningBalance: 8500.00, DepositTotal: 5000.00,
				WithdrawalTotal: 3000.00, ClosingBalance: 10600.00,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.summary.Validate()
			if tt.wantErr {
				var sumErr *SummaryError
				if !errors.As(err, &sumErr) {
					t.Fatalf("Expected SummaryError, got %v", err)
				}
				if sumErr.Computed != 10500.00 {
					t.Errorf("Expected computed 10500.00 in error, got %.2f", sumErr.Computed)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
