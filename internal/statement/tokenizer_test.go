package statement

import "testing"

func TestTokenizeLine(t *testing.T) {
	tests := []struct {
		name         string
		main         string
		wantReject   bool
		wantAmount   float64
		wantBalances bool
		wantDesc     string
	}{
		{
			name:         "three amounts",
			main:         "09/ENE 09/ENE SPEI RECIBIDO BANCO 150.00 8,650.00 8,650.00",
			wantAmount:   150.00,
			wantBalances: true,
			wantDesc:     "SPEI RECIBIDO BANCO",
		},
		{
			name:       "single amount",
			main:       "12/ENE 12/ENE RETIRO CAJERO AUTOMATICO 1,500.00",
			wantAmount: 1500.00,
			wantDesc:   "RETIRO CAJERO AUTOMATICO",
		},
		{
			name:       "two amounts rejected",
			main:       "12/ENE 12/ENE COMISION 50.00 8,100.00",
			wantReject: true,
		},
		{
			name:       "no amounts rejected",
			main:       "12/ENE 12/ENE SIN IMPORTE ALGUNO",
			wantReject: true,
		},
		{
			name:       "missing date pair rejected",
			main:       "SPEI RECIBIDO BANCO 150.00 8,650.00 8,650.00",
			wantReject: true,
		},
		{
			name:       "too few tokens rejected",
			main:       "09/ENE 09/ENE 150.00",
			wantReject: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, rej := TokenizeLine(LinePair{Main: tt.main})

			if tt.wantReject {
				if rej == nil {
					t.Fatalf("Expected rejection, got line %+v", line)
				}
				return
			}

			if rej != nil {
				t.Fatalf("Unexpected rejection: %s", rej.Reason)
			}
			if line.AmountAbs != tt.wantAmount {
				t.Errorf("Expected amount %.2f, got %.2f", tt.wantAmount, line.AmountAbs)
			}
			if line.HasBalances() != tt.wantBalances {
				t.Errorf("Expected balances=%v, got %v", tt.wantBalances, line.HasBalances())
			}
			if line.Description != tt.wantDesc {
				t.Errorf("Expected description %q, got %q", tt.wantDesc, line.Description)
			}
		})
	}
}

func TestTokenizeLine_BalanceOrder(t *testing.T) {
	line, rej := TokenizeLine(LinePair{Main: "09/ENE 10/ENE DEPOSITO EFECTIVO 100.00 8,600.00 8,700.00"})
	if rej != nil {
		t.Fatalf("Unexpected rejection: %s", rej.Reason)
	}
	if *line.OperationBalance != 8600.00 {
		t.Errorf("Expected operation balance 8600.00, got %.2f", *line.OperationBalance)
	}
	if *line.SettlementBalance != 8700.00 {
		t.Errorf("Expected settlement balance 8700.00, got %.2f", *line.SettlementBalance)
	}
}

func TestTokenizeLine_CarriesDetail(t *testing.T) {
	line, rej := TokenizeLine(LinePair{
		Main:   "09/ENE 09/ENE PAGO CUENTA DE TERCERO 150.00",
		Detail: "BNET JUAN PEREZ LOPEZ",
	})
	if rej != nil {
		t.Fatalf("Unexpected rejection: %s", rej.Reason)
	}
	if line.Detail != "BNET JUAN PEREZ LOPEZ" {
		t.Errorf("Expected detail carried through, got %q", line.Detail)
	}
}
