package statement

import "testing"

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"uppercases", "spei recibido banco", "SPEI RECIBIDO BANCO"},
		{"repairs run-together words", "SPEIRECIBIDO BANCO", "SPEI RECIBIDO BANCO"},
		{"repairs broken third-party phrase", "PAGOCUENTA DETERCERO", "PAGO CUENTA DE TERCERO"},
		{"canonicalizes transfer synonyms", "TRASPASO A CUENTA PROPIA", "TRANSFERENCIA A CUENTA PROPIA"},
		{"collapses whitespace", "  SPEI   RECIBIDO\tBANCO ", "SPEI RECIBIDO BANCO"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDescription(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
