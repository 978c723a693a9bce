package statement

import (
	"strings"
	"testing"
)

func TestSegmentTransactions(t *testing.T) {
	page := strings.Join([]string{
		"Estado de Cuenta",
		"No. de Cuenta 1234567890",
		"Detalle de Movimientos Realizados",
		"FECHA OPER FECHA LIQ DESCRIPCIÓN CARGOS ABONOS SALDO",
		"09/ENE 09/ENE SPEI RECIBIDO BANCO 150.00 8,650.00 8,650.00",
		"BNET TRANSFERENCIA JUAN PEREZ LOPEZ",
		"12/ENE 12/ENE RETIRO CAJERO AUTOMATICO 500.00 8,150.00 8,150.00",
		"   REF 0012345 CONTINUACION",
		"Total de Movimientos 2",
		"15/ENE 15/ENE FUERA DE SECCION 100.00",
	}, "\n")

	pairs, _ := SegmentTransactions([]string{page})

	if len(pairs) != 2 {
		t.Fatalf("Expected 2 transaction lines, got %d", len(pairs))
	}
	if !strings.HasPrefix(pairs[0].Main, "09/ENE 09/ENE SPEI RECIBIDO") {
		t.Errorf("Unexpected first line: %q", pairs[0].Main)
	}
	if pairs[0].Detail != "BNET TRANSFERENCIA JUAN PEREZ LOPEZ" {
		t.Errorf("Expected detail line on first transaction, got %q", pairs[0].Detail)
	}
	if pairs[1].Detail != "" {
		t.Errorf("Indented continuation should not become a detail, got %q", pairs[1].Detail)
	}
}

func TestSegmentTransactions_NoSection(t *testing.T) {
	pairs, _ := SegmentTransactions([]string{"09/ENE 09/ENE SPEI RECIBIDO 150.00"})
	if len(pairs) != 0 {
		t.Errorf("Expected no transactions outside the section, got %d", len(pairs))
	}
}

func TestSegmentTransactions_SectionSpansPages(t *testing.T) {
	page1 := "Detalle de Movimientos Realizados\n09/ENE 09/ENE DEPOSITO EFECTIVO 100.00"
	page2 := "10/ENE 10/ENE PAGO TARJETA DE CREDITO 200.00\nTotal de Movimientos"

	pairs, _ := SegmentTransactions([]string{page1, page2})
	if len(pairs) != 2 {
		t.Fatalf("Expected section to stay open across pages, got %d lines", len(pairs))
	}
}

func TestSegmentTransactions_DetailOnlyAttachesOnce(t *testing.T) {
	page := strings.Join([]string{
		"Detalle de Movimientos Realizados",
		"09/ENE 09/ENE PAGO CUENTA DE TERCERO 150.00",
		"BNET MARIA LOPEZ GARCIA",
		"SEGUNDA LINEA SUELTA",
		"Total de Movimientos",
	}, "\n")

	pairs, _ := SegmentTransactions([]string{page})
	if len(pairs) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(pairs))
	}
	if pairs[0].Detail != "BNET MARIA LOPEZ GARCIA" {
		t.Errorf("Expected first following line as detail, got %q", pairs[0].Detail)
	}
}
