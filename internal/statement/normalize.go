package statement

import "strings"

// runTogetherRepairs fixes extraction artifacts where the PDF text layer
// drops the space inside a known phrase.
var runTogetherRepairs = map[string]string{
	"SPEIRECIBIDO": "SPEI RECIBIDO",
	"SPEIENVIADO":  "SPEI ENVIADO",
	"PAGOCUENTA":   "PAGO CUENTA",
	"CUENTADE":     "CUENTA DE",
	"DETERCERO":    "DE TERCERO",
	"RETIROCAJERO": "RETIRO CAJERO",
}

// transferSynonyms collapses bank wording variants onto one canonical
// token so keyword matching sees a single vocabulary.
var transferSynonyms = map[string]string{
	"TRASPASO": "TRANSFERENCIA",
	"TRANSF":   "TRANSFERENCIA",
	"TRANSF.":  "TRANSFERENCIA",
}

// NormalizeDescription prepares a raw description for keyword matching:
// uppercase, repair run-together words, canonicalize transfer synonyms,
// collapse whitespace.
func NormalizeDescription(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))

	for broken, fixed := range runTogetherRepairs {
		s = strings.ReplaceAll(s, broken, fixed)
	}

	words := strings.Fields(s)
	for i, w := range words {
		if canonical, ok := transferSynonyms[w]; ok {
			words[i] = canonical
		}
	}

	return strings.Join(words, " ")
}
