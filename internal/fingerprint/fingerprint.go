// Package fingerprint derives the stable idempotency key that protects
// transaction inserts against double-processing of the same statement.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// Compute returns the SHA-256 hex fingerprint of a transaction. The key
// covers owner, account, statement, resolved date, uppercased
// description, the absolute amount at two decimals, and the occurrence
// index that distinguishes genuine same-day duplicates. Reprocessing the
// same statement yields identical fingerprints; the occurrence index
// keeps legitimate repeated rows distinct.
func Compute(userID, accountID, statementID string, date civil.Date, description string, amountAbs float64, occurrence int) string {
	key := strings.Join([]string{
		userID,
		accountID,
		statementID,
		date.String(),
		strings.ToUpper(strings.TrimSpace(description)),
		fmt.Sprintf("%.2f", amountAbs),
		fmt.Sprintf("%d", occurrence),
	}, ":")

	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// IsValid reports whether s looks like a fingerprint: 64 lowercase hex
// characters.
func IsValid(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Assigner hands out occurrence indices within one statement: the first
// row with a given date/description/amount combination gets 0, the next
// identical row gets 1, and so on, in statement order.
type Assigner struct {
	seen map[string]int
}

func NewAssigner() *Assigner {
	return &Assigner{seen: make(map[string]int)}
}

// Next returns the occurrence index for the given row content and
// advances the counter.
func (a *Assigner) Next(date civil.Date, description string, amountAbs float64) int {
	key := fmt.Sprintf("%s:%s:%.2f", date.String(), strings.ToUpper(strings.TrimSpace(description)), amountAbs)
	idx := a.seen[key]
	a.seen[key] = idx + 1
	return idx
}
