package statement

import (
	"errors"
	"fmt"
)

// Error categories persisted with failed statements. Only the category is
// ever stored or logged; raw statement text stays out of error paths.
const (
	CategoryStructural = "STRUCTURAL_PARSE_ERROR"
	CategorySummary    = "SUMMARY_INCONSISTENCY"
	CategoryInternal   = "INTERNAL_ERROR"
)

// StructuralError means the document does not follow the expected layout:
// a required section is missing, or too many detected transaction lines
// failed tokenization.
type StructuralError struct {
	Section string
	Reason  string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural parse error in %s section: %s", e.Section, e.Reason)
}

// SummaryError means the four declared summary figures were found but do
// not satisfy opening + deposits - withdrawals == closing.
type SummaryError struct {
	Opening  float64
	Deposits float64

	Withdrawals float64
	Closing     float64

	// Computed is opening + deposits - withdrawals.
	Computed float64
}

func (e *SummaryError) Error() string {
	return fmt.Sprintf("summary inconsistency: declared closing %.2f, computed %.2f", e.Closing, e.Computed)
}

// ErrorCategory maps a parse failure to its non-sensitive persisted category.
func ErrorCategory(err error) string {
	var structErr *StructuralError
	if errors.As(err, &structErr) {
		return CategoryStructural
	}
	var sumErr *SummaryError
	if errors.As(err, &sumErr) {
		return CategorySummary
	}
	return CategoryInternal
}
