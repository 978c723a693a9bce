package statement

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	dateTokenRE   = regexp.MustCompile(`^\d{2}/[A-Z]{3}$`)
	amountTokenRE = regexp.MustCompile(`^\d{1,3}(?:,\d{3})*\.\d{2}$`)
)

// Rejection explains why a detected transaction line could not be
// tokenized. Rejections are data, not errors: the parser collects them
// and fails only when too many lines reject.
type Rejection struct {
	Reason string
}

// TokenizeLine splits a segmented transaction line into its structured
// form. The amount columns are found by scanning tokens right to left:
// the contiguous run of amount-shaped tokens at the end of the line must
// be exactly one (amount only) or three (amount, operation balance,
// settlement balance). Anything else is a structured rejection.
func TokenizeLine(pair LinePair) (*TransactionLine, *Rejection) {
	tokens := strings.Fields(pair.Main)
	if len(tokens) < 4 {
		return nil, &Rejection{Reason: "too few tokens"}
	}

	if !dateTokenRE.MatchString(tokens[0]) || !dateTokenRE.MatchString(tokens[1]) {
		return nil, &Rejection{Reason: "missing leading date pair"}
	}

	// Right-to-left scan: amounts never appear inside the description, so
	// the trailing run is unambiguous.
	run := 0
	for i := len(tokens) - 1; i >= 2; i-- {
		if !amountTokenRE.MatchString(tokens[i]) {
			break
		}
		run++
	}

	switch run {
	case 1, 3:
	case 0:
		return nil, &Rejection{Reason: "no trailing amount"}
	default:
		return nil, &Rejection{Reason: fmt.Sprintf("unexpected trailing amount count %d", run)}
	}

	descTokens := tokens[2 : len(tokens)-run]
	if len(descTokens) == 0 {
		return nil, &Rejection{Reason: "empty description"}
	}

	amounts := make([]float64, 0, run)
	for _, tok := range tokens[len(tokens)-run:] {
		v, err := parseAmount(tok)
		if err != nil {
			return nil, &Rejection{Reason: "unparseable amount token"}
		}
		amounts = append(amounts, v)
	}

	if amounts[0] <= 0 {
		return nil, &Rejection{Reason: "non-positive amount"}
	}

	line := &TransactionLine{
		OperationDate:  tokens[0],
		SettlementDate: tokens[1],
		Description:    strings.Join(descTokens, " "),
		Detail:         pair.Detail,
		AmountAbs:      amounts[0],
	}
	if run == 3 {
		op, settle := amounts[1], amounts[2]
		line.OperationBalance = &op
		line.SettlementBalance = &settle
	}

	return line, nil
}

// parseAmount converts a grouped decimal token ("8,500.00") to a float.
func parseAmount(tok string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("parseAmount: %q: %w", tok, err)
	}
	return v, nil
}
