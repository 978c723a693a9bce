package statement

import (
	"math"
	"strconv"
	"strings"
)

// Summary section markers and the fixed token positions of each figure on
// its label line. The layout prints these lines with a stable shape, so
// positional extraction is reliable; a shifted layout shows up as a
// missing figure and fails structurally rather than mis-reading.
const (
	summaryStartMarker = "comportamiento"
	summaryEndMarker   = "saldo promedio mínimo mensual"

	summaryTolerance = 0.01
)

type summaryLabel struct {
	label    string
	countIdx int // -1 when the line carries no count
	totalIdx int
}

var summaryLabels = []summaryLabel{
	{label: "saldo anterior", countIdx: -1, totalIdx: 5},
	{label: "depósitos / abonos", countIdx: 8, totalIdx: 9},
	{label: "retiros / cargos", countIdx: 9, totalIdx: 10},
	{label: "saldo final", countIdx: -1, totalIdx: 6},
}

// ExtractSummary locates the summary section and reads the four declared
// figures. All four are required; a missing figure means the layout is
// unsupported and the whole parse must fail.
func ExtractSummary(pages []string) (*StatementSummary, error) {
	type figure struct {
		count int
		total float64
		found bool
	}
	figures := make([]figure, len(summaryLabels))

	inside := false
	for _, page := range pages {
		for _, raw := range strings.Split(page, "\n") {
			lower := strings.ToLower(strings.TrimSpace(raw))

			if strings.Contains(lower, summaryEndMarker) {
				inside = false
				continue
			}
			if strings.Contains(lower, summaryStartMarker) {
				inside = true
				continue
			}
			if !inside {
				continue
			}

			for i, sl := range summaryLabels {
				if figures[i].found || !strings.Contains(lower, sl.label) {
					continue
				}
				tokens := strings.Fields(lower)
				total, ok := summaryAmountAt(tokens, sl.totalIdx)
				if !ok {
					continue
				}
				f := figure{total: total, found: true}
				if sl.countIdx >= 0 {
					count, ok := summaryCountAt(tokens, sl.countIdx)
					if !ok {
						continue
					}
					f.count = count
				}
				figures[i] = f
			}
		}
	}

	var missing []string
	for i, sl := range summaryLabels {
		if !figures[i].found {
			missing = append(missing, sl.label)
		}
	}
	if len(missing) > 0 {
		return nil, &StructuralError{
			Section: "summary",
			Reason:  "missing figures: " + strings.Join(missing, ", "),
		}
	}

	return &StatementSummary{
		OpeningBalance:  figures[0].total,
		DepositCount:    figures[1].count,
		DepositTotal:    figures[1].total,
		WithdrawalCount: figures[2].count,
		WithdrawalTotal: figures[2].total,
		ClosingBalance:  figures[3].total,
	}, nil
}

// Validate checks the declared arithmetic identity
// opening + deposits - withdrawals == closing within one cent. A
// violation means the extraction misread the document and nothing
// downstream can be trusted.
func (s *StatementSummary) Validate() error {
	computed := s.OpeningBalance + s.DepositTotal - s.WithdrawalTotal
	if math.Abs(computed-s.ClosingBalance) > summaryTolerance {
		return &SummaryError{
			Opening:     s.OpeningBalance,
			Deposits:    s.DepositTotal,
			Withdrawals: s.WithdrawalTotal,
			Closing:     s.ClosingBalance,
			Computed:    computed,
		}
	}
	return nil
}

func summaryAmountAt(tokens []string, idx int) (float64, bool) {
	if idx >= len(tokens) {
		return 0, false
	}
	if !amountTokenRE.MatchString(tokens[idx]) {
		return 0, false
	}
	v, err := parseAmount(tokens[idx])
	if err != nil {
		return 0, false
	}
	return v, true
}

func summaryCountAt(tokens []string, idx int) (int, bool) {
	if idx >= len(tokens) {
		return 0, false
	}
	n, err := strconv.Atoi(tokens[idx])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
