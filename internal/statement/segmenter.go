package statement

import (
	"fmt"
	"regexp"
	"strings"
)

// Section markers as printed by the statement layout. Matching is
// case-insensitive on a lowercased line.
const (
	transactionsStartMarker = "detalle de movimientos"
	transactionsEndMarker   = "total de movimientos"
)

// transactionStartRE matches a line opening with the operation/settlement
// date pair, e.g. "09/ENE 09/ENE SPEI RECIBIDO ... 8,500.00".
var transactionStartRE = regexp.MustCompile(`^\d{2}/[A-Z]{3}\s+\d{2}/[A-Z]{3}\b`)

// LinePair is a raw transaction line with its optional detail line.
type LinePair struct {
	Main   string
	Detail string
}

// segmentState is threaded through segmentLine one line at a time. The
// section toggle and the pending detail slot live here, never in package
// state, so segmentation of one document cannot leak into the next.
type segmentState struct {
	inside       bool
	awaitDetail  bool
	pairs        []LinePair
	skippedLines int
}

// segmentLine consumes one raw line and returns the advanced state.
func segmentLine(st segmentState, raw string) segmentState {
	line := strings.TrimRight(raw, " \t\r")
	lower := strings.ToLower(strings.TrimSpace(line))

	if strings.Contains(lower, transactionsStartMarker) {
		st.inside = true
		st.awaitDetail = false
		return st
	}
	if strings.Contains(lower, transactionsEndMarker) {
		st.inside = false
		st.awaitDetail = false
		return st
	}
	if !st.inside {
		return st
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		st.awaitDetail = false
		return st
	}

	if transactionStartRE.MatchString(trimmed) {
		st.pairs = append(st.pairs, LinePair{Main: trimmed})
		st.awaitDetail = true
		return st
	}

	// Indented continuations and column header rows carry no data.
	if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") || isHeaderLine(lower) {
		st.awaitDetail = false
		st.skippedLines++
		return st
	}

	// A non-indented line immediately after a transaction line is its
	// detail (transfer recipient, reference). Only the first one counts.
	if st.awaitDetail && len(st.pairs) > 0 {
		st.pairs[len(st.pairs)-1].Detail = trimmed
		st.awaitDetail = false
		return st
	}

	st.skippedLines++
	return st
}

func isHeaderLine(lower string) bool {
	return strings.Contains(lower, "fecha") && strings.Contains(lower, "oper")
}

// SegmentTransactions walks the extracted pages and returns the raw
// transaction lines found between the section markers, each paired with
// its optional detail line. Everything outside the section is ignored.
func SegmentTransactions(pages []string) ([]LinePair, []Diagnostic) {
	st := segmentState{}
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			st = segmentLine(st, line)
		}
	}

	var diags []Diagnostic
	if st.skippedLines > 0 {
		diags = append(diags, Diagnostic{
			Stage:   "segmenter",
			Message: fmt.Sprintf("discarded %d non-transaction lines inside the movements section", st.skippedLines),
		})
	}
	return st.pairs, diags
}
