package statement

import "fmt"

// Options tunes a single Parse call.
type Options struct {
	// HolderKey is the short account-holder name key (first name plus
	// first surname) used to disambiguate third-party payment rows.
	// Optional; without it those rows stay UNKNOWN.
	HolderKey string
}

// Parse runs the full engine over extracted page texts: segment, tokenize,
// extract and validate the summary, classify. It returns a fatal error
// only for structural or summary failures; everything recoverable comes
// back inside the Result as warnings and diagnostics.
func Parse(pages []string, opts Options) (*Result, error) {
	pairs, diags := SegmentTransactions(pages)

	lines := make([]TransactionLine, 0, len(pairs))
	rejected := 0
	for _, pair := range pairs {
		line, rej := TokenizeLine(pair)
		if rej != nil {
			rejected++
			diags = append(diags, Diagnostic{Stage: "tokenizer", Message: rej.Reason})
			continue
		}
		lines = append(lines, *line)
	}

	// A stray rejected line is an extraction hiccup; most of the section
	// failing means the layout is not the one this engine understands.
	if len(pairs) > 0 && rejected*2 > len(pairs) {
		return nil, &StructuralError{
			Section: "transactions",
			Reason:  fmt.Sprintf("%d of %d detected transaction lines failed tokenization", rejected, len(pairs)),
		}
	}

	summary, err := ExtractSummary(pages)
	if err != nil {
		if len(lines) == 0 {
			// Nothing to classify and nothing declared: an empty or
			// non-statement document yields an empty result.
			return &Result{Diagnostics: append(diags, Diagnostic{
				Stage:   "summary",
				Message: "no summary section and no transactions found",
			})}, nil
		}
		return nil, fmt.Errorf("Parse: extracting summary: %w", err)
	}

	if err := summary.Validate(); err != nil {
		return nil, fmt.Errorf("Parse: validating summary: %w", err)
	}

	txs, warnings, classDiags := ClassifyTransactions(lines, summary, opts.HolderKey)
	diags = append(diags, classDiags...)

	return &Result{
		Transactions: txs,
		Summary:      summary,
		Warnings:     warnings,
		Diagnostics:  diags,
	}, nil
}
