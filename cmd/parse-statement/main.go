// Command parse-statement parses a local statement PDF and prints the
// classified transactions as JSON. Nothing is persisted; it exists for
// inspecting statements before uploading them.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cloud.google.com/go/civil"

	"github.com/astrafin/statement-engine/internal/extractor"
	"github.com/astrafin/statement-engine/internal/reconcile"
	"github.com/astrafin/statement-engine/internal/statement"
)

var (
	pdfPath   = flag.String("pdf", "", "path to the statement PDF (required)")
	month     = flag.String("month", "", "statement month as YYYY-MM (required)")
	holderKey = flag.String("holder-key", os.Getenv("HOLDER_KEY"), "account holder name key for classification")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Fatalf("error: %v", err)
	}
}

func run() error {
	if *pdfPath == "" || *month == "" {
		flag.Usage()
		return fmt.Errorf("-pdf and -month are required")
	}

	monthStart, err := time.Parse("2006-01", *month)
	if err != nil {
		return fmt.Errorf("invalid -month %q: %w", *month, err)
	}
	statementMonth := civil.DateOf(monthStart.AddDate(0, 1, -1))

	data, err := os.ReadFile(*pdfPath)
	if err != nil {
		return fmt.Errorf("reading PDF: %w", err)
	}

	pages, err := extractor.NewPDFExtractor().ExtractPages(data)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}

	result, err := statement.Parse(pages, statement.Options{HolderKey: *holderKey})
	if err != nil {
		return fmt.Errorf("parsing statement [%s]: %w", statement.ErrorCategory(err), err)
	}

	report := reconcile.Reconcile(result.Summary, reconcile.FromClassified(result.Transactions), reconcile.DefaultTolerance)

	out := struct {
		StatementMonth string                            `json:"statement_month"`
		Summary        *statement.StatementSummary       `json:"summary,omitempty"`
		Transactions   []statement.ClassifiedTransaction `json:"transactions"`
		Warnings       []string                          `json:"warnings,omitempty"`
		Reconciliation reconcile.Report                  `json:"reconciliation"`
	}{
		StatementMonth: statementMonth.String(),
		Summary:        result.Summary,
		Transactions:   result.Transactions,
		Warnings:       result.Warnings,
		Reconciliation: report,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	return nil
}
