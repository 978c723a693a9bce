package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	bq "github.com/astrafin/statement-engine/internal/bigquery"
	"github.com/astrafin/statement-engine/internal/extractor"
	"github.com/astrafin/statement-engine/internal/gcsuploader"
	infraBQ "github.com/astrafin/statement-engine/internal/infra/bigquery"
	"github.com/astrafin/statement-engine/internal/logger"
	"github.com/astrafin/statement-engine/internal/pipeline"
	"github.com/astrafin/statement-engine/internal/reconcile"
	"github.com/astrafin/statement-engine/internal/statement"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "process":
		runProcess(log)
	case "upload":
		runUpload(log)
	case "inspect":
		runInspect(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Engine CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  process   Run the processing pipeline for an uploaded statement")
	fmt.Println("  upload    Upload a statement PDF to GCS")
	fmt.Println("  inspect   Inspect a statement and its transactions")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runProcess(log zerolog.Logger) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	statementID := fs.String("statement-id", "", "Statement ID to process")
	holderKey := fs.String("holder-key", os.Getenv("HOLDER_KEY"), "account holder name key for classification")
	fs.Parse(os.Args[2:])

	if *statementID == "" {
		log.Fatal().Msg("Error: --statement-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := infraBQ.NewStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	row, err := store.GetStatement(ctx, *statementID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get statement")
	}
	if row == nil {
		log.Fatal().Msg("Statement not found")
	}
	if row.GCSURI == "" {
		log.Fatal().Msg("Statement has no GCS URI")
	}

	log.Info().Str("statement_id", *statementID).Str("gcs_uri", row.GCSURI).Msg("Starting processing")

	deps := pipeline.Deps{
		Storage:      gcsuploader.NewGCSStorageService(),
		Extractor:    extractor.NewPDFExtractor(),
		Statements:   store,
		Transactions: store,
		Accounts:     store,
	}
	params := pipeline.Params{
		StatementID:    row.StatementID,
		UserID:         row.UserID,
		GCSURI:         row.GCSURI,
		HolderKey:      *holderKey,
		StatementMonth: row.StatementMonth,
	}

	if err := pipeline.ProcessStatement(ctx, deps, params); err != nil {
		log.Fatal().Err(err).Msg("Processing failed")
	}

	fmt.Println("Processing completed successfully.")
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local PDF file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	uri, err := gcsuploader.UploadBytes(ctx, *bucketName, *objectName, data)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

func runInspect(log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	statementID := fs.String("statement-id", "", "Statement ID to inspect")
	fs.Parse(os.Args[2:])

	if *statementID == "" {
		log.Fatal().Msg("Error: --statement-id is required")
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	store, err := infraBQ.NewStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	row, err := store.GetStatement(ctx, *statementID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get statement")
	}
	if row == nil {
		log.Fatal().Msg("Statement not found")
	}

	fmt.Println("\n=== Statement Details ===")
	fmt.Printf("ID:         %s\n", row.StatementID)
	fmt.Printf("Account ID: %s\n", row.AccountID)
	fmt.Printf("Month:      %s\n", row.StatementMonth)
	fmt.Printf("GCS URI:    %s\n", row.GCSURI)
	fmt.Printf("Uploaded:   %s\n", row.UploadTS)
	fmt.Printf("Status:     %s\n", row.ParsingStatus)
	if row.ErrorCategory.Valid {
		fmt.Printf("Error:      %s\n", row.ErrorCategory.StringVal)
	}

	transactions, err := store.QueryTransactionsByStatement(ctx, *statementID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(transactions))
	for i, txn := range transactions {
		fmt.Printf("\n%d. %s\n", i+1, txn.Description)
		fmt.Printf("   Date:     %s\n", txn.TransactionDate)
		fmt.Printf("   Movement: %s\n", txn.Movement)
		if txn.Amount != nil {
			fmt.Printf("   Amount:   %s\n", txn.Amount.FloatString(2))
		} else {
			fmt.Printf("   Amount:   %s (unclassified)\n", txn.AmountAbs.FloatString(2))
		}
		if txn.NeedsReview {
			fmt.Printf("   Review:   needed\n")
		}
	}

	// Reconciliation summary against the declared figures
	entries := make([]reconcile.Entry, 0, len(transactions))
	for _, txn := range transactions {
		entry := reconcile.Entry{Movement: statement.MovementKind(txn.Movement)}
		if txn.Amount != nil {
			amount, _ := txn.Amount.Float64()
			entry.Amount = &amount
		}
		entries = append(entries, entry)
	}

	report := reconcile.Reconcile(summaryFromRow(row), entries, reconcile.DefaultTolerance)
	fmt.Println("\n=== Reconciliation ===")
	fmt.Printf("Computed cash flow: %.2f\n", report.ComputedCashFlow)
	if report.DeclaredCashFlow != nil {
		fmt.Printf("Declared cash flow: %.2f\n", *report.DeclaredCashFlow)
		fmt.Printf("Difference:         %.2f\n", *report.Difference)
	}
	fmt.Printf("Reconciled:         %v\n", report.Reconciled)
	for _, w := range report.Warnings {
		fmt.Printf("Warning:            %s\n", w)
	}
	fmt.Println()
}

func summaryFromRow(row *bq.StatementRow) *statement.StatementSummary {
	if !row.HasSummary() {
		return nil
	}
	return &statement.StatementSummary{
		OpeningBalance:  row.OpeningBalance.Float64,
		ClosingBalance:  row.ClosingBalance.Float64,
		DepositCount:    int(row.DepositCount.Int64),
		DepositTotal:    row.DepositTotal.Float64,
		WithdrawalCount: int(row.WithdrawalCount.Int64),
		WithdrawalTotal: row.WithdrawalTotal.Float64,
	}
}
