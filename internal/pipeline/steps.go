package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	bq "github.com/astrafin/statement-engine/internal/bigquery"
	"github.com/astrafin/statement-engine/internal/fingerprint"
	"github.com/astrafin/statement-engine/internal/logger"
	"github.com/astrafin/statement-engine/internal/statement"
)

// PipelineStep represents a single step in the processing pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	StatementID    string
	UserID         string
	AccountID      string
	GCSURI         string
	HolderKey      string
	StatementMonth civil.Date

	PDFBytes []byte
	Pages    []string
	Result   *statement.Result
	Rows     []*bq.TransactionRow

	InsertedCount  int
	DuplicateCount int
}

// Step 1: MarkProcessingStep flips the statement to PROCESSING.
type MarkProcessingStep struct {
	Statements bq.StatementRepository
}

func (s *MarkProcessingStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.Statements.MarkStatementProcessing(ctx, state.StatementID); err != nil {
		return fmt.Errorf("MarkProcessingStep: %w", err)
	}
	return nil
}

// Step 2: FetchPDFStep fetches the PDF bytes from GCS.
type FetchPDFStep struct {
	Storage StorageService
}

func (s *FetchPDFStep) Execute(ctx context.Context, state *PipelineState) error {
	pdfBytes, err := s.Storage.FetchFromGCS(ctx, state.GCSURI)
	if err != nil {
		return fmt.Errorf("FetchPDFStep: %w", err)
	}
	state.PDFBytes = pdfBytes
	return nil
}

// Step 3: ExtractTextStep extracts per-page text from the PDF.
type ExtractTextStep struct {
	Extractor TextExtractor
}

func (s *ExtractTextStep) Execute(ctx context.Context, state *PipelineState) error {
	pages, err := s.Extractor.ExtractPages(state.PDFBytes)
	if err != nil {
		return fmt.Errorf("ExtractTextStep: %w", err)
	}
	state.Pages = pages
	return nil
}

// Step 4: ParseStatementStep runs the parsing engine over the page text.
type ParseStatementStep struct{}

func (s *ParseStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	result, err := statement.Parse(state.Pages, statement.Options{HolderKey: state.HolderKey})
	if err != nil {
		return fmt.Errorf("ParseStatementStep: %w", err)
	}
	state.Result = result

	log := logger.FromContext(ctx)
	for _, warning := range result.Warnings {
		log.Warn().Str("statement_id", state.StatementID).Msg(warning)
	}
	log.Info().
		Str("statement_id", state.StatementID).
		Int("transactions", len(result.Transactions)).
		Int("unknown", result.UnknownCount()).
		Msg("statement parsed")

	return nil
}

// Step 5: EnsureAccountStep finds or creates the account rows belong to.
type EnsureAccountStep struct {
	Accounts bq.AccountRepository
}

func (s *EnsureAccountStep) Execute(ctx context.Context, state *PipelineState) error {
	accountID, err := s.Accounts.UpsertAccount(ctx, &bq.AccountRow{
		UserID:      state.UserID,
		BankName:    DefaultBankName,
		AccountType: DefaultAccountType,
		Currency:    DefaultCurrency,
	})
	if err != nil {
		return fmt.Errorf("EnsureAccountStep: %w", err)
	}
	state.AccountID = accountID
	return nil
}

// Step 6: BuildRowsStep resolves full dates, assigns occurrence indices
// and fingerprints, and maps classified transactions to rows.
type BuildRowsStep struct{}

func (s *BuildRowsStep) Execute(ctx context.Context, state *PipelineState) error {
	assigner := fingerprint.NewAssigner()

	rows := make([]*bq.TransactionRow, 0, len(state.Result.Transactions))
	for _, tx := range state.Result.Transactions {
		date, err := statement.ResolveDate(tx.OperationDate, state.StatementMonth)
		if err != nil {
			return fmt.Errorf("BuildRowsStep: %w", err)
		}
		if !statement.WithinStatementWindow(date, state.StatementMonth) {
			return &statement.StructuralError{
				Section: "transactions",
				Reason:  fmt.Sprintf("resolved date %s falls outside the statement window", date),
			}
		}

		occurrence := assigner.Next(date, tx.Description, tx.AmountAbs)
		fp := fingerprint.Compute(
			state.UserID, state.AccountID, state.StatementID,
			date, tx.Description, tx.AmountAbs, occurrence,
		)

		rows = append(rows, classifiedToRow(tx, state, date, fp, occurrence))
	}

	state.Rows = rows
	return nil
}

// Step 7: InsertTransactionsStep persists rows one at a time. Duplicate
// fingerprints are skipped and counted; any other failure rolls the
// whole batch back so a retry starts clean.
type InsertTransactionsStep struct {
	Transactions bq.TransactionRepository
}

func (s *InsertTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	for _, row := range state.Rows {
		err := s.Transactions.InsertTransaction(ctx, row)
		if errors.Is(err, bq.ErrDuplicateFingerprint) {
			state.DuplicateCount++
			continue
		}
		if err != nil {
			if delErr := s.Transactions.DeleteTransactionsByStatement(ctx, state.StatementID); delErr != nil {
				log := logger.FromContext(ctx)
				log.Error().Err(delErr).
					Str("statement_id", state.StatementID).
					Msg("rollback after failed insert did not complete")
			}
			return fmt.Errorf("InsertTransactionsStep: %w", err)
		}
		state.InsertedCount++
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("statement_id", state.StatementID).
		Int("inserted", state.InsertedCount).
		Int("duplicates_skipped", state.DuplicateCount).
		Msg("transactions persisted")

	return nil
}

// Step 8: MarkSucceededStep stores the declared summary on the statement
// and flips it to SUCCESS.
type MarkSucceededStep struct {
	Statements bq.StatementRepository
}

func (s *MarkSucceededStep) Execute(ctx context.Context, state *PipelineState) error {
	var summary *bq.StatementSummaryFields
	if state.Result.Summary != nil {
		summary = &bq.StatementSummaryFields{
			OpeningBalance:  state.Result.Summary.OpeningBalance,
			ClosingBalance:  state.Result.Summary.ClosingBalance,
			DepositCount:    state.Result.Summary.DepositCount,
			DepositTotal:    state.Result.Summary.DepositTotal,
			WithdrawalCount: state.Result.Summary.WithdrawalCount,
			WithdrawalTotal: state.Result.Summary.WithdrawalTotal,
		}
	}

	if err := s.Statements.MarkStatementSucceeded(ctx, state.StatementID, summary); err != nil {
		return fmt.Errorf("MarkSucceededStep: %w", err)
	}
	return nil
}

func classifiedToRow(tx statement.ClassifiedTransaction, state *PipelineState, date civil.Date, fp string, occurrence int) *bq.TransactionRow {
	row := &bq.TransactionRow{
		TransactionID:   uuid.NewString(),
		UserID:          state.UserID,
		AccountID:       state.AccountID,
		StatementID:     state.StatementID,
		OperationDate:   tx.OperationDate,
		SettlementDate:  tx.SettlementDate,
		TransactionDate: date,
		Description:     tx.Description,
		AmountAbs:       floatToRat(tx.AmountAbs),
		Movement:        string(tx.Movement),
		NeedsReview:     tx.NeedsReview,
		Fingerprint:     fp,
		OccurrenceIndex: int64(occurrence),
		CreatedTS:       time.Now().UTC(),
	}

	if tx.Detail != "" {
		row.Detail = bigquery.NullString{StringVal: tx.Detail, Valid: true}
	}
	if tx.Amount != nil {
		row.Amount = floatToRat(*tx.Amount)
	}
	if tx.OperationBalance != nil {
		row.OperationBalance = floatToRat(*tx.OperationBalance)
	}
	if tx.SettlementBalance != nil {
		row.SettlementBalance = floatToRat(*tx.SettlementBalance)
	}

	return row
}

// floatToRat converts a two-decimal amount to the NUMERIC wire type
// without picking up float representation noise.
func floatToRat(v float64) *big.Rat {
	cents := int64(v*100 + 0.5)
	if v < 0 {
		cents = int64(v*100 - 0.5)
	}
	return new(big.Rat).SetFrac64(cents, 100)
}
