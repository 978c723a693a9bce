// Package pipeline orchestrates statement processing: fetch the PDF,
// extract its text, run the parsing engine, and persist the classified
// transactions.
package pipeline

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	bq "github.com/astrafin/statement-engine/internal/bigquery"
	"github.com/astrafin/statement-engine/internal/logger"
	"github.com/astrafin/statement-engine/internal/statement"
)

// Deps are the external collaborators of a pipeline run.
type Deps struct {
	Storage   StorageService
	Extractor TextExtractor

	Statements   bq.StatementRepository
	Transactions bq.TransactionRepository
	Accounts     bq.AccountRepository
}

// Params identify the statement to process.
type Params struct {
	StatementID string
	UserID      string
	GCSURI      string

	// HolderKey is the optional account-holder name key for classifying
	// ambiguous third-party payments.
	HolderKey string

	// StatementMonth anchors DD/MMM date resolution.
	StatementMonth civil.Date
}

// Pipeline executes a fixed sequence of steps against shared state.
type Pipeline struct {
	steps []PipelineStep
}

func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Run executes the steps in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, state *PipelineState) error {
	for _, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

// ProcessStatement runs the full pipeline for one uploaded statement. On
// failure the statement is marked FAILED with its error category; raw
// statement content never reaches the failure record or the logs.
func ProcessStatement(ctx context.Context, deps Deps, params Params) error {
	state := &PipelineState{
		StatementID:    params.StatementID,
		UserID:         params.UserID,
		GCSURI:         params.GCSURI,
		HolderKey:      params.HolderKey,
		StatementMonth: params.StatementMonth,
	}

	p := NewPipeline(
		&MarkProcessingStep{Statements: deps.Statements},
		&FetchPDFStep{Storage: deps.Storage},
		&ExtractTextStep{Extractor: deps.Extractor},
		&ParseStatementStep{},
		&EnsureAccountStep{Accounts: deps.Accounts},
		&BuildRowsStep{},
		&InsertTransactionsStep{Transactions: deps.Transactions},
		&MarkSucceededStep{Statements: deps.Statements},
	)

	if err := p.Run(ctx, state); err != nil {
		category := statement.ErrorCategory(err)
		deps.Statements.MarkStatementFailed(ctx, params.StatementID, category)

		log := logger.FromContext(ctx)
		log.Error().
			Str("statement_id", params.StatementID).
			Str("error_category", category).
			Msg("statement processing failed")

		return fmt.Errorf("ProcessStatement: %w", err)
	}

	return nil
}
