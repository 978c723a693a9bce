package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	bq "github.com/astrafin/statement-engine/internal/bigquery"
)

// Store is the BigQuery-backed implementation of the statement,
// transaction and account repositories. It holds one shared client so a
// pipeline run does not open a connection per operation.
type Store struct {
	client *bigquery.Client
}

var (
	_ bq.StatementRepository   = (*Store)(nil)
	_ bq.TransactionRepository = (*Store)(nil)
	_ bq.AccountRepository     = (*Store)(nil)
)

// NewStore creates a Store with a shared BigQuery client.
func NewStore(ctx context.Context) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) InsertStatement(ctx context.Context, row *bq.StatementRow) error {
	return InsertStatementWithClient(ctx, s.client, row)
}

func (s *Store) GetStatement(ctx context.Context, statementID string) (*bq.StatementRow, error) {
	return GetStatementWithClient(ctx, s.client, statementID)
}

func (s *Store) ListStatements(ctx context.Context, userID string) ([]*bq.StatementRow, error) {
	return ListStatementsWithClient(ctx, s.client, userID)
}

func (s *Store) FindStatementByChecksum(ctx context.Context, userID, checksum string) (*bq.StatementRow, error) {
	return FindStatementByChecksumWithClient(ctx, s.client, userID, checksum)
}

func (s *Store) MarkStatementProcessing(ctx context.Context, statementID string) error {
	return MarkStatementProcessingWithClient(ctx, s.client, statementID)
}

func (s *Store) MarkStatementSucceeded(ctx context.Context, statementID string, summary *bq.StatementSummaryFields) error {
	return MarkStatementSucceededWithClient(ctx, s.client, statementID, summary)
}

func (s *Store) MarkStatementFailed(ctx context.Context, statementID, errorCategory string) {
	MarkStatementFailedWithClient(ctx, s.client, statementID, errorCategory)
}

func (s *Store) InsertTransaction(ctx context.Context, row *bq.TransactionRow) error {
	return InsertTransactionWithClient(ctx, s.client, row)
}

func (s *Store) ListStatementFingerprints(ctx context.Context, statementID string) (map[string]bool, error) {
	return ListStatementFingerprintsWithClient(ctx, s.client, statementID)
}

func (s *Store) QueryTransactionsByStatement(ctx context.Context, statementID string) ([]*bq.TransactionRow, error) {
	return QueryTransactionsByStatementWithClient(ctx, s.client, statementID)
}

func (s *Store) UpdateTransactionClassification(ctx context.Context, transactionID, movement string) error {
	return UpdateTransactionClassificationWithClient(ctx, s.client, transactionID, movement)
}

func (s *Store) DeleteTransactionsByStatement(ctx context.Context, statementID string) error {
	return DeleteTransactionsByStatementWithClient(ctx, s.client, statementID)
}

func (s *Store) UpsertAccount(ctx context.Context, row *bq.AccountRow) (string, error) {
	return UpsertAccountWithClient(ctx, s.client, row)
}
