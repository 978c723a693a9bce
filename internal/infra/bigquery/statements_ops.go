// Package bigquery contains the BigQuery-backed repository
// implementations. Every operation has a *WithClient variant that reuses
// a shared client; the plain variant opens and closes its own.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"

	bq "github.com/astrafin/statement-engine/internal/bigquery"
)

const (
	projectID = "astrafin-prod"
	datasetID = "statements"

	statementsTable   = "statements"
	transactionsTable = "transactions"
	accountsTable     = "accounts"
)

const statementColumns = `
	statement_id, user_id, account_id, statement_month,
	gcs_uri, original_filename, checksum_sha256, file_size_bytes,
	parsing_status, error_category,
	opening_balance, closing_balance,
	deposit_count, deposit_total, withdrawal_count, withdrawal_total,
	upload_ts, processed_ts`

// InsertStatement inserts a single StatementRow.
func InsertStatement(ctx context.Context, row *bq.StatementRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertStatement: creating client: %w", err)
	}
	defer client.Close()

	return InsertStatementWithClient(ctx, client, row)
}

// InsertStatementWithClient inserts a statement using the provided client.
func InsertStatementWithClient(ctx context.Context, client *bigquery.Client, row *bq.StatementRow) error {
	inserter := client.Dataset(datasetID).Table(statementsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertStatementWithClient: inserting row: %w", err)
	}
	return nil
}

// GetStatementWithClient retrieves a statement by ID. Returns nil when
// no statement matches.
func GetStatementWithClient(ctx context.Context, client *bigquery.Client, statementID string) (*bq.StatementRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM `+"`%s.%s.%s`"+`
		WHERE statement_id = @statement_id
		LIMIT 1
	`, statementColumns, projectID, datasetID, statementsTable)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetStatementWithClient: reading query: %w", err)
	}

	var row bq.StatementRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetStatementWithClient: iterating: %w", err)
	}

	return &row, nil
}

// ListStatementsWithClient retrieves all statements for a user, newest
// upload first.
func ListStatementsWithClient(ctx context.Context, client *bigquery.Client, userID string) ([]*bq.StatementRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM `+"`%s.%s.%s`"+`
		WHERE user_id = @user_id
		ORDER BY upload_ts DESC
	`, statementColumns, projectID, datasetID, statementsTable)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListStatementsWithClient: reading query: %w", err)
	}

	var rows []*bq.StatementRow
	for {
		var row bq.StatementRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListStatementsWithClient: iterating: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}

// FindStatementByChecksumWithClient retrieves a user's statement by PDF
// checksum. Returns nil when no statement matches.
func FindStatementByChecksumWithClient(ctx context.Context, client *bigquery.Client, userID, checksum string) (*bq.StatementRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM `+"`%s.%s.%s`"+`
		WHERE user_id = @user_id
		  AND checksum_sha256 = @checksum
		ORDER BY upload_ts DESC
		LIMIT 1
	`, statementColumns, projectID, datasetID, statementsTable)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "checksum", Value: checksum},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindStatementByChecksumWithClient: reading query: %w", err)
	}

	var row bq.StatementRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindStatementByChecksumWithClient: iterating: %w", err)
	}

	return &row, nil
}

// MarkStatementProcessingWithClient sets parsing_status=PROCESSING.
func MarkStatementProcessingWithClient(ctx context.Context, client *bigquery.Client, statementID string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE `+"`%s.%s.%s`"+`
		SET parsing_status = @status
		WHERE statement_id = @statement_id
	`, projectID, datasetID, statementsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: bq.StatusProcessing},
		{Name: "statement_id", Value: statementID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkStatementProcessingWithClient: %w", err)
	}
	return nil
}

// MarkStatementSucceededWithClient sets parsing_status=SUCCESS, stores
// the declared summary figures and stamps processed_ts. A nil summary
// (empty document) records success without figures.
func MarkStatementSucceededWithClient(ctx context.Context, client *bigquery.Client, statementID string, summary *bq.StatementSummaryFields) error {
	if summary == nil {
		q := client.Query(fmt.Sprintf(`
			UPDATE `+"`%s.%s.%s`"+`
			SET parsing_status = @status,
			    error_category = NULL,
			    processed_ts = CURRENT_TIMESTAMP()
			WHERE statement_id = @statement_id
		`, projectID, datasetID, statementsTable))
		q.Parameters = []bigquery.QueryParameter{
			{Name: "status", Value: bq.StatusSuccess},
			{Name: "statement_id", Value: statementID},
		}
		if err := runDML(ctx, q); err != nil {
			return fmt.Errorf("MarkStatementSucceededWithClient: %w", err)
		}
		return nil
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE `+"`%s.%s.%s`"+`
		SET parsing_status = @status,
		    error_category = NULL,
		    opening_balance = @opening_balance,
		    closing_balance = @closing_balance,
		    deposit_count = @deposit_count,
		    deposit_total = @deposit_total,
		    withdrawal_count = @withdrawal_count,
		    withdrawal_total = @withdrawal_total,
		    processed_ts = CURRENT_TIMESTAMP()
		WHERE statement_id = @statement_id
	`, projectID, datasetID, statementsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: bq.StatusSuccess},
		{Name: "opening_balance", Value: summary.OpeningBalance},
		{Name: "closing_balance", Value: summary.ClosingBalance},
		{Name: "deposit_count", Value: summary.DepositCount},
		{Name: "deposit_total", Value: summary.DepositTotal},
		{Name: "withdrawal_count", Value: summary.WithdrawalCount},
		{Name: "withdrawal_total", Value: summary.WithdrawalTotal},
		{Name: "statement_id", Value: statementID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkStatementSucceededWithClient: %w", err)
	}
	return nil
}

// MarkStatementFailedWithClient sets parsing_status=FAILED with the
// error category. Only the category is persisted; failure details never
// leave the process. Best effort: a failure here is logged, not
// propagated, so it cannot mask the original parse error.
func MarkStatementFailedWithClient(ctx context.Context, client *bigquery.Client, statementID, errorCategory string) {
	q := client.Query(fmt.Sprintf(`
		UPDATE `+"`%s.%s.%s`"+`
		SET parsing_status = @status,
		    error_category = @error_category,
		    processed_ts = CURRENT_TIMESTAMP()
		WHERE statement_id = @statement_id
	`, projectID, datasetID, statementsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: bq.StatusFailed},
		{Name: "error_category", Value: errorCategory},
		{Name: "statement_id", Value: statementID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().Err(err).
			Str("statement_id", statementID).
			Msg("MarkStatementFailedWithClient: could not record failure")
	}
}

// runDML runs a DML query and waits for it to finish.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
