package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/astrafin/statement-engine/internal/bigquery"
)

// InsertTransaction inserts a single classified transaction.
func InsertTransaction(ctx context.Context, row *bq.TransactionRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertTransaction: creating client: %w", err)
	}
	defer client.Close()

	return InsertTransactionWithClient(ctx, client, row)
}

// InsertTransactionWithClient inserts one transaction after checking its
// fingerprint. Returns bq.ErrDuplicateFingerprint when the fingerprint
// already exists, so batch callers can skip the row and continue.
func InsertTransactionWithClient(ctx context.Context, client *bigquery.Client, row *bq.TransactionRow) error {
	exists, err := fingerprintExistsWithClient(ctx, client, row.Fingerprint)
	if err != nil {
		return fmt.Errorf("InsertTransactionWithClient: checking fingerprint: %w", err)
	}
	if exists {
		return bq.ErrDuplicateFingerprint
	}

	inserter := client.Dataset(datasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertTransactionWithClient: inserting row: %w", err)
	}

	return nil
}

func fingerprintExistsWithClient(ctx context.Context, client *bigquery.Client, fingerprint string) (bool, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT 1 AS found
		FROM `+"`%s.%s.%s`"+`
		WHERE fingerprint = @fingerprint
		LIMIT 1
	`, projectID, datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "fingerprint", Value: fingerprint},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("fingerprintExistsWithClient: reading query: %w", err)
	}

	var row struct {
		Found int64 `bigquery:"found"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fingerprintExistsWithClient: iterating: %w", err)
	}
	return true, nil
}

// ListStatementFingerprintsWithClient returns the fingerprints already
// stored for a statement.
func ListStatementFingerprintsWithClient(ctx context.Context, client *bigquery.Client, statementID string) (map[string]bool, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT fingerprint
		FROM `+"`%s.%s.%s`"+`
		WHERE statement_id = @statement_id
	`, projectID, datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListStatementFingerprintsWithClient: reading query: %w", err)
	}

	fingerprints := make(map[string]bool)
	for {
		var row struct {
			Fingerprint string `bigquery:"fingerprint"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListStatementFingerprintsWithClient: iterating: %w", err)
		}
		fingerprints[row.Fingerprint] = true
	}

	return fingerprints, nil
}

// QueryTransactionsByStatementWithClient retrieves all transactions of a
// statement in resolved-date, then occurrence, order.
func QueryTransactionsByStatementWithClient(ctx context.Context, client *bigquery.Client, statementID string) ([]*bq.TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			transaction_id, user_id, account_id, statement_id,
			operation_date, settlement_date, transaction_date,
			description, detail,
			amount_abs, amount, operation_balance, settlement_balance,
			movement, needs_review,
			fingerprint, occurrence_index,
			created_ts, updated_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE statement_id = @statement_id
		ORDER BY transaction_date ASC, occurrence_index ASC
	`, projectID, datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByStatementWithClient: reading query: %w", err)
	}

	var rows []*bq.TransactionRow
	for {
		var row bq.TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByStatementWithClient: iterating: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}

// UpdateTransactionClassificationWithClient overrides the movement kind
// of one transaction. The signed amount and review flag are derived from
// the new kind in the same statement; the fingerprint stays untouched so
// a manual override survives statement reprocessing.
func UpdateTransactionClassificationWithClient(ctx context.Context, client *bigquery.Client, transactionID, movement string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE `+"`%s.%s.%s`"+`
		SET movement = @movement,
		    amount = CASE @movement
		        WHEN 'CREDIT' THEN amount_abs
		        WHEN 'DEBIT' THEN -amount_abs
		        ELSE NULL
		    END,
		    needs_review = (@movement = 'UNKNOWN'),
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE transaction_id = @transaction_id
	`, projectID, datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "movement", Value: movement},
		{Name: "transaction_id", Value: transactionID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdateTransactionClassificationWithClient: %w", err)
	}
	return nil
}

// DeleteTransactionsByStatementWithClient removes every transaction of a
// statement. The pipeline uses it to roll back a partially inserted
// batch before marking the statement failed.
func DeleteTransactionsByStatementWithClient(ctx context.Context, client *bigquery.Client, statementID string) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM `+"`%s.%s.%s`"+`
		WHERE statement_id = @statement_id
	`, projectID, datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("DeleteTransactionsByStatementWithClient: %w", err)
	}
	return nil
}
