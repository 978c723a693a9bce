package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	bq "github.com/astrafin/statement-engine/internal/bigquery"
)

// FindAccount finds a user's account by bank name and account type.
// Returns nil if no matching account is found.
func FindAccount(ctx context.Context, userID, bankName, accountType string) (*bq.AccountRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("FindAccount: creating client: %w", err)
	}
	defer client.Close()

	return FindAccountWithClient(ctx, client, userID, bankName, accountType)
}

// FindAccountWithClient finds an account using the provided BigQuery
// client. Bank name and account type are compared trimmed and uppercased.
func FindAccountWithClient(ctx context.Context, client *bigquery.Client, userID, bankName, accountType string) (*bq.AccountRow, error) {
	normBank := strings.ToUpper(strings.TrimSpace(bankName))
	normType := strings.ToUpper(strings.TrimSpace(accountType))

	if userID == "" {
		return nil, fmt.Errorf("FindAccountWithClient: user_id cannot be empty")
	}
	if normBank == "" || normType == "" {
		return nil, fmt.Errorf("FindAccountWithClient: bank_name and account_type cannot be empty")
	}

	query := fmt.Sprintf(`
		SELECT
			account_id,
			user_id,
			bank_name,
			account_type,
			currency,
			created_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE user_id = @user_id
		  AND UPPER(TRIM(bank_name)) = @bank_name
		  AND UPPER(TRIM(account_type)) = @account_type
		ORDER BY created_ts DESC
		LIMIT 1
	`, projectID, datasetID, accountsTable)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "bank_name", Value: normBank},
		{Name: "account_type", Value: normType},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindAccountWithClient: reading query: %w", err)
	}

	var row bq.AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindAccountWithClient: iterating: %w", err)
	}

	return &row, nil
}

// UpsertAccount finds an existing account by (user, bank, account type)
// or creates a new one. Returns the account_id either way.
func UpsertAccount(ctx context.Context, row *bq.AccountRow) (string, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("UpsertAccount: creating client: %w", err)
	}
	defer client.Close()

	return UpsertAccountWithClient(ctx, client, row)
}

// UpsertAccountWithClient finds or creates an account using the provided
// BigQuery client.
func UpsertAccountWithClient(ctx context.Context, client *bigquery.Client, row *bq.AccountRow) (string, error) {
	existing, err := FindAccountWithClient(ctx, client, row.UserID, row.BankName, row.AccountType)
	if err != nil {
		return "", fmt.Errorf("UpsertAccountWithClient: finding existing account: %w", err)
	}
	if existing != nil {
		return existing.AccountID, nil
	}

	if row.AccountID == "" {
		row.AccountID = uuid.NewString()
	}

	q := client.Query(fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.%s`"+` (
			account_id, user_id, bank_name, account_type, currency, created_ts
		)
		VALUES (
			@account_id, @user_id, @bank_name, @account_type, @currency, CURRENT_TIMESTAMP()
		)
	`, projectID, datasetID, accountsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: row.AccountID},
		{Name: "user_id", Value: row.UserID},
		{Name: "bank_name", Value: row.BankName},
		{Name: "account_type", Value: row.AccountType},
		{Name: "currency", Value: row.Currency},
	}

	if err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("UpsertAccountWithClient: %w", err)
	}

	return row.AccountID, nil
}
