// Package bigquery defines the persisted row types and the repository
// interfaces the pipeline and API depend on.
package bigquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// Statement processing statuses.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusSuccess    = "SUCCESS"
	StatusFailed     = "FAILED"
)

// ErrDuplicateFingerprint is returned when a transaction with the same
// fingerprint already exists. Callers skip the row and keep going.
var ErrDuplicateFingerprint = errors.New("duplicate transaction fingerprint")

// StatementRepository provides statement-level database operations.
type StatementRepository interface {
	// InsertStatement inserts a new statement row with status PENDING.
	InsertStatement(ctx context.Context, row *StatementRow) error

	// GetStatement retrieves a statement by ID. Returns nil when absent.
	GetStatement(ctx context.Context, statementID string) (*StatementRow, error)

	// ListStatements retrieves all statements for a user, newest first.
	ListStatements(ctx context.Context, userID string) ([]*StatementRow, error)

	// FindStatementByChecksum retrieves a statement by its PDF SHA-256
	// checksum. Returns nil when absent.
	FindStatementByChecksum(ctx context.Context, userID, checksum string) (*StatementRow, error)

	// MarkStatementProcessing sets status PROCESSING.
	MarkStatementProcessing(ctx context.Context, statementID string) error

	// MarkStatementSucceeded sets status SUCCESS, stores the extracted
	// summary figures and stamps processed_ts.
	MarkStatementSucceeded(ctx context.Context, statementID string, summary *StatementSummaryFields) error

	// MarkStatementFailed sets status FAILED with a non-sensitive error
	// category. It never stores raw statement text.
	MarkStatementFailed(ctx context.Context, statementID, errorCategory string)
}

// TransactionRepository provides transaction-level database operations.
type TransactionRepository interface {
	// InsertTransaction inserts one classified transaction. Returns
	// ErrDuplicateFingerprint when the fingerprint already exists.
	InsertTransaction(ctx context.Context, row *TransactionRow) error

	// ListStatementFingerprints returns the fingerprints already stored
	// for a statement.
	ListStatementFingerprints(ctx context.Context, statementID string) (map[string]bool, error)

	// QueryTransactionsByStatement retrieves all transactions of one
	// statement in insertion order.
	QueryTransactionsByStatement(ctx context.Context, statementID string) ([]*TransactionRow, error)

	// UpdateTransactionClassification overrides the movement kind of one
	// transaction, recomputing the signed amount and the review flag. The
	// fingerprint is never touched.
	UpdateTransactionClassification(ctx context.Context, transactionID, movement string) error

	// DeleteTransactionsByStatement removes every transaction of a
	// statement. Used to roll back a partially persisted batch.
	DeleteTransactionsByStatement(ctx context.Context, statementID string) error
}

// AccountRepository provides account-level database operations.
type AccountRepository interface {
	// UpsertAccount finds an account by (user, bank, account type) or
	// creates it, returning the account_id.
	UpsertAccount(ctx context.Context, row *AccountRow) (string, error)
}

// StatementRow represents an uploaded statement in BigQuery.
type StatementRow struct {
	StatementID string `bigquery:"statement_id"`
	UserID      string `bigquery:"user_id"`
	AccountID   string `bigquery:"account_id"`

	// StatementMonth anchors DD/MMM date resolution; statements are
	// issued at the end of this month.
	StatementMonth civil.Date `bigquery:"statement_month"`

	GCSURI           string `bigquery:"gcs_uri"`
	OriginalFilename string `bigquery:"original_filename"`
	ChecksumSHA256   string `bigquery:"checksum_sha256"`
	FileSizeBytes    int64  `bigquery:"file_size_bytes"`

	ParsingStatus string              `bigquery:"parsing_status"`
	ErrorCategory bigquery.NullString `bigquery:"error_category"`

	// Declared summary figures, stored on success for reconciliation.
	OpeningBalance  bigquery.NullFloat64 `bigquery:"opening_balance"`
	ClosingBalance  bigquery.NullFloat64 `bigquery:"closing_balance"`
	DepositCount    bigquery.NullInt64   `bigquery:"deposit_count"`
	DepositTotal    bigquery.NullFloat64 `bigquery:"deposit_total"`
	WithdrawalCount bigquery.NullInt64   `bigquery:"withdrawal_count"`
	WithdrawalTotal bigquery.NullFloat64 `bigquery:"withdrawal_total"`

	UploadTS    time.Time              `bigquery:"upload_ts"`
	ProcessedTS bigquery.NullTimestamp `bigquery:"processed_ts"`
}

// HasSummary reports whether the statement stored its declared figures.
func (s *StatementRow) HasSummary() bool {
	return s.OpeningBalance.Valid && s.ClosingBalance.Valid &&
		s.DepositTotal.Valid && s.WithdrawalTotal.Valid
}

// StatementSummaryFields carries the declared figures when marking a
// statement processed.
type StatementSummaryFields struct {
	OpeningBalance  float64
	ClosingBalance  float64
	DepositCount    int
	DepositTotal    float64
	WithdrawalCount int
	WithdrawalTotal float64
}

// TransactionRow represents a classified transaction in BigQuery.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id" json:"transaction_id"`

	UserID      string `bigquery:"user_id" json:"user_id"`
	AccountID   string `bigquery:"account_id" json:"account_id"`
	StatementID string `bigquery:"statement_id" json:"statement_id"`

	// OperationDate and SettlementDate keep the statement's DD/MMM form;
	// TransactionDate is the operation date resolved to a full date.
	OperationDate   string     `bigquery:"operation_date" json:"operation_date"`
	SettlementDate  string     `bigquery:"settlement_date" json:"settlement_date"`
	TransactionDate civil.Date `bigquery:"transaction_date" json:"transaction_date"`

	Description string              `bigquery:"description" json:"description"`
	Detail      bigquery.NullString `bigquery:"detail" json:"detail,omitempty"`

	AmountAbs *big.Rat `bigquery:"amount_abs" json:"amount_abs"`
	// Amount is the signed amount; nil while the movement is UNKNOWN.
	Amount *big.Rat `bigquery:"amount" json:"amount,omitempty"`

	OperationBalance  *big.Rat `bigquery:"operation_balance" json:"operation_balance,omitempty"`
	SettlementBalance *big.Rat `bigquery:"settlement_balance" json:"settlement_balance,omitempty"`

	Movement    string `bigquery:"movement" json:"movement"`
	NeedsReview bool   `bigquery:"needs_review" json:"needs_review"`

	Fingerprint     string `bigquery:"fingerprint" json:"fingerprint"`
	OccurrenceIndex int64  `bigquery:"occurrence_index" json:"occurrence_index"`

	CreatedTS time.Time              `bigquery:"created_ts" json:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts" json:"updated_ts,omitempty"`
}

// MarshalJSON renders the NUMERIC columns as two-decimal strings.
func (t TransactionRow) MarshalJSON() ([]byte, error) {
	type Alias TransactionRow
	return json.Marshal(&struct {
		AmountAbs         string  `json:"amount_abs"`
		Amount            *string `json:"amount,omitempty"`
		OperationBalance  *string `json:"operation_balance,omitempty"`
		SettlementBalance *string `json:"settlement_balance,omitempty"`
		*Alias
	}{
		AmountAbs:         ratString(t.AmountAbs),
		Amount:            ratStringPtr(t.Amount),
		OperationBalance:  ratStringPtr(t.OperationBalance),
		SettlementBalance: ratStringPtr(t.SettlementBalance),
		Alias:             (*Alias)(&t),
	})
}

func ratString(r *big.Rat) string {
	if r == nil {
		return "0.00"
	}
	f, _ := r.Float64()
	return fmt.Sprintf("%.2f", f)
}

func ratStringPtr(r *big.Rat) *string {
	if r == nil {
		return nil
	}
	s := ratString(r)
	return &s
}

// AccountRow represents a bank account in BigQuery. Statements from the
// same bank and account type map onto one account per user.
type AccountRow struct {
	AccountID string `bigquery:"account_id"`

	UserID      string `bigquery:"user_id"`
	BankName    string `bigquery:"bank_name"`
	AccountType string `bigquery:"account_type"`
	Currency    string `bigquery:"currency"`

	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"`
}
