// Package handlers implements the HTTP endpoints for statement upload,
// processing, inspection and reconciliation.
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/astrafin/statement-engine/internal/api/middleware"
	bq "github.com/astrafin/statement-engine/internal/bigquery"
	"github.com/astrafin/statement-engine/internal/gcsuploader"
	"github.com/astrafin/statement-engine/internal/jobs"
	"github.com/astrafin/statement-engine/internal/reconcile"
	"github.com/astrafin/statement-engine/internal/statement"
)

// MaxUploadBytes caps statement PDF uploads.
const MaxUploadBytes = 10 << 20

// DefaultUserID is used when the request carries no X-User-ID header.
const DefaultUserID = "local"

// StatementsHandler handles statement-related endpoints.
type StatementsHandler struct {
	statements   bq.StatementRepository
	transactions bq.TransactionRepository
	storage      gcsuploader.StorageService
	publisher    jobs.Publisher
	bucket       string
	log          zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(statements bq.StatementRepository, transactions bq.TransactionRepository, storage gcsuploader.StorageService, publisher jobs.Publisher, bucket string, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		statements:   statements,
		transactions: transactions,
		storage:      storage,
		publisher:    publisher,
		bucket:       bucket,
		log:          log,
	}
}

func requestUserID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return DefaultUserID
}

// UploadStatement handles POST /api/statements/upload
// Query parameters: filename, statement_month (YYYY-MM).
func (h *StatementsHandler) UploadStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestUserID(r)

	statementMonth, err := parseStatementMonth(r.URL.Query().Get("statement_month"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "statement_month must be YYYY-MM")
		return
	}

	filename := sanitizeFilename(r.URL.Query().Get("filename"))

	data, err := io.ReadAll(io.LimitReader(r.Body, MaxUploadBytes+1))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read upload body")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Empty upload")
		return
	}
	if len(data) > MaxUploadBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Statement PDF exceeds the size limit")
		return
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	// Statement-level duplicate detection: the same PDF uploaded twice
	// points at the existing record instead of creating a second one.
	existing, err := h.statements.FindStatementByChecksum(ctx, userID, checksum)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to check statement checksum")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload statement")
		return
	}
	if existing != nil {
		middleware.WriteJSON(w, http.StatusConflict, map[string]string{
			"statement_id": existing.StatementID,
			"status":       "duplicate",
		})
		return
	}

	statementID := uuid.NewString()
	objectName := fmt.Sprintf("statements/%s/%s/%s-%s", userID, statementMonth.String()[:7], statementID, filename)

	gcsURI, err := h.storage.UploadBytes(ctx, h.bucket, objectName, data)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to upload statement to GCS")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload statement")
		return
	}

	row := &bq.StatementRow{
		StatementID:      statementID,
		UserID:           userID,
		StatementMonth:   statementMonth,
		GCSURI:           gcsURI,
		OriginalFilename: filename,
		ChecksumSHA256:   checksum,
		FileSizeBytes:    int64(len(data)),
		ParsingStatus:    bq.StatusPending,
		UploadTS:         time.Now().UTC(),
	}
	if err := h.statements.InsertStatement(ctx, row); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert statement metadata")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save statement metadata")
		return
	}

	job := &jobs.ProcessStatementJob{
		StatementID:    statementID,
		UserID:         userID,
		GCSURI:         gcsURI,
		StatementMonth: statementMonth.String(),
	}
	if err := h.publisher.PublishProcessStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue processing job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue processing job")
		return
	}

	h.log.Info().
		Str("statement_id", statementID).
		Str("job_id", job.JobID).
		Int("bytes", len(data)).
		Msg("Statement uploaded and queued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"statement_id": statementID,
		"job_id":       job.JobID,
		"gcs_uri":      gcsURI,
		"status":       bq.StatusPending,
	})
}

// ListStatements handles GET /api/statements
func (h *StatementsHandler) ListStatements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	statements, err := h.statements.ListStatements(ctx, requestUserID(r))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list statements")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list statements")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"statements": statements,
		"count":      len(statements),
	})
}

// GetStatement handles GET /api/statements/{id}
func (h *StatementsHandler) GetStatement(w http.ResponseWriter, r *http.Request, statementID string) {
	ctx := r.Context()

	row, err := h.statements.GetStatement(ctx, statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to get statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get statement")
		return
	}
	if row == nil {
		middleware.WriteError(w, http.StatusNotFound, "Statement not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, row)
}

// ListStatementTransactions handles GET /api/statements/{id}/transactions
func (h *StatementsHandler) ListStatementTransactions(w http.ResponseWriter, r *http.Request, statementID string) {
	ctx := r.Context()

	transactions, err := h.transactions.QueryTransactionsByStatement(ctx, statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	if transactions == nil {
		transactions = []*bq.TransactionRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// GetStatementHealth handles GET /api/statements/{id}/health
// It reconciles the persisted transactions against the declared summary.
func (h *StatementsHandler) GetStatementHealth(w http.ResponseWriter, r *http.Request, statementID string) {
	ctx := r.Context()

	row, err := h.statements.GetStatement(ctx, statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to get statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get statement")
		return
	}
	if row == nil {
		middleware.WriteError(w, http.StatusNotFound, "Statement not found")
		return
	}
	if row.ParsingStatus != bq.StatusSuccess {
		middleware.WriteError(w, http.StatusConflict, "Statement has not been processed")
		return
	}

	transactions, err := h.transactions.QueryTransactionsByStatement(ctx, statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to reconcile statement")
		return
	}

	tolerance := reconcile.DefaultTolerance
	if tolStr := r.URL.Query().Get("tolerance"); tolStr != "" {
		if tol, err := strconv.ParseFloat(tolStr, 64); err == nil && tol > 0 {
			tolerance = tol
		}
	}

	report := reconcile.Reconcile(summaryFromRow(row), entriesFromRows(transactions), tolerance)
	middleware.WriteJSON(w, http.StatusOK, report)
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

func entriesFromRows(rows []*bq.TransactionRow) []reconcile.Entry {
	entries := make([]reconcile.Entry, 0, len(rows))
	for _, row := range rows {
		entry := reconcile.Entry{Movement: statement.MovementKind(row.Movement)}
		if row.Amount != nil {
			amount, _ := row.Amount.Float64()
			entry.Amount = &amount
		}
		entries = append(entries, entry)
	}
	return entries
}

func parseStatementMonth(raw string) (civil.Date, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(raw))
	if err != nil {
		return civil.Date{}, fmt.Errorf("parseStatementMonth: %w", err)
	}
	// Anchor at month end; statements are issued at the end of the month.
	firstOfNext := t.AddDate(0, 1, 0)
	lastDay := firstOfNext.AddDate(0, 0, -1)
	return civil.DateOf(lastDay), nil
}

func sanitizeFilename(raw string) string {
	name := filepath.Base(strings.TrimSpace(raw))
	if idx := strings.Index(name, "?"); idx > 0 {
		name = name[:idx]
	}
	if name == "" || name == "." || name == "/" {
		return "statement.pdf"
	}
	return name
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	transactions bq.TransactionRepository
	log          zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(transactions bq.TransactionRepository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		transactions: transactions,
		log:          log,
	}
}

// ReclassifyTransaction handles PUT /api/transactions/{id}/classification
// It applies a manual movement override. The signed amount and review
// flag are recomputed; the fingerprint is never recomputed.
func (h *TransactionsHandler) ReclassifyTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	var req struct {
		Movement string `json:"movement"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	movement := strings.ToUpper(strings.TrimSpace(req.Movement))
	switch statement.MovementKind(movement) {
	case statement.MovementCredit, statement.MovementDebit, statement.MovementUnknown:
	default:
		middleware.WriteError(w, http.StatusBadRequest, "movement must be CREDIT, DEBIT or UNKNOWN")
		return
	}

	if err := h.transactions.UpdateTransactionClassification(r.Context(), transactionID, movement); err != nil {
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to reclassify transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to reclassify transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"transaction_id": transactionID,
		"movement":       movement,
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		StatementID: query.Get("statement_id"),
		Status:      jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
