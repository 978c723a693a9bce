package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"

	bq "github.com/astrafin/statement-engine/internal/bigquery"
	"github.com/astrafin/statement-engine/internal/pipeline"
)

// MockStorageService is a mock implementation of StorageService.
type MockStorageService struct {
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *MockStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return []byte("pdf data"), nil
}

func (m *MockStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return "statement.pdf"
}

// MockTextExtractor returns canned page text instead of reading a PDF.
type MockTextExtractor struct {
	Pages []string
	Err   error
}

func (m *MockTextExtractor) ExtractPages(data []byte) ([]string, error) {
	return m.Pages, m.Err
}

// MockStatementRepository records status transitions.
type MockStatementRepository struct {
	ProcessingCalled bool
	SucceededCalled  bool
	Summary          *bq.StatementSummaryFields
	FailedCategory   string
}

func (m *MockStatementRepository) InsertStatement(ctx context.Context, row *bq.StatementRow) error {
	return nil
}

func (m *MockStatementRepository) GetStatement(ctx context.Context, statementID string) (*bq.StatementRow, error) {
	return nil, nil
}

func (m *MockStatementRepository) ListStatements(ctx context.Context, userID string) ([]*bq.StatementRow, error) {
	return nil, nil
}

func (m *MockStatementRepository) FindStatementByChecksum(ctx context.Context, userID, checksum string) (*bq.StatementRow, error) {
	return nil, nil
}

func (m *MockStatementRepository) MarkStatementProcessing(ctx context.Context, statementID string) error {
	m.ProcessingCalled = true
	return nil
}

func (m *MockStatementRepository) MarkStatementSucceeded(ctx context.Context, statementID string, summary *bq.StatementSummaryFields) error {
	m.SucceededCalled = true
	m.Summary = summary
	return nil
}

func (m *MockStatementRepository) MarkStatementFailed(ctx context.Context, statementID, errorCategory string) {
	m.FailedCategory = errorCategory
}

// MockTransactionRepository simulates fingerprint-deduplicated inserts.
type MockTransactionRepository struct {
	ExistingFingerprints map[string]bool
	Inserted             []*bq.TransactionRow
	InsertErr            error
	DeletedStatement     string
}

func (m *MockTransactionRepository) InsertTransaction(ctx context.Context, row *bq.TransactionRow) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if m.ExistingFingerprints[row.Fingerprint] {
		return bq.ErrDuplicateFingerprint
	}
	if m.ExistingFingerprints == nil {
		m.ExistingFingerprints = make(map[string]bool)
	}
	m.ExistingFingerprints[row.Fingerprint] = true
	m.Inserted = append(m.Inserted, row)
	return nil
}

func (m *MockTransactionRepository) ListStatementFingerprints(ctx context.Context, statementID string) (map[string]bool, error) {
	return m.ExistingFingerprints, nil
}

func (m *MockTransactionRepository) QueryTransactionsByStatement(ctx context.Context, statementID string) ([]*bq.TransactionRow, error) {
	return m.Inserted, nil
}

func (m *MockTransactionRepository) UpdateTransactionClassification(ctx context.Context, transactionID, movement string) error {
	return nil
}

func (m *MockTransactionRepository) DeleteTransactionsByStatement(ctx context.Context, statementID string) error {
	m.DeletedStatement = statementID
	m.Inserted = nil
	return nil
}

// MockAccountRepository hands out a fixed account ID.
type MockAccountRepository struct{}

func (m *MockAccountRepository) UpsertAccount(ctx context.Context, row *bq.AccountRow) (string, error) {
	return "acct-1", nil
}

func statementPages() []string {
	return []string{strings.Join([]string{
		"Estado de Cuenta BBVA",
		"Detalle de Movimientos Realizados",
		"09/ENE 09/ENE SPEI RECIBIDO BANCO 150.00 8,650.00 8,650.00",
		"12/ENE 12/ENE RETIRO CAJERO AUTOMATICO 500.00 8,150.00 8,150.00",
		"Total de Movimientos 2",
		"Comportamiento",
		"saldo anterior al 31 diciembre 8,500.00",
		"depósitos / abonos (+) total de depósitos efectuados 1 150.00",
		"retiros / cargos (-) total de retiros del periodo 1 500.00",
		"saldo final al corte del periodo 8,150.00",
		"Saldo Promedio Mínimo Mensual 1,000.00",
	}, "\n")}
}

func testParams() pipeline.Params {
	return pipeline.Params{
		StatementID:    "stmt-1",
		UserID:         "user-1",
		GCSURI:         "gs://statements/user-1/stmt-1.pdf",
		StatementMonth: civil.Date{Year: 2025, Month: 1, Day: 31},
	}
}

func testDeps(stmts *MockStatementRepository, txs *MockTransactionRepository, extractor *MockTextExtractor) pipeline.Deps {
	return pipeline.Deps{
		Storage:      &MockStorageService{},
		Extractor:    extractor,
		Statements:   stmts,
		Transactions: txs,
		Accounts:     &MockAccountRepository{},
	}
}

func TestProcessStatement(t *testing.T) {
	stmts := &MockStatementRepository{}
	txs := &MockTransactionRepository{}

	err := pipeline.ProcessStatement(context.Background(), testDeps(stmts, txs, &MockTextExtractor{Pages: statementPages()}), testParams())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !stmts.ProcessingCalled || !stmts.SucceededCalled {
		t.Error("Expected statement marked PROCESSING then SUCCESS")
	}
	if stmts.Summary == nil || stmts.Summary.OpeningBalance != 8500.00 {
		t.Errorf("Expected stored summary with opening 8500.00, got %+v", stmts.Summary)
	}
	if len(txs.Inserted) != 2 {
		t.Fatalf("Expected 2 inserted transactions, got %d", len(txs.Inserted))
	}

	first := txs.Inserted[0]
	if first.Movement != "CREDIT" {
		t.Errorf("Expected first transaction CREDIT, got %s", first.Movement)
	}
	if first.TransactionDate != (civil.Date{Year: 2025, Month: 1, Day: 9}) {
		t.Errorf("Expected resolved date 2025-01-09, got %v", first.TransactionDate)
	}
	if len(first.Fingerprint) != 64 {
		t.Errorf("Expected 64-char fingerprint, got %q", first.Fingerprint)
	}
}

func TestProcessStatement_DuplicatesSkippedNotFatal(t *testing.T) {
	stmts := &MockStatementRepository{}
	txs := &MockTransactionRepository{}
	deps := testDeps(stmts, txs, &MockTextExtractor{Pages: statementPages()})

	// First run persists both rows; the rerun must skip both as
	// duplicates and still succeed.
	if err := pipeline.ProcessStatement(context.Background(), deps, testParams()); err != nil {
		t.Fatalf("Unexpected error on first run: %v", err)
	}

	rerunStmts := &MockStatementRepository{}
	if err := pipeline.ProcessStatement(context.Background(), testDeps(rerunStmts, txs, &MockTextExtractor{Pages: statementPages()}), testParams()); err != nil {
		t.Fatalf("Unexpected error on rerun: %v", err)
	}

	if len(txs.Inserted) != 2 {
		t.Errorf("Expected rerun to insert nothing new, got %d rows", len(txs.Inserted))
	}
	if !rerunStmts.SucceededCalled {
		t.Error("Expected rerun to end in SUCCESS despite duplicate skips")
	}
}

func TestProcessStatement_RepeatedRowsGetDistinctFingerprints(t *testing.T) {
	pages := []string{strings.Join([]string{
		"Detalle de Movimientos Realizados",
		"09/ENE 09/ENE DEPOSITO EFECTIVO 200.00 8,700.00 8,700.00",
		"09/ENE 09/ENE DEPOSITO EFECTIVO 200.00 8,900.00 8,900.00",
		"Total de Movimientos 2",
		"Comportamiento",
		"saldo anterior al 31 diciembre 8,500.00",
		"depósitos / abonos (+) total de depósitos efectuados 2 400.00",
		"retiros / cargos (-) total de retiros del periodo 0 0.00",
		"saldo final al corte del periodo 8,900.00",
		"Saldo Promedio Mínimo Mensual 1,000.00",
	}, "\n")}

	stmts := &MockStatementRepository{}
	txs := &MockTransactionRepository{}

	err := pipeline.ProcessStatement(context.Background(), testDeps(stmts, txs, &MockTextExtractor{Pages: pages}), testParams())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(txs.Inserted) != 2 {
		t.Fatalf("Expected 2 inserted rows, got %d", len(txs.Inserted))
	}
	if txs.Inserted[0].Fingerprint == txs.Inserted[1].Fingerprint {
		t.Error("Identical rows must get distinct fingerprints via the occurrence index")
	}
	if txs.Inserted[0].OccurrenceIndex != 0 || txs.Inserted[1].OccurrenceIndex != 1 {
		t.Errorf("Expected occurrence indices 0 and 1, got %d and %d",
			txs.Inserted[0].OccurrenceIndex, txs.Inserted[1].OccurrenceIndex)
	}
}

func TestProcessStatement_ParseFailureMarksFailed(t *testing.T) {
	pages := []string{strings.Join([]string{
		"Detalle de Movimientos Realizados",
		"09/ENE 09/ENE SPEI RECIBIDO BANCO 150.00 8,650.00 8,650.00",
		"Total de Movimientos 1",
	}, "\n")}

	stmts := &MockStatementRepository{}
	txs := &MockTransactionRepository{}

	err := pipeline.ProcessStatement(context.Background(), testDeps(stmts, txs, &MockTextExtractor{Pages: pages}), testParams())
	if err == nil {
		t.Fatal("Expected error for statement without summary section")
	}

	if stmts.FailedCategory != "STRUCTURAL_PARSE_ERROR" {
		t.Errorf("Expected STRUCTURAL_PARSE_ERROR category, got %q", stmts.FailedCategory)
	}
	if len(txs.Inserted) != 0 {
		t.Errorf("Expected no inserts after fatal parse failure, got %d", len(txs.Inserted))
	}
}

func TestProcessStatement_InsertFailureRollsBack(t *testing.T) {
	stmts := &MockStatementRepository{}
	txs := &MockTransactionRepository{InsertErr: errors.New("stream closed")}

	err := pipeline.ProcessStatement(context.Background(), testDeps(stmts, txs, &MockTextExtractor{Pages: statementPages()}), testParams())
	if err == nil {
		t.Fatal("Expected error when inserts fail")
	}

	if txs.DeletedStatement != "stmt-1" {
		t.Error("Expected partial batch rolled back via delete")
	}
	if stmts.FailedCategory != "INTERNAL_ERROR" {
		t.Errorf("Expected INTERNAL_ERROR category, got %q", stmts.FailedCategory)
	}
}
