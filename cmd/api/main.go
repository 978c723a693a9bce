package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/astrafin/statement-engine/internal/api/handlers"
	"github.com/astrafin/statement-engine/internal/api/middleware"
	"github.com/astrafin/statement-engine/internal/extractor"
	"github.com/astrafin/statement-engine/internal/gcsuploader"
	infraBQ "github.com/astrafin/statement-engine/internal/infra/bigquery"
	"github.com/astrafin/statement-engine/internal/jobs"
	"github.com/astrafin/statement-engine/internal/jobs/inmemory"
	"github.com/astrafin/statement-engine/internal/logger"
	"github.com/astrafin/statement-engine/internal/pipeline"
)

func main() {
	// Parse command-line flags
	var (
		port      = flag.String("port", "8080", "HTTP server port")
		bucket    = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name for statement uploads (or set GCS_BUCKET env)")
		holderKey = flag.String("holder-key", os.Getenv("HOLDER_KEY"), "account holder name key for classification (or set HOLDER_KEY env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - statement uploads will be disabled")
	}

	// Initialize repositories
	ctx := context.Background()

	store, err := infraBQ.NewStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	storage := gcsuploader.NewGCSStorageService()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	deps := pipeline.Deps{
		Storage:      storage,
		Extractor:    extractor.NewPDFExtractor(),
		Statements:   store,
		Transactions: store,
		Accounts:     store,
	}

	jobHandler := newProcessStatementHandler(deps, *holderKey, log)

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	statementsHandler := handlers.NewStatementsHandler(store, store, storage, jobQueue, *bucket, log)
	transactionsHandler := handlers.NewTransactionsHandler(store, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Statements endpoints
	mux.HandleFunc("/api/statements", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			statementsHandler.ListStatements(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/statements/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.UploadStatement(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/statements/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		rest := strings.TrimPrefix(r.URL.Path, "/api/statements/")
		statementID, sub, _ := strings.Cut(rest, "/")
		if statementID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Statement ID is required")
			return
		}

		switch sub {
		case "":
			statementsHandler.GetStatement(w, r, statementID)
		case "transactions":
			statementsHandler.ListStatementTransactions(w, r, statementID)
		case "health":
			statementsHandler.GetStatementHealth(w, r, statementID)
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		rest := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		transactionID, sub, _ := strings.Cut(rest, "/")
		if transactionID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		if sub != "classification" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}

		transactionsHandler.ReclassifyTransaction(w, r, transactionID)
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	// Close job queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

// newProcessStatementHandler builds the queue handler that runs the
// processing pipeline for each statement job. The holder key comes from
// server configuration, never from the job payload.
func newProcessStatementHandler(deps pipeline.Deps, holderKey string, log zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		processJob, ok := job.(*jobs.ProcessStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", processJob.JobID).
			Str("statement_id", processJob.StatementID).
			Str("gcs_uri", processJob.GCSURI).
			Msg("Processing statement job")

		statementMonth, err := civil.ParseDate(processJob.StatementMonth)
		if err != nil {
			return fmt.Errorf("invalid statement month %q: %w", processJob.StatementMonth, err)
		}

		key := processJob.HolderKey
		if key == "" {
			key = holderKey
		}

		params := pipeline.Params{
			StatementID:    processJob.StatementID,
			UserID:         processJob.UserID,
			GCSURI:         processJob.GCSURI,
			HolderKey:      key,
			StatementMonth: statementMonth,
		}

		if err := pipeline.ProcessStatement(ctx, deps, params); err != nil {
			log.Error().
				Err(err).
				Str("job_id", processJob.JobID).
				Str("statement_id", processJob.StatementID).
				Msg("Pipeline execution failed")
			return err
		}

		log.Info().
			Str("job_id", processJob.JobID).
			Str("statement_id", processJob.StatementID).
			Msg("Pipeline execution completed successfully")

		return nil
	}
}
