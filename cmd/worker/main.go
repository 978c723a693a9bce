package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"

	"github.com/astrafin/statement-engine/internal/extractor"
	"github.com/astrafin/statement-engine/internal/gcsuploader"
	infraBQ "github.com/astrafin/statement-engine/internal/infra/bigquery"
	"github.com/astrafin/statement-engine/internal/jobs"
	"github.com/astrafin/statement-engine/internal/jobs/inmemory"
	"github.com/astrafin/statement-engine/internal/logger"
	"github.com/astrafin/statement-engine/internal/pipeline"
)

func main() {
	holderKey := flag.String("holder-key", os.Getenv("HOLDER_KEY"), "account holder name key for classification (or set HOLDER_KEY env)")
	flag.Parse()

	// Initialize logger
	log := logger.New()

	store, err := infraBQ.NewStore(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	deps := pipeline.Deps{
		Storage:      gcsuploader.NewGCSStorageService(),
		Extractor:    extractor.NewPDFExtractor(),
		Statements:   store,
		Transactions: store,
		Accounts:     store,
	}

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Msg("Starting worker service")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	// Create job handler that runs the processing pipeline
	handler := func(ctx context.Context, job jobs.Job) error {
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
			key = *holderKey
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

	// Start consuming jobs
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	// Close the queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
