package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"khata/internal/amqp"
	"khata/internal/cli"
	"khata/internal/export"
	expmem "khata/internal/export/memory"
	expsheets "khata/internal/export/sheets"
	"khata/internal/worker"
)

func main() {
	logger := cli.Bootstrap()
	logger.Info("Starting khata-worker")

	cfg := cli.MustConfig(logger)

	sqliteRepo := cli.MustSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pick the ledger backend records get appended to.
	var ledger export.RecordWriter
	switch cfg.ExportBackend {
	case "sheets":
		sheetsClient, err := expsheets.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		ledger = sheetsClient
		logger.Info("Google Sheets ledger initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	default:
		ledger = expmem.New()
		logger.Info("In-memory ledger initialized, exported rows are not durable")
	}

	exportWorker := worker.NewExportWorker(sqliteRepo, ledger, cfg.ExportBatchSize)

	// On startup, drain any records that were queued while the worker was down.
	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup export check", "error", err)
		// Don't exit - the periodic sweep retries
	}

	g, gctx := errgroup.WithContext(ctx)

	// Consume export messages when a broker is configured. Without one the
	// periodic sweep alone moves records to the ledger.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			if err := amqpClient.ConsumeRecordExport(gctx, exportWorker.HandleExportMessage); err != nil && err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
				return err
			}
			return nil
		})
	} else {
		logger.Info("AMQP disabled - relying on periodic export sweep only")
	}

	// Periodic sweep for records missed by the message path.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := exportWorker.ProcessPending(gctx); err != nil {
					logger.Error("Periodic export sweep failed", "error", err)
				}
			}
		}
	})

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-gctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	logger.Info("Shutting down worker...")
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			logger.Error("Worker stopped with error", "error", err)
		} else {
			logger.Info("Worker shutdown complete")
		}
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
