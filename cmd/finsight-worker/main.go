package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finsight/internal/amqp"
	"finsight/internal/cli"
	"finsight/internal/clients"
	"finsight/internal/log"
	"finsight/internal/services"
	"finsight/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting finsight-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.SQLiteDBPath == "" {
		logger.Error("SQLITE_DB_PATH is required to run the outbox worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	remote := clients.NewTransactions(clients.Options{
		BaseURL: cfg.TransactionsAPIURL,
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
		Retry:   clients.DefaultRetryConfig,
	})

	replayConfig := services.DefaultReplayConfig()
	replayConfig.PollInterval = cfg.SyncInterval
	replayConfig.BatchSize = cfg.SyncBatchSize
	replayConfig.MaxRetries = cfg.SyncMaxRetries
	processor := services.NewReplayProcessor(repo, remote, replayConfig, logger)
	outboxWorker := worker.NewOutboxWorker(processor, cfg.SyncBatchSize, logger)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.Info("AMQP disabled, relying on periodic replay", "interval", cfg.SyncInterval.String())
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Replay processor stop", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close", log.FieldError, err)
			}
		}
	})

	logger.Info("Performing startup replay check...")
	if err := outboxWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup replay check", log.FieldError, err)
	}

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start replay processor", log.FieldError, err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeOutbox(ctx, outboxWorker.HandleMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
