package backend

import (
	"context"
	"errors"
	"fmt"

	"finsight/internal/amqp"
	"finsight/internal/clients"
	"finsight/internal/log"
	"finsight/internal/ports/memory"
	"finsight/internal/services"
	"finsight/internal/sheets"
	gsheet "finsight/internal/sheets/google"
	sheetsmemory "finsight/internal/sheets/memory"
	"finsight/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	exporter, err := f.createExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	switch config.Type {
	case RemoteBackend:
		return f.createRemoteBackend(config, exporter)
	case MemoryBackend:
		return f.createMemoryBackend(config, exporter), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createRemoteBackend(config Config, exporter sheets.Exporter) (*BackendResult, error) {
	opts := func(url string) clients.Options {
		return clients.Options{
			BaseURL: url,
			Timeout: config.HTTPTimeout,
			Logger:  f.logger,
			Retry:   clients.DefaultRetryConfig,
		}
	}
	txs := clients.NewTransactions(opts(config.TransactionsURL))
	analytics := clients.NewAnalytics(opts(config.AnalyticsURL), config.CacheTTL)

	b := &Backend{
		Reader:    txs,
		Writer:    txs,
		Users:     clients.NewUsers(opts(config.UsersURL)),
		Analytics: analytics,
		Exporter:  exporter,
		Health:    analytics.Health,
	}
	if lru := analytics.Cache(); lru != nil {
		b.Caches = append(b.Caches, lru)
	}

	var closers []func() error
	if config.SQLiteDBPath != "" {
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		closers = append(closers, repo.Close)

		// the publisher stays a nil interface when AMQP is off
		var publisher services.Publisher
		if config.AMQPURL != "" {
			client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
			if err != nil {
				f.logger.Warn("Failed to initialize AMQP client, outbox relies on periodic replay", log.FieldError, err)
			} else {
				publisher = client
				closers = append(closers, client.Close)
				f.logger.Info("Initialized AMQP client",
					"exchange", config.AMQPExchange,
					"queue", config.AMQPQueue)
			}
		}

		b.Writer = services.NewTransactionService(txs, repo, publisher, f.logger)
		b.OutboxEnabled = true
	}

	f.logger.Info("Initialized remote backend",
		"transactions_url", config.TransactionsURL,
		"analytics_url", config.AnalyticsURL,
		"outbox_enabled", b.OutboxEnabled)

	return &BackendResult{Backend: b, Cleanup: closeAll(closers)}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config, exporter sheets.Exporter) *BackendResult {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.New(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Backend: &Backend{
			Reader:    store,
			Writer:    store,
			Users:     memory.NewUsers(),
			Analytics: memory.Analytics{},
			Exporter:  exporter,
		},
	}
}

func (f *DefaultFactory) createExporter(ctx context.Context, config Config) (sheets.Exporter, error) {
	if config.GoogleSpreadsheetID == "" {
		return sheetsmemory.New(), nil
	}
	cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets exporter", "spreadsheet_id", config.GoogleSpreadsheetID)
	return cli, nil
}

func closeAll(closers []func() error) CleanupFunc {
	if len(closers) == 0 {
		return nil
	}
	return func() error {
		var errs []error
		// reverse order: publisher before the database
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
