package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finsight/internal/advisor"
	"finsight/internal/backend"
	"finsight/internal/cache"
	"finsight/internal/cli"
	"finsight/internal/config"
	apphttp "finsight/internal/http"
	"finsight/internal/log"
	"finsight/internal/middleware/ratelimit"
	"finsight/internal/session"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		logger.Error("Failed to load projection policy", log.FieldError, err, "path", cfg.PolicyFile)
		os.Exit(1)
	}
	budget, err := cfg.Budget()
	if err != nil {
		logger.Error("Invalid monthly budget", log.FieldError, err)
		os.Exit(1)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	b := result.Backend

	adv := advisor.New(advisor.NewCurrency(cfg.CurrencySymbol))
	sessions := session.NewManager(session.Options{
		Reader:        b.Reader,
		Writer:        b.Writer,
		Analytics:     b.Analytics,
		Policy:        policy,
		Advisor:       adv,
		MonthlyBudget: budget,
		Logger:        logger,
		MaxSessions:   cfg.MaxSessions,
		SessionTTL:    cfg.SessionTTL,
	})

	srv := apphttp.NewServer(apphttp.Options{
		Addr:        ":" + cfg.Port,
		Sessions:    sessions,
		Users:       b.Users,
		Exporter:    b.Exporter,
		Advisor:     adv,
		Health:      b.Health,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   ratelimit.DefaultConfig(),
		WeekStart:   time.Monday,
		Logger:      logger,
	})

	janitor := cache.NewJanitor(logger)
	for _, c := range b.Caches {
		janitor.Register(c)
	}
	for _, c := range srv.Caches() {
		janitor.Register(c)
	}
	janitor.Start(sweepInterval)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		janitor.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting finsight server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"outbox_enabled", b.OutboxEnabled,
		"min_balance_haircut", policy.MinBalanceHaircut)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
