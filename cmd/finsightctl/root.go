package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"finsight/internal/advisor"
	"finsight/internal/backend"
	"finsight/internal/config"
	"finsight/internal/core"
	"finsight/internal/log"
	"finsight/internal/session"
)

// Flag names double as environment variables: data-backend reads
// DATA_BACKEND.
const (
	flagBackend         = "data-backend"
	flagDataDir         = "data-dir"
	flagTransactionsURL = "transactions-api-url"
	flagUsersURL        = "users-api-url"
	flagAnalyticsURL    = "analytics-api-url"
	flagTimeout         = "http-timeout"
	flagPolicy          = "policy-file"
	flagCurrency        = "currency-symbol"
	flagBudget          = "monthly-budget"
	flagToday           = "today"
	flagLogLevel        = "log-level"
)

type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "finsightctl",
		Short: "Inspect a user's finances from the command line",
		Long: `finsightctl loads a user's transactions from the transactions service or
from user_<name>.csv files and prints the dashboard figures: totals,
category breakdown, month-end forecast and advisor answers.`,
		SilenceUsage: true,
	}

	f := root.PersistentFlags()
	f.String(flagBackend, config.BackendMemory, "data backend: remote or memory")
	f.String(flagDataDir, "./data", "directory with user_<name>.csv files (memory backend)")
	f.String(flagTransactionsURL, "http://localhost:8000", "transactions API base URL")
	f.String(flagUsersURL, "http://localhost:8001", "users API base URL")
	f.String(flagAnalyticsURL, "http://localhost:5000", "analytics API base URL")
	f.Duration(flagTimeout, 10*time.Second, "timeout for collaborator calls")
	f.String(flagPolicy, "", "TOML file overriding forecast policy constants")
	f.String(flagCurrency, advisor.DefaultCurrencySymbol, "currency symbol for amounts")
	f.String(flagBudget, "", "monthly budget; defaults to total income")
	f.String(flagToday, "", "date used as today, YYYY-MM-DD")
	f.String(flagLogLevel, "error", "log level: debug, info, warn or error")

	_ = a.v.BindPFlags(f)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.summaryCmd(),
		a.forecastCmd(),
		a.askCmd(),
		a.calendarCmd(),
	)
	return root
}

func (a *app) logger() *log.Logger {
	return log.New(log.Config{Level: log.ParseLevel(a.v.GetString(flagLogLevel)), Component: log.ComponentApp})
}

func (a *app) currency() advisor.Currency {
	return advisor.NewCurrency(a.v.GetString(flagCurrency))
}

func (a *app) today() (time.Time, error) {
	s := a.v.GetString(flagToday)
	if s == "" {
		return time.Now(), nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: %w", flagToday, s, err)
	}
	return d.Time, nil
}

// openSession builds the backend and loads username into a fresh session.
// The returned cleanup releases the backend.
func (a *app) openSession(ctx context.Context, username string) (*session.Session, func(), error) {
	logger := a.logger()

	policy, err := config.LoadPolicy(a.v.GetString(flagPolicy))
	if err != nil {
		return nil, nil, err
	}
	cfg := &config.Config{MonthlyBudget: a.v.GetString(flagBudget)}
	budget, err := cfg.Budget()
	if err != nil {
		return nil, nil, err
	}

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backend.Config{
		Type:            backend.BackendType(a.v.GetString(flagBackend)),
		TransactionsURL: a.v.GetString(flagTransactionsURL),
		UsersURL:        a.v.GetString(flagUsersURL),
		AnalyticsURL:    a.v.GetString(flagAnalyticsURL),
		HTTPTimeout:     a.v.GetDuration(flagTimeout),
		DataDirectory:   a.v.GetString(flagDataDir),
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
	}

	b := result.Backend
	s := session.New(session.Options{
		Reader:        b.Reader,
		Writer:        b.Writer,
		Analytics:     b.Analytics,
		Policy:        policy,
		Advisor:       advisor.New(a.currency()),
		MonthlyBudget: budget,
		Logger:        logger,
	})

	res := s.Load(ctx, username)
	if res.Err != nil {
		cleanup()
		return nil, nil, res.Err
	}
	_ = s.RefreshInsights(ctx)
	return s, cleanup, nil
}
