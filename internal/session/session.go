// Package session holds the dashboard state of one user: the loaded
// transactions, the last analytics panels and the derived figures.
//
// Loads follow last-request-wins: each Load and RefreshInsights call takes a
// generation number, and a result that resolves after a newer call started
// is dropped and reported as ErrSuperseded.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"finsight/internal/advisor"
	"finsight/internal/aggregation"
	"finsight/internal/core"
	"finsight/internal/log"
	"finsight/internal/ports"
	"finsight/internal/projection"
)

var (
	ErrSuperseded   = errors.New("superseded by a newer request")
	ErrNoActiveUser = errors.New("no active user")
)

// LoadState tells a failed load apart from a user with no history.
type LoadState string

const (
	StateIdle   LoadState = "idle"
	StateReady  LoadState = "ready"
	StateEmpty  LoadState = "empty"
	StateFailed LoadState = "failed"
)

// User-facing messages.
const (
	msgLoadFailed = "Could not load your transactions. Check your connection and try again."
	msgEmpty      = "No transactions yet. Set your initial balance to get started."
)

// LoadResult is the outcome of a Load.
type LoadResult struct {
	Username     string
	Transactions []core.Transaction
	State        LoadState
	Err          error
	Message      string
}

// NeedsOnboarding reports whether the user has no history at all and should
// be asked for an initial balance.
func (r LoadResult) NeedsOnboarding() bool { return r.State == StateEmpty }

// Dashboard is a consistent view of the session at one instant.
type Dashboard struct {
	Username        string
	State           LoadState
	Message         string
	NeedsOnboarding bool
	Transactions    []core.Transaction
	Summary         core.Summary
	Categories      []core.CategoryAggregate
	Budget          core.BudgetStatus
	Forecast        core.Forecast
	Panels          core.InsightPanels
}

// Options configures a Session.
type Options struct {
	Reader    ports.TransactionReader
	Writer    ports.TransactionWriter
	Analytics ports.AnalyticsSource
	Policy    projection.Policy
	Advisor   *advisor.Advisor
	// MonthlyBudget overrides the income-based budget when non-zero.
	MonthlyBudget core.Money
	Logger        *log.Logger
	Now           func() time.Time
	NewID         func() string

	// MaxSessions and SessionTTL bound the sessions a Manager keeps: the
	// least recently used one is dropped past MaxSessions, and a session
	// idle for SessionTTL expires.
	MaxSessions int
	SessionTTL  time.Duration
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = log.Discard()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.NewString() }
	}
	if o.Advisor == nil {
		o.Advisor = advisor.New(advisor.NewCurrency(""))
	}
	if len(o.Policy.Weights) == 0 {
		o.Policy = projection.DefaultPolicy()
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = 1000
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 30 * time.Minute
	}
}

// Session is safe for concurrent use.
type Session struct {
	opts   Options
	logger *log.Logger

	loadGen    atomic.Uint64
	insightGen atomic.Uint64

	mu       sync.RWMutex
	username string
	txs      []core.Transaction
	state    LoadState
	message  string
	err      error
	panels   core.InsightPanels
	engine   *projection.Engine
}

func New(opts Options) *Session {
	opts.defaults()
	s := &Session{
		opts:   opts,
		logger: opts.Logger.WithComponent(log.ComponentSession),
		state:  StateIdle,
		engine: projection.NewEngine(opts.Policy, ""),
	}
	s.panels = unloadedPanels()
	return s
}

// Load fetches the transactions of username and makes them the active list,
// newest first. On failure the previous list of the same user is kept and
// the result carries the error and a displayable message.
func (s *Session) Load(ctx context.Context, username string) LoadResult {
	username = strings.TrimSpace(username)
	gen := s.loadGen.Add(1)
	if username == "" {
		return LoadResult{State: StateFailed, Err: ErrNoActiveUser, Message: "Select a user first."}
	}

	txs, err := s.opts.Reader.ListTransactions(ctx, username)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadGen.Load() != gen {
		s.logger.DebugContext(ctx, "Dropping stale load", log.FieldUsername, username, log.FieldGeneration, gen)
		return LoadResult{Username: username, State: StateFailed, Err: ErrSuperseded, Message: ErrSuperseded.Error()}
	}

	if username != s.username {
		s.username = username
		s.txs = nil
		s.panels = unloadedPanels()
		s.engine = projection.NewEngine(s.opts.Policy, username)
	}

	if err != nil {
		s.state, s.err, s.message = StateFailed, err, msgLoadFailed
		s.logger.WarnContext(ctx, "Transaction load failed",
			log.FieldUsername, username, log.FieldOperation, log.OpLoad, log.FieldError, err)
		return LoadResult{
			Username:     username,
			Transactions: cloneTxs(s.txs),
			State:        StateFailed,
			Err:          fmt.Errorf("load transactions for %s: %w", username, err),
			Message:      msgLoadFailed,
		}
	}

	s.txs = s.prepare(txs)
	s.err = nil
	if len(s.txs) == 0 {
		s.state, s.message = StateEmpty, msgEmpty
	} else {
		s.state, s.message = StateReady, ""
	}
	s.logger.InfoContext(ctx, "Transactions loaded",
		log.FieldUsername, username, log.FieldCount, len(s.txs), log.FieldOperation, log.OpLoad)
	return LoadResult{Username: username, Transactions: cloneTxs(s.txs), State: s.state, Message: s.message}
}

// prepare assigns IDs and orders the list newest first. The backend returns
// records oldest first, so reversing before the stable sort keeps later
// entries of the same day ahead of earlier ones.
func (s *Session) prepare(in []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(in))
	for i, tx := range in {
		if tx.ID == "" {
			tx.ID = s.opts.NewID()
		}
		out[len(in)-1-i] = tx
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}

// Add inserts tx at the top of the list and writes it to the backend. The
// local list is updated even when the write fails; the write error is
// returned so the caller can tell the user.
func (s *Session) Add(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.Merchant = strings.TrimSpace(tx.Merchant)
	tx.Category = strings.TrimSpace(tx.Category)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	username := s.username
	if username == "" {
		s.mu.Unlock()
		return core.Transaction{}, ErrNoActiveUser
	}
	tx.ID = s.opts.NewID()
	if tx.Date.IsZero() {
		now := s.opts.Now()
		tx.Date = core.DateOf(now)
		if tx.Time == "" {
			tx.Time = now.Format("15:04:05")
		}
	}
	s.txs = append([]core.Transaction{tx}, s.txs...)
	if s.state != StateFailed {
		s.state, s.message = StateReady, ""
	}
	s.mu.Unlock()

	sl := log.NewStructuredLogger(s.logger)
	if s.opts.Writer == nil {
		return tx, nil
	}
	if err := s.opts.Writer.AppendTransaction(ctx, username, tx); err != nil {
		if errors.Is(err, ports.ErrDeferred) {
			sl.LogTransactionDeferred(ctx, username, tx.Merchant, tx.Category, tx.Amount.Cents, err)
		} else {
			sl.LogError(ctx, "Transaction write failed", err, log.OpAppend,
				log.NewFields().WithTransaction(username, tx.Merchant, tx.Category, tx.Amount.Cents))
		}
		return tx, fmt.Errorf("save transaction: %w", err)
	}
	sl.LogTransactionAdded(ctx, username, tx.Merchant, tx.Category, tx.Amount.Cents)
	return tx, nil
}

// RefreshInsights fetches the analytics panels for the active user. Panels
// fail independently; the returned error only reports that there is no user
// or that a newer refresh replaced this one.
func (s *Session) RefreshInsights(ctx context.Context) error {
	if s.opts.Analytics == nil {
		return nil
	}
	gen := s.insightGen.Add(1)
	s.mu.RLock()
	username := s.username
	s.mu.RUnlock()
	if username == "" {
		return ErrNoActiveUser
	}

	panels := s.opts.Analytics.FetchPanels(ctx, username)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insightGen.Load() != gen || s.username != username {
		return ErrSuperseded
	}
	s.panels = panels
	for name, err := range map[string]error{
		"analysis": panels.Analysis.Err,
		"insights": panels.Insights.Err,
		"forecast": panels.Forecast.Err,
		"risk":     panels.Risk.Err,
	} {
		if err != nil {
			s.logger.WarnContext(ctx, "Analytics panel unavailable",
				log.FieldUsername, username, log.FieldPanel, name, log.FieldError, err)
		}
	}
	return nil
}

// Reanalyze asks the analytics service to recompute the active user's
// results, then refreshes the panels.
func (s *Session) Reanalyze(ctx context.Context) error {
	if s.opts.Analytics == nil {
		return nil
	}
	username := s.Username()
	if username == "" {
		return ErrNoActiveUser
	}
	if err := s.opts.Analytics.Refresh(ctx, username); err != nil {
		return fmt.Errorf("refresh analytics for %s: %w", username, err)
	}
	return s.RefreshInsights(ctx)
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Snapshot derives all dashboard figures from the current state.
func (s *Session) Snapshot(today time.Time) Dashboard {
	s.mu.RLock()
	d := Dashboard{
		Username:     s.username,
		State:        s.state,
		Message:      s.message,
		Transactions: cloneTxs(s.txs),
		Panels:       s.panels,
	}
	engine := s.engine
	s.mu.RUnlock()

	d.NeedsOnboarding = d.State == StateEmpty
	d.Summary, d.Categories = aggregation.Summarize(d.Transactions)
	d.Budget = aggregation.Budget(d.Summary, s.opts.MonthlyBudget)

	var remote *core.RemoteForecast
	if d.Panels.Forecast.OK() {
		remote = d.Panels.Forecast.Data
	}
	d.Forecast = engine.Project(d.Summary, remote, today)
	return d
}

// Ask answers a free-text question from the current figures.
func (s *Session) Ask(query string, today time.Time) string {
	d := s.Snapshot(today)
	return s.opts.Advisor.Respond(query, advisor.Input{
		Summary:    d.Summary,
		Categories: d.Categories,
		Forecast:   d.Forecast,
		Budget:     d.Budget,
	})
}

func unloadedPanels() core.InsightPanels {
	err := errors.New("not loaded")
	var p core.InsightPanels
	p.Analysis.Err = err
	p.Insights.Err = err
	p.Forecast.Err = err
	p.Risk.Err = err
	return p
}

func cloneTxs(in []core.Transaction) []core.Transaction {
	if in == nil {
		return nil
	}
	return append([]core.Transaction(nil), in...)
}
