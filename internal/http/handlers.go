package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finsight/internal/core"
	"finsight/internal/log"
	"finsight/internal/ports"
	"finsight/internal/services"
	"finsight/internal/session"
	"finsight/internal/sheets"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.opts.Now().UTC().Format(time.RFC3339),
		"uptime":    s.opts.Now().Sub(s.metrics.started).Truncate(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"sessions":     s.opts.Sessions.Len(),
		"rate_limiter": map[string]any{"active_clients": s.limiter.ActiveClients()},
	}
	if s.opts.Health == nil {
		checks["backend"] = "ok"
	} else if err := s.opts.Health(ctx); err != nil {
		checks["backend"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
	} else {
		checks["backend"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.opts.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	sm := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests)
	metric("http_requests_failed_total", "counter", "Requests answered with a 5xx status", tm.FailedRequests)
	metric("http_request_duration_avg_ms", "gauge", "Average request duration", tm.AverageResponseTime.Milliseconds())
	metric("transactions_added_total", "counter", "Transactions added through the API", s.metrics.transactions.Load())
	metric("transactions_deferred_total", "counter", "Transactions queued for later delivery", s.metrics.deferred.Load())
	metric("advisor_questions_total", "counter", "Questions answered by the advisor", s.metrics.questions.Load())
	metric("exports_total", "counter", "Dashboard exports written", s.metrics.exports.Load())
	metric("active_sessions", "gauge", "Sessions held in memory", s.opts.Sessions.Len())
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rm.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Clients tracked by the rate limiter", rm.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests blocked as suspicious", sm.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Seconds since start", int64(s.opts.Now().Sub(s.metrics.started).Seconds()))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.opts.Users == nil {
		writeError(w, http.StatusNotImplemented, "user directory not configured")
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.opts.Users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userJSON{Username: user.Username, Email: user.Email})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if s.opts.Users == nil {
		writeError(w, http.StatusNotImplemented, "user directory not configured")
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := s.opts.Users.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userJSON{Username: user.Username, Email: user.Email})
}

func (s *Server) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	if s.opts.Users == nil {
		writeError(w, http.StatusNotImplemented, "user directory not configured")
		return
	}
	email := strings.TrimSpace(r.PathValue("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	exists, err := s.opts.Users.EmailExists(r.Context(), email)
	if err != nil {
		s.writeUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (s *Server) writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ports.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, ports.ErrInvalidCredentials.Error())
	case errors.Is(err, ports.ErrUserExists):
		writeError(w, http.StatusConflict, ports.ErrUserExists.Error())
	case errors.Is(err, ports.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "user service unavailable, try again later")
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "User directory call failed", log.FieldError, err)
		writeError(w, http.StatusBadGateway, "user service error")
	}
}

// sessionFor returns the session of the {username} path value, loading its
// transactions the first time it is seen.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	username := pathUser(r)
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return nil, false
	}
	sess, created := s.opts.Sessions.Get(username)
	if created {
		sess.Load(r.Context(), username)
	}
	return sess, true
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	username := pathUser(r)
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	sess, _ := s.opts.Sessions.Get(username)

	res := sess.Load(r.Context(), username)
	if errors.Is(res.Err, session.ErrSuperseded) {
		writeError(w, http.StatusConflict, res.Message)
		return
	}
	if res.Err == nil {
		// panels fail on their own; a superseded refresh is fine here
		_ = sess.RefreshInsights(r.Context())
	}

	code := http.StatusOK
	if res.State == session.StateFailed {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, toDashboardJSON(sess.Snapshot(s.opts.Now())))
}

func (s *Server) handleDropSession(w http.ResponseWriter, r *http.Request) {
	username := pathUser(r)
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	s.opts.Sessions.Drop(username)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toDashboardJSON(sess.Snapshot(s.opts.Now())))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	d := sess.Snapshot(s.opts.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"username":     d.Username,
		"state":        d.State,
		"transactions": toTransactionsJSON(d.Transactions),
	})
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := sess.Add(r.Context(), tx)
	switch {
	case err == nil:
		s.metrics.transactions.Add(1)
		writeJSON(w, http.StatusCreated, map[string]any{"status": "saved", "transaction": toTransactionJSON(added)})
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNoActiveUser):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrDeferred):
		s.metrics.transactions.Add(1)
		s.metrics.deferred.Add(1)
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "transaction": toTransactionJSON(added)})
	default:
		// the session keeps the entry even though the backend refused it
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"status":      "unsaved",
			"error":       "could not save the transaction, it is shown locally only",
			"transaction": toTransactionJSON(added),
		})
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{core.ErrInvalidAmount, core.ErrEmptyMerchant, core.ErrEmptyCategory, core.ErrMerchantLength} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	if err := sess.RefreshInsights(r.Context()); err != nil {
		s.writeSessionError(w, err)
		return
	}
	d := sess.Snapshot(s.opts.Now())
	writeJSON(w, http.StatusOK, toPanelsJSON(d.Panels))
}

func (s *Server) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	if err := sess.Reanalyze(r.Context()); err != nil {
		s.writeSessionError(w, err)
		return
	}
	d := sess.Snapshot(s.opts.Now())
	writeJSON(w, http.StatusOK, toPanelsJSON(d.Panels))
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNoActiveUser):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ports.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "analytics service unavailable")
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.metrics.questions.Add(1)
	writeJSON(w, http.StatusOK, map[string]string{
		"intent":   string(s.opts.Advisor.Classify(req.Query)),
		"response": sess.Ask(req.Query, s.opts.Now()),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.opts.Exporter == nil {
		writeError(w, http.StatusNotImplemented, "export not configured")
		return
	}
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	now := s.opts.Now()
	d := sess.Snapshot(now)
	ref, err := s.opts.Exporter.Export(r.Context(), sheets.Report{
		Username:    d.Username,
		GeneratedAt: now,
		Summary:     d.Summary,
		Categories:  d.Categories,
		Forecast:    d.Forecast,
	})
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed",
			log.FieldUsername, d.Username, log.FieldOperation, log.OpExport, log.FieldError, err)
		writeError(w, http.StatusBadGateway, "export failed")
		return
	}
	s.metrics.exports.Add(1)
	writeJSON(w, http.StatusOK, map[string]string{"status": "exported", "range": ref})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := parseMonthParams(q, s.opts.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	weekStart, err := parseWeekStart(q.Get("week_start"), s.opts.WeekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := fmt.Sprintf("%04d-%02d-%d", p.Year, p.Month, weekStart)
	cal, ok := s.calendar.Get(key)
	if !ok {
		cal = newCalendarResponse(p.Year, p.Month, weekStart)
		s.calendar.Set(key, cal)
	}
	writeJSON(w, http.StatusOK, cal)
}
