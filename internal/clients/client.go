// Package clients talks to the transactions, users and analytics services
// over HTTP.
//
// Transport failures, timeouts and 5xx answers are reported as errors that
// match ports.ErrUnavailable. Other rejections are *APIError values carrying
// the status and the server's message.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"finsight/internal/log"
	"finsight/internal/ports"
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 8 << 20

// APIError is a request the service answered but refused.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Unwrap maps server-side failures to ports.ErrUnavailable so callers can
// treat them like transport errors.
func (e *APIError) Unwrap() error {
	if e.Status >= http.StatusInternalServerError {
		return ports.ErrUnavailable
	}
	return nil
}

// Options configures a client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored then.
	HTTPClient *http.Client
	Logger     *log.Logger
	Retry      RetryConfig
}

type base struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *log.Logger
	retry   RetryConfig
}

func newBase(opts Options) base {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	} else if hc.Timeout > 0 {
		timeout = hc.Timeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return base{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentClients),
		retry:   opts.Retry,
	}
}

// do sends a JSON request and returns the status and raw body.
func (b base) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := b.http.Do(req)
	if err != nil {
		b.logger.WarnContext(ctx, "Request failed", log.FieldMethod, method, log.FieldEndpoint, path, log.FieldError, err)
		return 0, nil, fmt.Errorf("%s %s: %w: %w", method, path, ports.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%s %s: read body: %w: %w", method, path, ports.ErrUnavailable, err)
	}
	b.logger.DebugContext(ctx, "Request completed",
		log.FieldMethod, method, log.FieldEndpoint, path,
		log.FieldStatusCode, resp.StatusCode, log.FieldDuration, time.Since(start).Milliseconds())
	return resp.StatusCode, data, nil
}

// sharedBudget bounds a shared call: every attempt may take the full
// timeout, plus the longest backoff between attempts.
func (b base) sharedBudget() time.Duration {
	n := time.Duration(max(b.retry.MaxRetries, 0))
	return b.timeout*(n+1) + b.retry.MaxDelay*n
}

// shared runs fn once for all concurrent callers of key. The call is
// detached from the cancellation of whichever caller started it and bounded
// by limit instead; each caller stops waiting when its own ctx is done.
func shared[T any](ctx context.Context, g *singleflight.Group, key string, limit time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ch := g.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), limit)
		defer cancel()
		return fn(sctx)
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// decodeEnvelope unpacks a {success, data} or {success:false, error} body
// into out. out may be nil when only success matters.
func decodeEnvelope(status int, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if status >= http.StatusBadRequest {
			return &APIError{Status: status, Message: strings.TrimSpace(string(body))}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if status >= http.StatusBadRequest || (env.Success != nil && !*env.Success) {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if status < http.StatusBadRequest {
			status = http.StatusUnprocessableEntity
		}
		return &APIError{Status: status, Message: msg}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// retryable reports whether err is worth another attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ports.ErrUnavailable)
}
