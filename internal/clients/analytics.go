package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"finsight/internal/cache"
	"finsight/internal/core"
)

// Analytics endpoints.
const (
	EndpointAnalyze   = "analyze"
	EndpointInsights  = "insights"
	EndpointForecasts = "forecasts"
	EndpointRisk      = "risk-analysis"
)

// Analytics is the client of the ML analytics service. Successful panel
// payloads are cached per user until Refresh or the TTL.
type Analytics struct {
	base
	cache cache.Cache[json.RawMessage]
	group singleflight.Group
}

// NewAnalytics returns a client caching up to 256 payloads for ttl. A zero
// ttl disables caching.
func NewAnalytics(opts Options, ttl time.Duration) *Analytics {
	a := &Analytics{base: newBase(opts)}
	if ttl > 0 {
		a.cache = cache.NewLRUCache[json.RawMessage](256, ttl)
	}
	return a
}

// Cache exposes the payload cache so it can be swept periodically. Nil when
// caching is disabled.
func (c *Analytics) Cache() *cache.LRUCache[json.RawMessage] {
	if lru, ok := c.cache.(*cache.LRUCache[json.RawMessage]); ok {
		return lru
	}
	return nil
}

// FetchPanels loads the four panels in parallel. Each panel succeeds or
// fails on its own; one failure does not cancel the others.
func (c *Analytics) FetchPanels(ctx context.Context, username string) core.InsightPanels {
	var p core.InsightPanels
	var g errgroup.Group
	g.Go(func() error {
		p.Analysis.Data, p.Analysis.Err = fetchPanel[json.RawMessage](ctx, c, EndpointAnalyze, username)
		return nil
	})
	g.Go(func() error {
		p.Insights.Data, p.Insights.Err = fetchPanel[core.BehavioralInsights](ctx, c, EndpointInsights, username)
		return nil
	})
	g.Go(func() error {
		p.Forecast.Data, p.Forecast.Err = fetchPanel[*core.RemoteForecast](ctx, c, EndpointForecasts, username)
		return nil
	})
	g.Go(func() error {
		p.Risk.Data, p.Risk.Err = fetchPanel[core.RiskAnalysis](ctx, c, EndpointRisk, username)
		return nil
	})
	_ = g.Wait()
	return p
}

func fetchPanel[T any](ctx context.Context, c *Analytics, endpoint, username string) (T, error) {
	var out T
	raw, err := c.payload(ctx, endpoint, username)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("%s: decode: %w", endpoint, err)
	}
	return out, nil
}

func cacheKey(endpoint, username string) string {
	return userPrefix(username) + endpoint
}

func userPrefix(username string) string {
	return url.PathEscape(username) + "/"
}

func (c *Analytics) payload(ctx context.Context, endpoint, username string) (json.RawMessage, error) {
	key := cacheKey(endpoint, username)
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			return raw, nil
		}
	}
	raw, err := shared(ctx, &c.group, key, c.sharedBudget(), func(ctx context.Context) (json.RawMessage, error) {
		status, body, err := c.do(ctx, http.MethodGet, "/"+endpoint+"/"+url.PathEscape(username), nil)
		if err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := decodeEnvelope(status, body, &raw); err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			raw = json.RawMessage("{}")
		}
		if c.cache != nil {
			c.cache.Set(key, raw)
		}
		return raw, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return raw, nil
}

// Refresh drops the cached panels of username and asks the service to
// recompute them.
func (c *Analytics) Refresh(ctx context.Context, username string) error {
	if c.cache != nil {
		c.cache.DeletePrefix(userPrefix(username))
	}
	status, body, err := c.do(ctx, http.MethodPost, "/refresh/"+url.PathEscape(username), nil)
	if err != nil {
		return err
	}
	return decodeEnvelope(status, body, nil)
}

// Health reports whether the service answers its health check.
func (c *Analytics) Health(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Status: status, Message: "unhealthy"}
	}
	return nil
}
