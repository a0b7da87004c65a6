// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package websearch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jllopis/pi-extensions/pkg/errors"
	"github.com/jllopis/pi-extensions/pkg/resilience"
	"github.com/jllopis/pi-extensions/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Client calls the Brave web search endpoint.
type Client struct {
	mu      sync.RWMutex
	apiKey  string
	baseURL string

	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	logger  *slog.Logger
	tracer  trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// WithRetry overrides the retry policy derived from Config.MaxAttempts.
func WithRetry(rc resilience.RetryConfig) ClientOption {
	return func(cl *Client) {
		cl.retry = rc
	}
}

// NewClient creates a client from cfg.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		retry:   resilience.DefaultRetryConfig().WithMaxAttempts(cfg.MaxAttempts),
		logger:  slog.Default(),
		tracer:  otel.Tracer("pi-extensions/websearch"),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAPIKey replaces the credential, e.g. after a configuration reload.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = key
}

// HasAPIKey reports whether a credential is configured.
func (c *Client) HasAPIKey() bool {
	return c.key() != ""
}

func (c *Client) key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// Search returns up to count results for query. count is clamped to
// [MinCount, MaxCount]. Without a credential it fails with
// CodeMissingAPIKey and makes no request.
func (c *Client) Search(ctx context.Context, query string, count int) ([]Result, error) {
	apiKey := c.key()
	if apiKey == "" {
		return nil, errors.New(errors.CodeMissingAPIKey, "BRAVE_API_KEY not set", nil)
	}
	count = clampCount(count)

	ctx, span := c.tracer.Start(ctx, "websearch.Search", trace.WithAttributes(
		telemetry.SearchAttributes(query, count)...,
	))
	defer span.End()

	log := c.logger.With(slog.Int("count", count))
	log.DebugContext(ctx, "websearch.search.start", slog.String("query", query))
	started := time.Now()

	results, err := resilience.DoWithResult(ctx, c.retry, func() ([]Result, error) {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		return c.do(ctx, apiKey, query, count)
	})
	if err != nil {
		err = classify(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.CodeOf(err)))
		if te, ok := errors.As(err); ok && te.Code == errors.CodeAPIError {
			span.SetAttributes(attribute.Int(telemetry.AttrHTTPStatus, te.StatusCode))
		}
		log.WarnContext(ctx, "websearch.search.error",
			slog.String("code", string(errors.CodeOf(err))),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int(telemetry.AttrSearchResults, len(results)))
	span.SetStatus(codes.Ok, "")
	log.InfoContext(ctx, "websearch.search.complete",
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return results, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	// Wait fails early when the deadline would pass before a token frees up,
	// while ctx.Err() is still nil.
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.New(errors.CodeCancelled, "search cancelled while rate limited", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, apiKey, query string, count int) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query, count), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failures are worth another attempt unless the caller gave up.
		return nil, errors.New(errors.CodeInternal, err.Error(), err).WithRecoverable(ctx.Err() == nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp, body)
	}

	var payload braveResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Web == nil {
		return []Result{}, nil
	}
	if payload.Web.Results == nil {
		return []Result{}, nil
	}
	return payload.Web.Results, nil
}

// searchURL encodes the query with url.QueryEscape, writing spaces as %20.
func (c *Client) searchURL(query string, count int) string {
	q := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return c.baseURL + searchPath + "?q=" + q + "&count=" + strconv.Itoa(count)
}

func newAPIError(resp *http.Response, body []byte) *errors.Error {
	statusText := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if statusText == "" {
		statusText = http.StatusText(resp.StatusCode)
	}
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return errors.New(errors.CodeAPIError, fmt.Sprintf("%d %s", resp.StatusCode, statusText), nil).
		WithStatus(resp.StatusCode).
		WithRecoverable(retryable).
		WithContext("status_text", statusText).
		WithContext("body", string(body))
}

// classify maps any failure into one of the typed search errors.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
		if errors.Is(err, errors.CodeCancelled) {
			return err
		}
		return errors.New(errors.CodeCancelled, "search cancelled", err)
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.New(errors.CodeInternal, err.Error(), err)
}
