// Package client talks to the generation backend's REST API. Every request carries
// the bearer token, and every non-2xx response surfaces as *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cineflow/console/internal/locator"
	"cineflow/console/internal/normalize"
	"cineflow/console/internal/telemetry"
)

const (
	DefaultBaseURL  = "http://127.0.0.1:8088/api/v1"
	DefaultPageSize = 200
)

type Options struct {
	BaseURL string
	// Token is read before every request so a login can take effect mid-session.
	Token      func() string
	HTTPClient *http.Client
	Timeout    time.Duration
	PageSize   int
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics
}

type Client struct {
	resolver *locator.Resolver
	norm     *normalize.Normalizer
	token    func() string
	http     *http.Client
	pageSize int
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

func New(opts Options) *Client {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Token == nil {
		opts.Token = func() string { return "" }
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewIsolatedMetrics()
	}
	resolver := locator.NewResolver(opts.BaseURL)
	return &Client{
		resolver: resolver,
		norm:     normalize.New(resolver),
		token:    opts.Token,
		http:     opts.HTTPClient,
		pageSize: opts.PageSize,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

func (c *Client) Resolver() *locator.Resolver { return c.resolver }

func (c *Client) Normalizer() *normalize.Normalizer { return c.norm }

func (c *Client) PageSize() int { return c.pageSize }

// do sends one request. target is a path under the API base or an absolute URL.
func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Response, error) {
	url := target
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		url = c.resolver.Base() + target
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, target, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := strings.TrimSpace(c.token()); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ClientDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ClientRequests.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	c.metrics.ClientRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug("api_request", "method", method, "path", target, "status", resp.StatusCode, "latency_ms", time.Since(start).Milliseconds())
	return resp, nil
}

// send performs the request and decodes a 2xx body into out. A nil out, or a 204,
// skips decoding.
func (c *Client) send(ctx context.Context, method, target string, body io.Reader, contentType string, out any) error {
	resp, err := c.do(ctx, method, target, body, contentType)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return parseError(resp.StatusCode, raw, resp.Header.Get("X-Trace-Id"))
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, target, err)
	}
	return nil
}

func (c *Client) requestJSON(ctx context.Context, method, target string, in, out any) error {
	if in == nil {
		return c.send(ctx, method, target, nil, "", out)
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", method, target, err)
	}
	return c.send(ctx, method, target, bytes.NewReader(payload), "application/json", out)
}
