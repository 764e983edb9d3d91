package fakestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/config"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/metrics"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/ratelimit"
)

const (
	DefaultBaseURL = "https://fakestoreapi.com"

	EndpointProducts = "/products"
	EndpointCarts    = "/carts"
	EndpointUsers    = "/users"
)

// StatusError is a non-200 response.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.Code, e.Body)
}

// Client handles Fake Store API requests.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	baseURL    string
	maxRetries int
	metrics    *metrics.Recorder
	log        *zap.Logger
}

// NewClient creates a client from the fake_store config section.
func NewClient(cfg config.FakeStore, limiter ratelimit.Limiter, rec *metrics.Recorder, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limiter == nil {
		limiter = ratelimit.NewLimiter(cfg.RateLimit)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		baseURL:    baseURL,
		maxRetries: cfg.RateLimit.MaxRetries,
		metrics:    rec,
		log:        log,
	}
}

// Products fetches the full catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	return out, c.get(ctx, EndpointProducts, &out)
}

// Carts fetches every cart.
func (c *Client) Carts(ctx context.Context) ([]Cart, error) {
	var out []Cart
	return out, c.get(ctx, EndpointCarts, &out)
}

// Users fetches every user.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out []User
	return out, c.get(ctx, EndpointUsers, &out)
}

// get decodes a JSON list from endpoint into out. A single object response is
// treated as a one-element list. 429 and 5xx responses are retried with backoff.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	u := c.baseURL + endpoint

	var body []byte
	err := ratelimit.Do(ctx, c.limiter, c.maxRetries, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.metrics.Request(endpoint, 0)
			if ctx.Err() != nil {
				return err
			}
			return ratelimit.Retryable(fmt.Errorf("execute request: %w", err))
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		c.metrics.Request(endpoint, resp.StatusCode)

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return ratelimit.Retryable(fmt.Errorf("read body: %w", err))
		}

		if resp.StatusCode != http.StatusOK {
			serr := &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: truncate(string(data), 200)}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				c.log.Warn("retryable API response", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
				return ratelimit.Retryable(serr)
			}
			return serr
		}
		body = data
		return nil
	})
	if err != nil {
		c.log.Error("API request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		trimmed = append(append([]byte{'['}, trimmed...), ']')
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	c.log.Info("API request successful", zap.String("endpoint", endpoint), zap.Int("bytes", len(body)))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
