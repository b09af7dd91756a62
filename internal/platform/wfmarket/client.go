// Package wfmarket is the rate-limited REST client for the Warframe
// Market API. All fetch paths absorb upstream failure: exhausted retries
// degrade to "no data this cycle" rather than surfacing an error to the
// scheduler.
package wfmarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"primeflip/internal/domain"
)

// Config holds the client's endpoint and retry parameters.
type Config struct {
	BaseURL           string
	UserAgent         string
	RequestTimeout    time.Duration
	MaxRetries        int
	BackoffBase       time.Duration
	BackoffCap        time.Duration
	RequestsPerSecond float64
}

// Client is the Warframe Market REST client. Outbound requests are paced
// by a token-bucket limiter so a full scheduler cycle stays under the
// upstream rate limit regardless of catalog size.
type Client struct {
	baseURL     string
	userAgent   string
	maxRetries  int
	backoffBase time.Duration
	backoffCap  time.Duration
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates a new Warframe Market client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	base := cfg.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	capd := cfg.BackoffCap
	if capd < base {
		capd = 60 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		userAgent:   cfg.UserAgent,
		maxRetries:  maxRetries,
		backoffBase: base,
		backoffCap:  capd,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		logger:      logger.With(slog.String("component", "wfmarket")),
	}
}

// FetchOrders returns the order list for one marketplace item key. It
// never returns an error: after all retries are exhausted the condition
// is logged and an empty list is returned, which downstream code treats
// as "no data this cycle".
func (c *Client) FetchOrders(ctx context.Context, itemKey string) []domain.Order {
	path := fmt.Sprintf("/items/%s/orders", url.PathEscape(itemKey))

	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		c.logger.Error("fetch orders failed, treating as no data",
			slog.String("item", itemKey),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var resp ordersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("decode orders failed, treating as no data",
			slog.String("item", itemKey),
			slog.String("error", err.Error()),
		)
		return nil
	}

	orders := make([]domain.Order, 0, len(resp.Payload.Orders))
	for _, w := range resp.Payload.Orders {
		orders = append(orders, w.toDomain())
	}
	return orders
}

// ListItems returns the url names of every item known to the marketplace.
// Unlike FetchOrders this surfaces errors, since callers use it for
// catalog validation rather than inside the cycle.
func (c *Client) ListItems(ctx context.Context) ([]string, error) {
	body, err := c.getWithRetry(ctx, "/items")
	if err != nil {
		return nil, fmt.Errorf("wfmarket: list items: %w", err)
	}

	var resp itemsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("wfmarket: decode items: %w", err)
	}

	names := make([]string, 0, len(resp.Payload.Items))
	for _, it := range resp.Payload.Items {
		names = append(names, it.URLName)
	}
	return names, nil
}

// getWithRetry issues a GET with exponential backoff. HTTP 429 honors the
// server's Retry-After when it exceeds the computed backoff; 5xx retries
// on the computed schedule; other transport errors retry the same way.
func (c *Client) getWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, status, err := c.get(ctx, path)
		switch {
		case err != nil:
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("request failed, backing off",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}

		case status == http.StatusTooManyRequests:
			lastErr = domain.ErrRateLimited
			delay := c.backoff(attempt)
			if ra := retryAfter(body); ra > delay {
				delay = ra
			}
			c.logger.Warn("rate limited, backing off",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}

		case status >= 500:
			lastErr = fmt.Errorf("server error: HTTP %d", status)
			c.logger.Warn("server error, backing off",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Int("status", status),
			)
			if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}

		case status >= 400:
			// Client errors are not retryable.
			return nil, fmt.Errorf("HTTP %d for %s", status, path)

		default:
			return body, nil
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("request failed")
	}
	return nil, fmt.Errorf("all %d retries exhausted for %s: %w", c.maxRetries, path, lastErr)
}

// get performs a single HTTP GET. On a 429 response the returned body is
// replaced by the Retry-After header value so the caller can honor it.
func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return []byte(resp.Header.Get("Retry-After")), resp.StatusCode, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// backoff computes min(base * 2^attempt, cap) plus up to 10% jitter so
// per-item retries do not synchronize into a retry storm.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.backoffBase << uint(attempt)
	if d > c.backoffCap || d <= 0 {
		d = c.backoffCap
	}
	jitter := time.Duration(rand.Int63n(int64(d)/10 + 1))
	return d + jitter
}

// retryAfter parses a Retry-After header value (whole seconds).
func retryAfter(raw []byte) time.Duration {
	secs, err := strconv.Atoi(string(raw))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
