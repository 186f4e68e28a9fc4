package ingest

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const feedUserAgent = "volunteer-connect/1.0 (+https://github.com/david/volunteer-connect)"

// RateLimitedFetcher fetches feed documents with per-host rate limiting and
// retries. One ticker per host keeps concurrent provider runs polite without
// blocking each other.
type RateLimitedFetcher struct {
	client        *http.Client
	limiters      map[string]*time.Ticker
	defaultConfig FetchConfig
	mu            sync.Mutex
}

func NewRateLimitedFetcher(defaultConfig FetchConfig) *RateLimitedFetcher {
	defaultConfig = defaultConfig.withDefaults(FetchConfig{
		TimeoutSeconds: 30,
		MaxRetries:     3,
		RateLimitRPS:   1.0,
	})

	return &RateLimitedFetcher{
		client:        &http.Client{},
		limiters:      make(map[string]*time.Ticker),
		defaultConfig: defaultConfig,
	}
}

// withDefaults fills zero-valued fields from fallback.
func (c FetchConfig) withDefaults(fallback FetchConfig) FetchConfig {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = fallback.TimeoutSeconds
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = fallback.MaxRetries
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = fallback.RateLimitRPS
	}
	return c
}

// A host's ticker is created with the rate of the first provider that
// touches the host; providers share a host only when they share a feed.
func (f *RateLimitedFetcher) limiter(host string, rps float64) *time.Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.limiters[host]; ok {
		return t
	}
	interval := time.Duration(float64(time.Second) / rps)
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	f.limiters[host] = t
	return t
}

// Fetch implements the Fetcher interface with the fetcher's default limits.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, rawURL string) (*FetchedDocument, error) {
	return f.FetchWith(ctx, rawURL, FetchConfig{})
}

// FetchWith fetches under a provider's own limits; zero fields fall back to
// the fetcher defaults.
func (f *RateLimitedFetcher) FetchWith(ctx context.Context, rawURL string, cfg FetchConfig) (*FetchedDocument, error) {
	cfg = cfg.withDefaults(f.defaultConfig)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.limiter(u.Host, cfg.RateLimitRPS).C:
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 0.5s, 1s, 2s + jitter
			backoff := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			jitter := time.Duration(rand.Intn(100)) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", feedUserAgent)
		req.Header.Set("Accept", "text/csv,application/xml,text/html;q=0.9,*/*;q=0.8")

		resp, err := f.client.Do(req)
		if err != nil {
			cancel()
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return &FetchedDocument{
				URL:         rawURL,
				StatusCode:  resp.StatusCode,
				ContentType: resp.Header.Get("Content-Type"),
				Body:        &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
				FetchedAt:   time.Now(),
				Headers:     resp.Header,
			}, nil
		}

		resp.Body.Close()
		cancel()
		lastErr = fmt.Errorf("status code %d", resp.StatusCode)
		if !retryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// cancelOnClose releases the per-request timeout context when the caller is
// done reading the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
