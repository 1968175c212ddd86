package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/user/election-scraper/internal/proxy"
	"github.com/user/election-scraper/internal/repository"
)

const maxBodyBytes = 16 << 20

// Config configures the HTTP fetcher.
type Config struct {
	Timeout    time.Duration
	RateLimit  rate.Limit // requests per second, 0 means unlimited
	MaxRetries int
	RetryDelay time.Duration
}

// Fetcher retrieves pages over plain HTTP and decodes them to UTF-8.
type Fetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	agents     *proxy.Manager
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewFetcher creates a new Fetcher. agents may be nil.
func NewFetcher(cfg Config, agents *proxy.Manager, l *zap.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = rate.Inf
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if agents == nil {
		agents = proxy.NewManager(nil, "")
	}
	if l == nil {
		l = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = agents.ProxyFunc

	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter:    rate.NewLimiter(cfg.RateLimit, 1),
		agents:     agents,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     l,
	}
}

// Fetch returns the decoded body of url. Every failure wraps repository.ErrFetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			f.logger.Debug("Retrying fetch", zap.String("url", url), zap.Int("attempt", attempt), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", repository.ErrFetchFailed, ctx.Err())
			case <-time.After(f.retryDelay):
			}
		}

		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return "", fmt.Errorf("%w: %s: %w", repository.ErrFetchFailed, url, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &permanentError{fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.agents.GetUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("%w: %d", repository.ErrUnexpectedStatus, resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", &permanentError{err}
		}
		return "", err
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &permanentError{fmt.Errorf("unsupported charset: %w", err)}
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}

// permanentError marks failures that a retry cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
