// Package fetch downloads source media bytes. One call is one deterministic
// HTTP attempt; retry policy belongs to the delivery engine.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	coreerrors "github.com/Anarq42/Reddit2TgGroup/internal/core/errors"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodySize    = 50 * 1024 * 1024

	hostLimiterRate  = 2
	hostLimiterBurst = 4
	globalBurst      = 5

	// Several media hosts reject requests without a browser-like User-Agent
	// or a Referer pointing back at the post.
	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
)

// Fetcher retrieves media bytes over HTTP with browser-like headers and
// per-host rate limiting.
type Fetcher struct {
	client        *http.Client
	globalLimiter *rate.Limiter
	hostLimiters  map[string]*rate.Limiter
	mu            sync.RWMutex
	logger        *zerolog.Logger
}

func New(rps float64, timeout time.Duration, logger *zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Fetcher{
		client:        &http.Client{Timeout: timeout},
		globalLimiter: rate.NewLimiter(rate.Limit(rps), globalBurst),
		hostLimiters:  make(map[string]*rate.Limiter),
		logger:        logger,
	}
}

// Fetch downloads rawURL. referer should be the submission's permalink.
// Network errors, timeouts and non-2xx statuses are returned as errors; the
// caller decides whether the delivery degrades or fails.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, referer string) ([]byte, error) {
	if err := f.globalLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("global rate limiter wait: %w", err)
	}

	if err := f.hostLimiter(extractHost(rawURL)).Wait(ctx); err != nil {
		return nil, fmt.Errorf("host rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "*/*")

	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %w: %d", coreerrors.ErrFetchFailed, coreerrors.ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", coreerrors.ErrFetchFailed, err)
	}

	return body, nil
}

func (f *Fetcher) hostLimiter(host string) *rate.Limiter {
	f.mu.RLock()
	limiter, exists := f.hostLimiters[host]
	f.mu.RUnlock()

	if exists {
		return limiter
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if limiter, exists := f.hostLimiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(hostLimiterRate, hostLimiterBurst)
	f.hostLimiters[host] = limiter

	return limiter
}

func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	return u.Hostname()
}
