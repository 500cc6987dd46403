// Package model holds decorators shared by the model provider adapters.
package model

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/logger"
)

// Ensure RateLimited implements the interface.
var _ driven.ModelProvider = (*RateLimited)(nil)

// DefaultBackoff is how long calls pause after the provider reports a rate limit.
const DefaultBackoff = 30 * time.Second

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
	// Backoff is the pause after a rate limit error (default: 30s).
	Backoff time.Duration
}

// RateLimited wraps a provider with a token bucket shared by Embed and
// Complete. After the provider returns domain.ErrRateLimited, calls wait
// out a backoff period before trying again.
type RateLimited struct {
	driven.ModelProvider

	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	backoff time.Duration
}

// NewRateLimited decorates provider. A non-positive rate returns a
// decorator that only applies backoff.
func NewRateLimited(provider driven.ModelProvider, cfg RateLimitConfig) *RateLimited {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}

	return &RateLimited{
		ModelProvider: provider,
		limiter:       rate.NewLimiter(limit, cfg.BurstSize),
		backoff:       cfg.Backoff,
	}
}

// Embed waits for a token, then embeds.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := r.Wait(ctx); err != nil {
		return nil, err
	}
	vec, err := r.ModelProvider.Embed(ctx, text)
	r.observe(err)
	return vec, err
}

// Complete waits for a token, then completes.
func (r *RateLimited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := r.Wait(ctx); err != nil {
		return "", err
	}
	out, err := r.ModelProvider.Complete(ctx, prompt)
	r.observe(err)
	return out, err
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by a previous rate limit error.
func (r *RateLimited) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return r.limiter.Wait(ctx)
}

// Allow reports whether a request could be made immediately.
func (r *RateLimited) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return r.limiter.Allow()
}

func (r *RateLimited) observe(err error) {
	if !errors.Is(err, domain.ErrRateLimited) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(r.backoff)
	logger.Warn("%s rate limited, pausing requests for %s", r.Name(), r.backoff)
}
