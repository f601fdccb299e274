// Package middleware enforces per-caller request limits on the batch API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"istr/internal/ratelimit/metrics"
	"istr/internal/ratelimit/models"
	"istr/pkg/platform/httputil"
	"istr/pkg/requestcontext"
)

// BucketStore is a sliding window counter keyed by caller.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// HeaderStatus is set to "degraded" while checks run on the fallback store.
const HeaderStatus = "X-RateLimit-Status"

type Middleware struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *breaker
	limit    int
	window   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithFallback sets the store used while the primary store is failing.
func WithFallback(store BucketStore) Option {
	return func(m *Middleware) {
		m.fallback = store
	}
}

// WithMetrics records checks and rejections.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// WithBreakerThresholds overrides the default 5 failures to open and 3
// successes to close.
func WithBreakerThresholds(failures, successes int) Option {
	return func(m *Middleware) {
		if failures > 0 && successes > 0 {
			m.breaker = newCircuitBreaker(failures, successes)
		}
	}
}

// New builds a limiter admitting limit requests per window for each caller.
func New(primary BucketStore, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		breaker: newCircuitBreaker(5, 3),
		limit:   limit,
		window:  window,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// callerKey prefers the authenticated subject and falls back to the client IP.
func callerKey(ctx context.Context) (models.KeyKind, string) {
	if sub := requestcontext.Subject(ctx); sub != "" {
		return models.KeySubject, models.NewKey(models.KeySubject, sub)
	}
	return models.KeyIP, models.NewKey(models.KeyIP, requestcontext.ClientIP(ctx))
}

func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		kind, key := callerKey(ctx)

		result, degraded, err := m.check(ctx, key)
		if err != nil {
			// Fail open.
			m.logger.ErrorContext(ctx, "failed to check rate limit",
				"error", err,
				"kind", kind,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}
		if m.metrics != nil {
			m.metrics.ObserveCheck(kind, result.Allowed)
		}

		addRateLimitHeaders(w, result)
		if degraded {
			w.Header().Set(HeaderStatus, "degraded")
		}
		if !result.Allowed {
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"kind", kind,
				"retry_after", result.RetryAfter,
				"request_id", requestcontext.RequestID(ctx),
			)
			writeRateLimitExceeded(w, result)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// check consults the primary store unless the breaker is open, and degrades to
// the fallback store when the primary fails.
func (m *Middleware) check(ctx context.Context, key string) (*models.RateLimitResult, bool, error) {
	if m.breaker.IsOpen() && m.fallback != nil {
		// Probe the primary so the breaker can close once it recovers.
		if _, err := m.primary.Allow(ctx, key, m.limit, m.window); err == nil {
			if m.breaker.RecordSuccess() {
				m.setDegraded(ctx, false)
			}
		} else {
			m.breaker.RecordFailure()
		}
		result, err := m.fallback.Allow(ctx, key, m.limit, m.window)
		return result, true, err
	}

	result, err := m.primary.Allow(ctx, key, m.limit, m.window)
	if err == nil {
		m.breaker.RecordSuccess()
		return result, false, nil
	}

	if m.metrics != nil {
		m.metrics.IncrementStoreErrors()
	}
	if m.fallback == nil {
		return nil, false, err
	}
	if m.breaker.RecordFailure() {
		m.setDegraded(ctx, true)
	}
	result, ferr := m.fallback.Allow(ctx, key, m.limit, m.window)
	return result, true, ferr
}

func (m *Middleware) setDegraded(ctx context.Context, degraded bool) {
	if m.metrics != nil {
		m.metrics.SetDegraded(degraded)
	}
	if degraded {
		m.logger.WarnContext(ctx, "rate limiter degraded to in-memory fallback")
	} else {
		m.logger.InfoContext(ctx, "rate limiter recovered primary store")
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
