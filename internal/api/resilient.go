package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
)

// ResilientConfig holds configuration for the resilient transport. There is
// no retry stage: a failed request is final for that attempt.
type ResilientConfig struct {
	// EnableCircuitBreaker stops calling a backend that keeps failing
	EnableCircuitBreaker bool

	// MaxConcurrent for bulkhead (0 disables)
	MaxConcurrent int

	// RatePerSecond for rate limiting (0 disables)
	RatePerSecond int

	Logger *slog.Logger
}

// DefaultResilientConfig returns sensible defaults for an interactive client
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		MaxConcurrent:        4,
		RatePerSecond:        5,
	}
}

// ResilientTransport wraps a RoundTripper with fortify's circuit breaker,
// bulkhead and rate limiter.
type ResilientTransport struct {
	next           http.RoundTripper
	circuitBreaker circuitbreaker.CircuitBreaker[*http.Response]
	bulkhead       bulkhead.Bulkhead[*http.Response]
	rateLimit      ratelimit.RateLimiter
	logger         *slog.Logger
}

// serverError counts 5xx responses as circuit breaker failures while the
// response itself is still returned to the caller.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error (status %d)", e.status)
}

// NewResilientTransport wraps next with the patterns enabled in cfg
func NewResilientTransport(next http.RoundTripper, cfg ResilientConfig) *ResilientTransport {
	rt := &ResilientTransport{
		next:   next,
		logger: cfg.Logger,
	}
	if rt.logger == nil {
		rt.logger = slog.Default()
	}

	if cfg.EnableCircuitBreaker {
		rt.circuitBreaker = circuitbreaker.New[*http.Response](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				rt.logger.Warn("circuit breaker state change",
					"target", "backend",
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	if cfg.MaxConcurrent > 0 {
		rt.bulkhead = bulkhead.New[*http.Response](bulkhead.Config{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxQueue:      cfg.MaxConcurrent * 4,
			QueueTimeout:  10 * time.Second,
		})
	}

	if cfg.RatePerSecond > 0 {
		rt.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RatePerSecond,
			Burst:    cfg.RatePerSecond * 2,
			Interval: time.Second,
		})
	}

	return rt
}

func (t *ResilientTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.rateLimit != nil && !t.rateLimit.Allow(ctx, req.URL.Host) {
		return nil, fmt.Errorf("%w: rate limit exceeded for %s", ErrTransport, req.URL.Host)
	}

	var resp *http.Response
	operation := func(ctx context.Context) (*http.Response, error) {
		r, err := t.next.RoundTrip(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		resp = r
		if r.StatusCode >= 500 {
			return r, &serverError{status: r.StatusCode}
		}
		return r, nil
	}

	if t.bulkhead != nil {
		inner := operation
		operation = func(ctx context.Context) (*http.Response, error) {
			return t.bulkhead.Execute(ctx, inner)
		}
	}

	var err error
	if t.circuitBreaker != nil {
		_, err = t.circuitBreaker.Execute(ctx, operation)
	} else {
		_, err = operation(ctx)
	}

	if resp != nil {
		// Got an answer; 5xx is reported through the response, not as a
		// transport failure.
		return resp, nil
	}
	return nil, err
}

// Close releases resources held by the rate limiter
func (t *ResilientTransport) Close() error {
	if t.rateLimit != nil {
		return t.rateLimit.Close()
	}
	return nil
}
