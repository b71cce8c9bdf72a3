// Package resilience wraps every remote store call in a bounded retry
// policy behind a circuit breaker.
//
// Explicit rate-limit signals wait a fixed window before the next attempt.
// Transient failures (timeouts, DNS, dropped connections, 5xx) back off
// exponentially. Anything else is returned on first occurrence. With the
// default policy a call that is rate limited on every attempt fails after
// (MaxAttempts-1) * RateLimitWait, never waiting after the last attempt.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mcoot/keyquest/internal/dependencies/clock"
	"github.com/mcoot/keyquest/internal/metrics"
	"github.com/mcoot/keyquest/internal/storage"
)

// ErrCircuitOpen is returned without calling the store while the breaker is open
var ErrCircuitOpen = errors.New("circuit breaker open")

// Policy bounds the retry behaviour
type Policy struct {
	MaxAttempts   int
	RateLimitWait time.Duration
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
}

// DefaultPolicy matches the store's documented 30s rate-limit recovery window
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		RateLimitWait: 30 * time.Second,
		BaseBackoff:   500 * time.Millisecond,
		MaxBackoff:    8 * time.Second,
	}
}

// failureKind drives the retry decision for an error
type failureKind int

const (
	kindPermanent failureKind = iota
	kindRateLimited
	kindTransient
)

func (k failureKind) String() string {
	switch k {
	case kindRateLimited:
		return "rate_limited"
	case kindTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// classify decides whether an error is worth retrying
func classify(err error) failureKind {
	if errors.Is(err, storage.ErrRateLimited) {
		return kindRateLimited
	}
	if errors.Is(err, storage.ErrTransient) {
		return kindTransient
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return kindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return kindTransient
	}
	return kindPermanent
}

// ExhaustedError reports that every allowed attempt failed with a retryable error
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Retrier executes store operations under the retry policy and circuit breaker
type Retrier struct {
	policy  Policy
	clock   clock.Clock
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
}

// New creates a Retrier
func New(policy Policy, breakerCfg BreakerConfig, clk clock.Clock, logger *slog.Logger) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPolicy().MaxAttempts
	}
	return &Retrier{
		policy:  policy,
		clock:   clk,
		breaker: newBreaker(breakerCfg, logger),
		logger:  logger,
	}
}

// Policy returns the active policy
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs fn under the retry policy
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, r, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call runs fn under the retry policy and returns its result
func Call[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		var result T
		_, err := r.breaker.Execute(func() (struct{}, error) {
			var err error
			result, err = fn(ctx)
			return struct{}{}, err
		})
		if err == nil {
			metrics.StoreRequests.WithLabelValues(op, "success").Inc()
			return result, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.StoreRequests.WithLabelValues(op, "rejected").Inc()
			return zero, fmt.Errorf("%s: %w: %w", op, ErrCircuitOpen, err)
		}

		kind := classify(err)
		metrics.StoreRequests.WithLabelValues(op, kind.String()).Inc()
		if kind == kindPermanent || ctx.Err() != nil {
			return zero, err
		}
		if attempt >= r.policy.MaxAttempts {
			r.logger.Warn("store call exhausted retries",
				slog.String("operation", op),
				slog.Int("attempts", attempt),
				slog.String("reason", kind.String()),
				slog.String("error", err.Error()),
			)
			return zero, &ExhaustedError{Op: op, Attempts: attempt, Err: err}
		}

		wait := r.delay(kind, attempt)
		r.logger.Warn("store call failed, retrying",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.policy.MaxAttempts),
			slog.String("reason", kind.String()),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
		metrics.StoreRetries.WithLabelValues(op, kind.String()).Inc()
		metrics.StoreRetryWaitSeconds.WithLabelValues(kind.String()).Observe(wait.Seconds())

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-r.clock.After(wait):
		}
	}
}

// delay returns the wait before the attempt following a failed attempt
func (r *Retrier) delay(kind failureKind, attempt int) time.Duration {
	if kind == kindRateLimited {
		return r.policy.RateLimitWait
	}
	d := r.policy.BaseBackoff << (attempt - 1)
	if r.policy.MaxBackoff > 0 && (d > r.policy.MaxBackoff || d <= 0) {
		d = r.policy.MaxBackoff
	}
	return d
}
