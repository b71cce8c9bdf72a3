package resilience

import (
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mcoot/keyquest/internal/metrics"
)

const breakerName = "remote-store"

// BreakerConfig configures the circuit breaker in front of the store
type BreakerConfig struct {
	// ConsecutiveFailures opens the circuit; 0 disables tripping
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before probing
	OpenTimeout time.Duration
}

// DefaultBreakerConfig returns the default breaker settings
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// newBreaker builds a breaker that only counts transient failures: rate-limit
// signals and rejected requests prove the store is reachable.
func newBreaker(cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[struct{}] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || classify(err) != kindTransient
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakerState reports the breaker state ("closed", "half-open" or "open")
func (r *Retrier) BreakerState() string {
	return r.breaker.State().String()
}
