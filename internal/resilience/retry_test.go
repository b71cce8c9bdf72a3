package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/keyquest/internal/dependencies/mocks"
	"github.com/mcoot/keyquest/internal/storage"
	"github.com/mcoot/keyquest/internal/testutil"
)

type RetrierSuite struct {
	suite.Suite
	clock *mocks.MockClock
}

func TestRetrierSuite(t *testing.T) {
	suite.Run(t, new(RetrierSuite))
}

func (s *RetrierSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
}

func (s *RetrierSuite) newRetrier(policy Policy, breaker BreakerConfig) *Retrier {
	return New(policy, breaker, s.clock, testutil.NopLogger())
}

// failing returns fn that fails with errs in order, then succeeds
func failing(calls *int, errs ...error) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		*calls++
		if *calls <= len(errs) {
			return "", errs[*calls-1]
		}
		return "ok", nil
	}
}

func (s *RetrierSuite) TestSucceedsFirstAttempt() {
	r := s.newRetrier(DefaultPolicy(), DefaultBreakerConfig())
	calls := 0

	result, err := Call(context.Background(), r, "scan", failing(&calls))

	s.Require().NoError(err)
	s.Equal("ok", result)
	s.Equal(1, calls)
	s.Empty(s.clock.Waits())
}

func (s *RetrierSuite) TestRateLimitedThenSucceeds() {
	r := s.newRetrier(DefaultPolicy(), DefaultBreakerConfig())
	calls := 0

	result, err := Call(context.Background(), r, "append", failing(&calls, storage.ErrRateLimited))

	s.Require().NoError(err)
	s.Equal("ok", result)
	s.Equal(2, calls)
	s.Equal([]time.Duration{30 * time.Second}, s.clock.Waits())
}

func (s *RetrierSuite) TestPersistentRateLimitIsBounded() {
	policy := DefaultPolicy()
	r := s.newRetrier(policy, DefaultBreakerConfig())
	calls := 0
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = fmt.Errorf("append: %w", storage.ErrRateLimited)
	}

	_, err := Call(context.Background(), r, "append", failing(&calls, errs...))

	s.Require().Error(err)
	s.ErrorIs(err, storage.ErrRateLimited)
	var exhausted *ExhaustedError
	s.Require().ErrorAs(err, &exhausted)
	s.Equal(3, exhausted.Attempts)
	s.Equal(3, calls)

	// No wait after the final attempt
	s.Equal([]time.Duration{30 * time.Second, 30 * time.Second}, s.clock.Waits())
	s.LessOrEqual(s.clock.TotalWait(), time.Duration(policy.MaxAttempts)*policy.RateLimitWait)
}

func (s *RetrierSuite) TestTransientBacksOffExponentially() {
	r := s.newRetrier(Policy{
		MaxAttempts:   5,
		RateLimitWait: 30 * time.Second,
		BaseBackoff:   time.Second,
		MaxBackoff:    3 * time.Second,
	}, DefaultBreakerConfig())
	calls := 0

	_, err := Call(context.Background(), r, "get", failing(&calls,
		storage.ErrTransient, storage.ErrTransient, storage.ErrTransient, storage.ErrTransient, storage.ErrTransient))

	s.Require().Error(err)
	s.ErrorIs(err, storage.ErrTransient)
	s.Equal(5, calls)
	s.Equal([]time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, s.clock.Waits())
}

func (s *RetrierSuite) TestNetworkTimeoutIsRetried() {
	r := s.newRetrier(DefaultPolicy(), DefaultBreakerConfig())
	calls := 0

	_, err := Call(context.Background(), r, "scan", failing(&calls, &net.DNSError{Err: "timeout", IsTimeout: true}))

	s.Require().NoError(err)
	s.Equal(2, calls)
	s.Equal([]time.Duration{500 * time.Millisecond}, s.clock.Waits())
}

func (s *RetrierSuite) TestPermanentErrorIsNotRetried() {
	r := s.newRetrier(DefaultPolicy(), DefaultBreakerConfig())
	calls := 0

	_, err := Call(context.Background(), r, "get", failing(&calls, storage.ErrRowNotFound))

	s.ErrorIs(err, storage.ErrRowNotFound)
	var exhausted *ExhaustedError
	s.False(errors.As(err, &exhausted))
	s.Equal(1, calls)
	s.Empty(s.clock.Waits())
}

func (s *RetrierSuite) TestCancelledContextStopsRetrying() {
	r := s.newRetrier(DefaultPolicy(), DefaultBreakerConfig())
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := r.Do(ctx, "scan", func(ctx context.Context) error {
		calls++
		cancel()
		return storage.ErrTransient
	})

	s.Require().Error(err)
	s.Equal(1, calls)
	s.Empty(s.clock.Waits())
}

func (s *RetrierSuite) TestBreakerOpensOnTransientFailures() {
	r := s.newRetrier(Policy{MaxAttempts: 1}, BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	calls := 0
	fn := func(ctx context.Context) error {
		calls++
		return storage.ErrTransient
	}

	s.ErrorIs(r.Do(context.Background(), "scan", fn), storage.ErrTransient)
	s.ErrorIs(r.Do(context.Background(), "scan", fn), storage.ErrTransient)

	err := r.Do(context.Background(), "scan", fn)
	s.ErrorIs(err, ErrCircuitOpen)
	s.Equal(2, calls, "open circuit must not reach the store")
}

func (s *RetrierSuite) TestRateLimitDoesNotTripBreaker() {
	r := s.newRetrier(Policy{MaxAttempts: 1}, BreakerConfig{ConsecutiveFailures: 1, OpenTimeout: time.Minute})
	calls := 0
	fn := func(ctx context.Context) error {
		calls++
		return storage.ErrRateLimited
	}

	for range 3 {
		s.ErrorIs(r.Do(context.Background(), "append", fn), storage.ErrRateLimited)
	}
	s.Equal(3, calls)
}

func (s *RetrierSuite) TestPermanentErrorsDoNotTripBreaker() {
	r := s.newRetrier(DefaultPolicy(), BreakerConfig{ConsecutiveFailures: 1, OpenTimeout: time.Minute})

	for range 3 {
		err := r.Do(context.Background(), "get", func(ctx context.Context) error {
			return storage.ErrRowNotFound
		})
		s.ErrorIs(err, storage.ErrRowNotFound)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want failureKind
	}{
		{"rate limited", storage.ErrRateLimited, kindRateLimited},
		{"wrapped rate limited", fmt.Errorf("scan: %w", storage.ErrRateLimited), kindRateLimited},
		{"transient", storage.ErrTransient, kindTransient},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "api.example.com"}, kindTransient},
		{"not found", storage.ErrRowNotFound, kindPermanent},
		{"unauthorized", storage.ErrUnauthorized, kindPermanent},
		{"malformed", storage.ErrMalformedRequest, kindPermanent},
		{"unknown", errors.New("boom"), kindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify() = %v, want %v", got, tt.want)
			}
		})
	}
}
