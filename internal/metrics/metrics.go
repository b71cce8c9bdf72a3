// Package metrics holds the Prometheus instrumentation shared by the
// store adapter, resilience layer, validation gateway and game sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Remote store metrics
	StoreRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyquest_store_requests_total",
			Help: "Remote store calls by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: success, rate_limited, transient, permanent, rejected
	)

	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyquest_store_retries_total",
			Help: "Remote store retries by operation and reason",
		},
		[]string{"operation", "reason"},
	)

	StoreRetryWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keyquest_store_retry_wait_seconds",
			Help:    "Time spent waiting between remote store attempts",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"reason"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "keyquest_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Identity metrics
	RecordsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "keyquest_records_created_total",
			Help: "User records created through self-registration",
		},
	)

	CheckIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyquest_checkins_total",
			Help: "Identity submissions by result",
		},
		[]string{"result"}, // created, checked_in, welcome_back, conflict, not_registered
	)

	KeyScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyquest_key_scans_total",
			Help: "Key status updates by key and result",
		},
		[]string{"key", "result"},
	)

	RedeemTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyquest_redeem_transitions_total",
			Help: "Redeem flag writes by trigger",
		},
		[]string{"trigger"}, // eager, lazy
	)

	DuplicateRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "keyquest_duplicate_records_total",
			Help: "Lookups that found more than one record for an email",
		},
	)

	// Security metrics
	AttacksDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyquest_attacks_detected_total",
			Help: "Requests rejected by the validation gateway",
		},
		[]string{"category"},
	)

	// Game session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keyquest_sessions_active",
			Help: "Game sessions currently held in memory",
		},
	)

	SessionKeysCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyquest_session_keys_collected_total",
			Help: "Keys collected in game sessions",
		},
		[]string{"key"},
	)
)
