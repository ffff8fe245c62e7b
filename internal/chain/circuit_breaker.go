package chain

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Fantasim/dropmint/internal/config"
)

// CircuitBreaker stops routing calls to an endpoint that keeps failing.
//
// Closed: calls pass; threshold consecutive failures open the circuit.
// Open: calls are refused until the cooldown has elapsed, then half-open.
// Half-open: one probe call passes. Success closes, failure reopens.
type CircuitBreaker struct {
	mu               sync.Mutex
	name             string
	state            string
	consecutiveFails int
	threshold        int
	cooldown         time.Duration
	lastFailure      time.Time
	lastError        string
	halfOpenAllowed  int
	halfOpenCount    int
	now              func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(name string, threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:            name,
		state:           config.CircuitClosed,
		threshold:       threshold,
		cooldown:        cooldown,
		halfOpenAllowed: config.CircuitBreakerHalfOpenMax,
		now:             time.Now,
	}
}

// Allow reports whether a call may go through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case config.CircuitClosed:
		return true

	case config.CircuitOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cooldown {
			return false
		}
		slog.Debug("circuit breaker half-open",
			"endpoint", cb.name,
			"consecutiveFails", cb.consecutiveFails,
		)
		cb.state = config.CircuitHalfOpen
		cb.halfOpenCount = 1
		return true

	case config.CircuitHalfOpen:
		if cb.halfOpenCount < cb.halfOpenAllowed {
			cb.halfOpenCount++
			return true
		}
		return false
	}
	return false
}

// RecordSuccess closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != config.CircuitClosed {
		slog.Info("circuit breaker closed after success",
			"endpoint", cb.name,
			"previousState", cb.state,
		)
	}
	cb.consecutiveFails = 0
	cb.state = config.CircuitClosed
	cb.halfOpenCount = 0
	cb.lastError = ""
}

// RecordFailure counts a failure and may open the circuit.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = cb.now()
	if err != nil {
		cb.lastError = err.Error()
	}

	switch {
	case cb.state == config.CircuitHalfOpen:
		slog.Warn("circuit breaker reopened from half-open",
			"endpoint", cb.name,
			"consecutiveFails", cb.consecutiveFails,
		)
		cb.state = config.CircuitOpen
		cb.halfOpenCount = 0
	case cb.state == config.CircuitClosed && cb.consecutiveFails >= cb.threshold:
		slog.Warn("circuit breaker tripped",
			"endpoint", cb.name,
			"consecutiveFails", cb.consecutiveFails,
			"threshold", cb.threshold,
			"error", cb.lastError,
		)
		cb.state = config.CircuitOpen
		cb.halfOpenCount = 0
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// ConsecutiveFailures returns the current failure count.
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.consecutiveFails
}

// LastError returns the message of the most recent failure since the last success.
func (cb *CircuitBreaker) LastError() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastError
}
