package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking attempts until the cooldown elapses
	StateHalfOpen              // Probing for recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is the diagnostic view of a breaker embedded in degraded
// responses.
type Snapshot struct {
	State               string `json:"state"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
}

// CircuitBreaker tracks consecutive failures for one operation key and gates
// whether an attempt is permitted. State transitions happen entirely under
// the mutex; network calls never do.
type CircuitBreaker struct {
	mutex                sync.Mutex
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time
	lastError            string
	failureThreshold     int
	successThreshold     int
	cooldown             time.Duration
}

func NewCircuitBreaker(failureThreshold, successThreshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
	}
}

// CanAttempt reports whether a call may be made. An Open breaker whose
// cooldown has elapsed transitions to HalfOpen before returning true, so the
// caller's attempt doubles as the recovery probe.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.cooldown {
			cb.state = StateHalfOpen
			cb.consecutiveSuccesses = 0
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return true
	}
}

// RecordFailure notes a failed attempt. Reaching the failure threshold in
// Closed trips the breaker; any failure in HalfOpen reopens it with a fresh
// cooldown clock.
func (cb *CircuitBreaker) RecordFailure(reason string) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.lastError = reason

	switch cb.state {
	case StateHalfOpen:
		cb.open()
	case StateClosed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.open()
		}
	case StateOpen:
		// Late failure from an attempt that started before the trip.
		cb.openedAt = time.Now()
	}
}

// RecordSuccess notes a successful attempt. In HalfOpen, the breaker closes
// once the success threshold is reached; in Closed it clears the failure run.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.successThreshold {
			cb.state = StateClosed
			cb.consecutiveFailures = 0
			cb.consecutiveSuccesses = 0
		}
	default:
		cb.consecutiveFailures = 0
	}
}

// open transitions to Open and resets the failure counter for the next
// cycle. Caller must hold the mutex.
func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// LastError returns the most recent failure reason, retained for diagnostics.
func (cb *CircuitBreaker) LastError() string {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.lastError
}

// Snapshot returns the reduced diagnostic view of the breaker.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return Snapshot{
		State:               cb.state.String(),
		ConsecutiveFailures: cb.consecutiveFailures,
	}
}
