package circuitbreaker

import (
	"sync"
	"time"
)

// Registry provides keyed get-or-create access to circuit breakers. Keys
// identify operation classes, e.g. "chat.ollama" or "image.local". Entries
// are created lazily and live for the process lifetime.
type Registry struct {
	mutex            sync.RWMutex
	breakers         map[string]*CircuitBreaker
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
}

func NewRegistry(failureThreshold, successThreshold int, cooldown time.Duration) *Registry {
	return &Registry{
		breakers:         make(map[string]*CircuitBreaker),
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
	}
}

func (r *Registry) GetBreaker(key string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[key]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[key]; exists {
		return cb
	}

	cb = NewCircuitBreaker(r.failureThreshold, r.successThreshold, r.cooldown)
	r.breakers[key] = cb
	return cb
}

func (r *Registry) CanAttempt(key string) bool {
	return r.GetBreaker(key).CanAttempt()
}

func (r *Registry) RecordSuccess(key string) {
	r.GetBreaker(key).RecordSuccess()
}

func (r *Registry) RecordFailure(key string, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	r.GetBreaker(key).RecordFailure(reason)
}

func (r *Registry) LastError(key string) string {
	return r.GetBreaker(key).LastError()
}

func (r *Registry) Snapshot(key string) Snapshot {
	return r.GetBreaker(key).Snapshot()
}

// Snapshots returns the diagnostic view of the given keys, creating entries
// for keys not seen yet so degraded envelopes always have something to show.
func (r *Registry) Snapshots(keys ...string) map[string]Snapshot {
	snaps := make(map[string]Snapshot, len(keys))
	for _, key := range keys {
		snaps[key] = r.Snapshot(key)
	}
	return snaps
}

// All returns the state of every breaker created so far.
func (r *Registry) All() map[string]Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snaps := make(map[string]Snapshot, len(r.breakers))
	for key, cb := range r.breakers {
		snaps[key] = cb.Snapshot()
	}
	return snaps
}

func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}
