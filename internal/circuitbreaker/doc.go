// Package circuitbreaker implements the circuit breaker pattern for the
// inference backends behind the media bridge.
//
// A circuit breaker prevents hammering a known-down backend with repeated
// retries and timeouts while still probing for recovery. It has three states:
//
//   - CLOSED: Normal operation, attempts pass through
//   - OPEN: Backend failing, attempts blocked until the cooldown elapses
//   - HALF-OPEN: Cooldown elapsed, trial attempts permitted
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(3, 1, 30*time.Second)
//	if registry.CanAttempt("chat.ollama") {
//	    // Make the backend call...
//	    if err != nil {
//	        registry.RecordFailure("chat.ollama", err)
//	    } else {
//	        registry.RecordSuccess("chat.ollama")
//	    }
//	}
package circuitbreaker
