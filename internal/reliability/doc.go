// Package reliability executes backend operations under a bounded-retry
// policy. Every attempt is gated by the circuit breaker for the operation's
// key, and every outcome is recorded against it, so repeated failures stop
// costing network calls quickly. The runner never swallows an error: after
// the attempt budget is spent, the most recent failure is returned to the
// caller, which owns the fallback cascade.
package reliability
