// Package gateway executes fallback cascades: an ordered list of tiers, each
// guarded by a circuit breaker and an optional cached health probe, ending in
// a deterministic terminal fallback that cannot fail. Degraded responses are
// wrapped in an envelope describing what went wrong.
package gateway
