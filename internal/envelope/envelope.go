package envelope

import (
	"github.com/alabobai/media-bridge/internal/circuitbreaker"
	"github.com/alabobai/media-bridge/internal/healthgate"
)

// Meta carries the diagnostic fields layered onto a degraded payload.
type Meta struct {
	Route        string
	Warning      string
	Fallback     string
	Circuit      map[string]circuitbreaker.Snapshot
	Health       *healthgate.Record
	AttemptsUsed int
}

// Degraded merges payload with meta's diagnostic fields into one flat object.
// The result is a superset of payload: clients that only read the happy-path
// fields are unaffected. Neither input is mutated and no I/O happens here.
func Degraded(payload map[string]any, meta Meta) map[string]any {
	merged := make(map[string]any, len(payload)+6)
	for k, v := range payload {
		merged[k] = v
	}

	merged["route"] = meta.Route
	merged["warning"] = meta.Warning
	merged["fallback"] = meta.Fallback

	if meta.Circuit != nil {
		merged["circuit"] = meta.Circuit
	}
	if meta.Health != nil {
		merged["health"] = *meta.Health
	}
	if meta.AttemptsUsed > 0 {
		merged["attemptsUsed"] = meta.AttemptsUsed
	}

	return merged
}
