// Package healthgate implements demand-driven, TTL-cached liveness checks for
// the bridge's inference backends. Handlers consult the gate before spending
// an attempt budget on a backend that is already known to be down.
package healthgate
