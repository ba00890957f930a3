// Package envelope assembles the uniform diagnostic wrapper returned when a
// request was served by a fallback path instead of the primary backend. Every
// handler's final fallback branch uses the same builder, so degraded
// responses keep a stable, superset-compatible JSON shape.
package envelope
