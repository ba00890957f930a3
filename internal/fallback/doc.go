// Package fallback produces the terminal responses of each cascade: canned
// chat text and seeded procedural SVG placeholders for image and video. All
// outputs are deterministic so a degraded bridge still behaves predictably.
package fallback
