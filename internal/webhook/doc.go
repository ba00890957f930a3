// Package webhook keeps a bounded in-memory log of webhook deliveries for
// local development and debugging. Nothing is persisted.
package webhook
