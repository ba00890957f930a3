// Package logger configures structured logging for the media bridge using
// log/slog. Output format and level depend on the runtime environment.
package logger
