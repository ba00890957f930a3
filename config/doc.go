// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, backend URLs, resilience policy constants
// (failure threshold, cooldown, attempt budgets, retry delay), and health
// probe timing.
package config
