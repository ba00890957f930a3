package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alabobai/media-bridge/config"
	"github.com/alabobai/media-bridge/internal/circuitbreaker"
	"github.com/alabobai/media-bridge/internal/envelope"
	"github.com/alabobai/media-bridge/internal/healthgate"
	"github.com/alabobai/media-bridge/internal/metrics"
	"github.com/alabobai/media-bridge/internal/reliability"
)

// Tier is one stage of a cascade: a keyed operation guarded by its circuit
// breaker and, optionally, a health probe.
type Tier struct {
	// Key identifies the breaker for this tier, e.g. "chat.ollama".
	Key string
	// Service enables the health gate when non-empty.
	Service string
	// Probe configures the health check. Ignored when Service is empty.
	Probe healthgate.ProbeOptions
	// Attempts is the retry budget for this tier.
	Attempts int
	// Fallback names the degraded-envelope identifier when a non-primary
	// tier serves the request. The primary tier leaves it empty.
	Fallback string
	// Run performs the work and returns the response payload.
	Run func(ctx context.Context) (map[string]any, error)
}

// Fallback is the terminal stage of a cascade. Build must not fail.
type Fallback struct {
	Name  string
	Build func() map[string]any
}

// Result is the outcome of a cascade execution.
type Result struct {
	Payload      map[string]any
	ServedBy     string
	Degraded     bool
	AttemptsUsed int
}

// Gateway owns the resilience machinery shared by all routes: the breaker
// registry, the health gate, the retry runner, and the metrics collector.
type Gateway struct {
	Breakers  *circuitbreaker.Registry
	Health    *healthgate.Gate
	runner    *reliability.Runner
	collector *metrics.Collector
	delay     reliability.DelayPolicy
	logger    *slog.Logger
}

func New(cfg config.GatewayConfig, collector *metrics.Collector, logger *slog.Logger) *Gateway {
	breakers := circuitbreaker.NewRegistry(
		cfg.FailureThreshold,
		cfg.SuccessThreshold,
		config.MustDuration(cfg.Cooldown, 0),
	)

	return &Gateway{
		Breakers:  breakers,
		Health:    healthgate.New(logger),
		runner:    reliability.NewRunner(breakers, logger),
		collector: collector,
		delay:     reliability.PolicyFromConfig(cfg.DelayPolicy, config.MustDuration(cfg.DelayBase, 0)),
		logger:    logger,
	}
}

// Execute walks the tiers in order and falls through to the terminal
// fallback. A tier whose service is unhealthy is skipped without touching its
// breaker. The first tier to succeed serves the request; any success past the
// primary tier, and the terminal fallback, are wrapped in a degraded
// envelope.
func (g *Gateway) Execute(ctx context.Context, route string, tiers []Tier, final Fallback) Result {
	var (
		warnings     []string
		attemptsUsed int
		health       *healthgate.Record
	)

	keys := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		keys = append(keys, tier.Key)
	}

	for i, tier := range tiers {
		if tier.Service != "" {
			decision := g.Health.Check(ctx, tier.Service, tier.Probe)
			if i == 0 {
				record := decision.Health
				health = &record
			}
			if !decision.Allow {
				warnings = append(warnings, fmt.Sprintf("%s: %s", tier.Key, decision.Reason))
				g.collector.Emit(metrics.Event{Type: metrics.EventHealthDenied, Route: route, Key: tier.Key, Service: tier.Service})
				g.logger.Info("tier skipped by health gate",
					slog.String("route", route),
					slog.String("key", tier.Key),
					slog.String("reason", decision.Reason))
				continue
			}
		}

		run := tier.Run
		outcome, err := g.runner.Run(ctx, tier.Key, func(ctx context.Context) (any, error) {
			return run(ctx)
		}, reliability.RunOptions{Attempts: tier.Attempts, Delay: g.delay})

		if outcome != nil {
			attemptsUsed += outcome.AttemptsUsed
			g.collector.Emit(metrics.Event{Type: metrics.EventAttempt, Route: route, Key: tier.Key, Attempts: outcome.AttemptsUsed})
		}

		if err != nil {
			var open *reliability.CircuitOpenError
			if errors.As(err, &open) {
				g.collector.Emit(metrics.Event{Type: metrics.EventCircuitBlocked, Route: route, Key: tier.Key})
			}
			warnings = append(warnings, fmt.Sprintf("%s: %s", tier.Key, err.Error()))
			g.logger.Warn("tier failed",
				slog.String("route", route),
				slog.String("key", tier.Key),
				slog.String("error", err.Error()))
			continue
		}

		payload, ok := outcome.Value.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: unexpected payload type", tier.Key))
			continue
		}

		if i == 0 {
			g.collector.Emit(metrics.Event{Type: metrics.EventTierServed, Route: route, Key: tier.Key})
			return Result{Payload: payload, ServedBy: tier.Key, AttemptsUsed: attemptsUsed}
		}

		g.collector.Emit(metrics.Event{Type: metrics.EventTierServed, Route: route, Key: tier.Key, Fallback: tier.Fallback})
		return Result{
			Payload: envelope.Degraded(payload, envelope.Meta{
				Route:        route,
				Warning:      strings.Join(warnings, "; "),
				Fallback:     tier.Fallback,
				Circuit:      g.Breakers.Snapshots(keys...),
				Health:       health,
				AttemptsUsed: attemptsUsed,
			}),
			ServedBy:     tier.Key,
			Degraded:     true,
			AttemptsUsed: attemptsUsed,
		}
	}

	g.collector.Emit(metrics.Event{Type: metrics.EventFallbackServed, Route: route, Fallback: final.Name})
	g.logger.Warn("serving terminal fallback",
		slog.String("route", route),
		slog.String("fallback", final.Name))

	warning := "all tiers unavailable"
	if len(warnings) > 0 {
		warning = strings.Join(warnings, "; ")
	}

	return Result{
		Payload: envelope.Degraded(final.Build(), envelope.Meta{
			Route:        route,
			Warning:      warning,
			Fallback:     final.Name,
			Circuit:      g.Breakers.Snapshots(keys...),
			Health:       health,
			AttemptsUsed: attemptsUsed,
		}),
		ServedBy:     final.Name,
		Degraded:     true,
		AttemptsUsed: attemptsUsed,
	}
}

// Observe records a completed request for the metrics snapshot.
func (g *Gateway) Observe(event metrics.Event) {
	g.collector.Emit(event)
}
