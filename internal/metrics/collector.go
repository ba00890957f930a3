package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestReceived EventType = "request_received"
	EventAttempt         EventType = "attempt"
	EventTierServed      EventType = "tier_served"
	EventFallbackServed  EventType = "fallback_served"
	EventHealthDenied    EventType = "health_denied"
	EventCircuitBlocked  EventType = "circuit_blocked"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Route     string
	Key       string
	Fallback  string
	Service   string
	Duration  time.Duration
	Attempts  int
}

// Collector receives gateway events on a buffered channel and aggregates
// them off the request path. Emission is non-blocking: if the buffer is full
// the event is dropped rather than slowing a request down.
type Collector struct {
	eventCh chan Event
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

// Emit queues an event without blocking.
func (c *Collector) Emit(event Event) {
	if c == nil {
		return
	}
	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("metrics collector started")
	defer c.logger.Info("metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.metrics.process(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.metrics.process(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
