package healthgate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Record is the latest probe result for one service. A fresh probe always
// overwrites the prior record; no history is kept.
type Record struct {
	ServiceName string    `json:"serviceName"`
	CheckedAt   time.Time `json:"checkedAt"`
	Healthy     bool      `json:"healthy"`
	Reason      string    `json:"reason,omitempty"`
	TTLMillis   int64     `json:"ttlMs"`
}

// ProbeOptions configure one health check.
type ProbeOptions struct {
	URL      string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Decision tells the caller whether to attempt the primary backend at all.
type Decision struct {
	Allow  bool
	Reason string
	Health Record
}

// ProbeError describes a failed liveness probe.
type ProbeError struct {
	ServiceName string
	Cause       error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("health probe for %s failed: %v", e.ServiceName, e.Cause)
}

func (e *ProbeError) Unwrap() error { return e.Cause }

// Gate memoizes liveness probes per service name. Concurrent callers that
// race past cache expiry share a single in-flight probe.
type Gate struct {
	mutex   sync.RWMutex
	records map[string]Record
	group   singleflight.Group
	client  *http.Client
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Gate {
	return &Gate{
		records: make(map[string]Record),
		client:  &http.Client{},
		logger:  logger,
	}
}

// Check returns the cached decision for serviceName when the record is still
// inside its TTL window, otherwise probes opts.URL with a bounded timeout and
// overwrites the record with the result.
func (g *Gate) Check(ctx context.Context, serviceName string, opts ProbeOptions) Decision {
	g.mutex.RLock()
	rec, exists := g.records[serviceName]
	g.mutex.RUnlock()

	if exists && time.Since(rec.CheckedAt) < opts.CacheTTL {
		return decisionFor(rec)
	}

	v, _, _ := g.group.Do(serviceName, func() (interface{}, error) {
		// Re-check under the flight: another caller may have refreshed the
		// record while this one waited for the group slot.
		g.mutex.RLock()
		rec, exists := g.records[serviceName]
		g.mutex.RUnlock()
		if exists && time.Since(rec.CheckedAt) < opts.CacheTTL {
			return rec, nil
		}

		rec = g.probe(ctx, serviceName, opts)

		g.mutex.Lock()
		g.records[serviceName] = rec
		g.mutex.Unlock()

		return rec, nil
	})

	return decisionFor(v.(Record))
}

// Snapshot returns the current record for a service, if any.
func (g *Gate) Snapshot(serviceName string) (Record, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	rec, ok := g.records[serviceName]
	return rec, ok
}

func (g *Gate) probe(ctx context.Context, serviceName string, opts ProbeOptions) Record {
	rec := Record{
		ServiceName: serviceName,
		CheckedAt:   time.Now(),
		TTLMillis:   opts.CacheTTL.Milliseconds(),
	}

	probeCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, opts.URL, nil)
	if err != nil {
		rec.Reason = (&ProbeError{ServiceName: serviceName, Cause: err}).Error()
		return rec
	}

	res, err := g.client.Do(req)
	if err != nil {
		rec.Reason = (&ProbeError{ServiceName: serviceName, Cause: err}).Error()
		g.logger.Warn("health probe failed",
			slog.String("service", serviceName),
			slog.String("error", err.Error()))
		return rec
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		rec.Reason = fmt.Sprintf("health-unhealthy:%s", serviceName)
		g.logger.Warn("health probe returned non-2xx",
			slog.String("service", serviceName),
			slog.Int("status", res.StatusCode))
		return rec
	}

	rec.Healthy = true
	return rec
}

func decisionFor(rec Record) Decision {
	d := Decision{Allow: rec.Healthy, Health: rec}
	if !rec.Healthy {
		d.Reason = rec.Reason
	}
	return d
}
