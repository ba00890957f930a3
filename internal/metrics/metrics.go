package metrics

import (
	"sort"
	"sync"
	"time"
)

// Metrics aggregates gateway activity: requests and latency per route,
// attempts and failures per operation key, fallback strategies served,
// health denials per service.
type Metrics struct {
	mutex          sync.RWMutex
	requests       map[string]int64
	durations      map[string][]time.Duration
	attempts       map[string]int64
	circuitBlocked map[string]int64
	tiersServed    map[string]int64
	fallbacks      map[string]int64
	healthDenied   map[string]int64
	startTime      time.Time
}

type Snapshot struct {
	TotalRequests  int64                   `json:"total_requests"`
	Uptime         time.Duration           `json:"uptime"`
	Routes         map[string]RouteMetrics `json:"routes"`
	Attempts       map[string]int64        `json:"attempts"`
	CircuitBlocked map[string]int64        `json:"circuit_blocked"`
	TiersServed    map[string]int64        `json:"tiers_served"`
	Fallbacks      map[string]int64        `json:"fallbacks"`
	HealthDenied   map[string]int64        `json:"health_denied"`
}

type RouteMetrics struct {
	Requests    int64         `json:"requests"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:       make(map[string]int64),
		durations:      make(map[string][]time.Duration),
		attempts:       make(map[string]int64),
		circuitBlocked: make(map[string]int64),
		tiersServed:    make(map[string]int64),
		fallbacks:      make(map[string]int64),
		healthDenied:   make(map[string]int64),
		startTime:      time.Now(),
	}
}

func (m *Metrics) process(event Event) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch event.Type {
	case EventRequestReceived:
		m.requests[event.Route]++
		if event.Duration > 0 {
			m.durations[event.Route] = append(m.durations[event.Route], event.Duration)
			if len(m.durations[event.Route]) > 1000 {
				m.durations[event.Route] = m.durations[event.Route][1:]
			}
		}
	case EventAttempt:
		n := int64(event.Attempts)
		if n <= 0 {
			n = 1
		}
		m.attempts[event.Key] += n
	case EventCircuitBlocked:
		m.circuitBlocked[event.Key]++
	case EventTierServed:
		m.tiersServed[event.Key]++
	case EventFallbackServed:
		m.fallbacks[event.Fallback]++
	case EventHealthDenied:
		m.healthDenied[event.Service]++
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:         time.Since(m.startTime),
		Routes:         make(map[string]RouteMetrics, len(m.requests)),
		Attempts:       copyCounts(m.attempts),
		CircuitBlocked: copyCounts(m.circuitBlocked),
		TiersServed:    copyCounts(m.tiersServed),
		Fallbacks:      copyCounts(m.fallbacks),
		HealthDenied:   copyCounts(m.healthDenied),
	}

	for route, count := range m.requests {
		snap.TotalRequests += count

		rm := RouteMetrics{Requests: count}
		durations := m.durations[route]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			rm.AvgResponse = average(sorted)
			rm.P50Response = percentile(sorted, 0.50)
			rm.P95Response = percentile(sorted, 0.95)
			rm.P99Response = percentile(sorted, 0.99)
		}

		snap.Routes[route] = rm
	}

	return snap
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
