package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Health serves GET /health.
func (b *Bridge) Health(w http.ResponseWriter, r *http.Request) {
	b.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// LocalAIStatus serves GET /api/local-ai/status: a live look at the local
// model daemon plus the gateway's breaker and health-probe state.
func (b *Bridge) LocalAIStatus(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "healthy"
	ollama := map[string]any{"connected": true, "latencyMs": 0, "version": "running"}
	names := []string{}

	models, err := b.ollama.Tags(ctx)
	latency := time.Since(started).Milliseconds()
	switch {
	case err != nil:
		status = "degraded"
		ollama = map[string]any{"connected": false, "latencyMs": latency, "error": err.Error()}
	case len(models) == 0:
		status = "degraded"
		ollama["connected"] = false
		ollama["latencyMs"] = latency
	default:
		ollama["latencyMs"] = latency
		for _, m := range models {
			names = append(names, m.Name)
		}
	}

	response := map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": map[string]any{
			"ollama": ollama,
		},
		"models":  names,
		"circuit": b.gateway.Breakers.All(),
	}

	if record, ok := b.gateway.Health.Snapshot("ollama"); ok {
		response["health"] = record
	}

	b.writeJSON(w, http.StatusOK, response)
}

// sizeGB formats a byte count the way the models endpoint reports it.
func sizeGB(size int64) string {
	if size <= 0 {
		return "Unknown"
	}
	return fmt.Sprintf("%.2f GB", float64(size)/(1<<30))
}
