package handler

import (
	"net/http"
	"time"
)

// WebhookRoot serves GET /api/webhook.
func (b *Bridge) WebhookRoot(w http.ResponseWriter, r *http.Request) {
	b.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Webhook API is available",
		"routes":  []string{"/api/webhook/test", "/api/webhook/dispatch", "/api/webhook/events"},
	})
}

// WebhookTest serves POST /api/webhook/test.
func (b *Bridge) WebhookTest(w http.ResponseWriter, r *http.Request) {
	b.recordWebhook(w, r, "test")
}

// WebhookDispatch serves POST /api/webhook/dispatch.
func (b *Bridge) WebhookDispatch(w http.ResponseWriter, r *http.Request) {
	b.recordWebhook(w, r, "dispatch")
}

func (b *Bridge) recordWebhook(w http.ResponseWriter, r *http.Request, webhookID string) {
	var payload map[string]any
	if !b.decode(w, r, &payload) {
		return
	}

	event := b.webhooks.Record(webhookID, payload)

	b.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"id":        event.ID,
		"webhookId": webhookID,
		"message":   "Webhook event recorded",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// WebhookEvents serves GET /api/webhook/events.
func (b *Bridge) WebhookEvents(w http.ResponseWriter, r *http.Request) {
	recent := b.webhooks.Recent(20)
	b.writeJSON(w, http.StatusOK, map[string]any{
		"webhookId":    "events",
		"eventCount":   len(recent),
		"recentEvents": recent,
	})
}
