package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/alabobai/media-bridge/config"
	"github.com/alabobai/media-bridge/internal/backend"
	"github.com/alabobai/media-bridge/internal/fallback"
	"github.com/alabobai/media-bridge/internal/gateway"
	"github.com/alabobai/media-bridge/internal/routing"
)

type chatRequest struct {
	Messages    []backend.ChatMessage `json:"messages"`
	Model       string                `json:"model"`
	Temperature float64               `json:"temperature"`
	Stream      bool                  `json:"stream"`
}

func (r chatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Messages, validation.Required),
		validation.Field(&r.Temperature, validation.Min(0.0), validation.Max(2.0)),
	)
}

func lastUserPrompt(messages []backend.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}

// Chat serves POST /api/chat: local model first, then the free hosted text
// service, then a canned template. Optional SSE streaming.
func (b *Bridge) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !b.decode(w, r, &req) {
		return
	}
	req.Temperature = defaultTemperature(req.Temperature)
	if err := req.Validate(); err != nil {
		b.writeError(w, http.StatusBadRequest, "messages is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.MustDuration(b.cfg.Backends.Ollama.Timeout, 3*time.Minute))
	defer cancel()

	model := routing.LocalModel(req.Model)
	prompt := lastUserPrompt(req.Messages)

	result := b.gateway.Execute(ctx, "/api/chat", []gateway.Tier{
		{
			Key:      "chat.ollama",
			Service:  "ollama",
			Probe:    b.probe(b.ollama.HealthURL()),
			Attempts: b.cfg.Gateway.ChatAttempts,
			Run: func(ctx context.Context) (map[string]any, error) {
				content, err := b.ollama.Chat(ctx, req.Messages, model, req.Temperature)
				if err != nil {
					return nil, err
				}
				return map[string]any{"content": content}, nil
			},
		},
		{
			Key:      "chat.pollinations",
			Attempts: 1,
			Fallback: fallback.NamePollinationsText,
			Run: func(ctx context.Context) (map[string]any, error) {
				content, err := b.pollinations.Text(ctx, prompt)
				if err != nil {
					return nil, err
				}
				return map[string]any{"content": content}, nil
			},
		},
	}, gateway.Fallback{
		Name: fallback.NameTemplateResponse,
		Build: func() map[string]any {
			return map[string]any{"content": fallback.ChatTemplate, "degraded": true}
		},
	})

	if req.Stream {
		content, _ := result.Payload["content"].(string)
		b.streamTokens(w, content)
		return
	}

	b.writeJSON(w, http.StatusOK, result.Payload)
}

// streamTokens replays the content word by word as server-sent events,
// matching the shape streaming clients already consume.
func (b *Bridge) streamTokens(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for _, word := range strings.Split(content, " ") {
		token, err := json.Marshal(map[string]string{"token": word})
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", token)
		if flusher != nil {
			flusher.Flush()
		}
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

func defaultTemperature(t float64) float64 {
	if t == 0 {
		return 0.7
	}
	return t
}
