package handler

import (
	"context"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/alabobai/media-bridge/config"
	"github.com/alabobai/media-bridge/internal/backend"
	"github.com/alabobai/media-bridge/internal/fallback"
	"github.com/alabobai/media-bridge/internal/gateway"
	"github.com/alabobai/media-bridge/internal/routing"
)

type hybridChatRequest struct {
	Messages    []backend.ChatMessage `json:"messages"`
	Model       string                `json:"model"`
	Temperature float64               `json:"temperature"`
	ForceLocal  bool                  `json:"forceLocal"`
	ForceCloud  bool                  `json:"forceCloud"`
	CloudMode   string                `json:"cloudMode"`
}

func (r hybridChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Messages, validation.Required),
		validation.Field(&r.CloudMode, validation.In(
			backend.ModeInstant, backend.ModeThinking, backend.ModeAgent, backend.ModeAgentSwarm,
		)),
	)
}

// HybridChat serves POST /api/hybrid/chat: routes between the local model
// and the cloud tier, each falling back to the other before the canned
// template.
func (b *Bridge) HybridChat(w http.ResponseWriter, r *http.Request) {
	var req hybridChatRequest
	if !b.decode(w, r, &req) {
		return
	}
	req.Temperature = defaultTemperature(req.Temperature)
	if req.CloudMode == "" {
		req.CloudMode = backend.ModeThinking
	}
	if err := req.Validate(); err != nil {
		b.writeError(w, http.StatusBadRequest, "messages is required")
		return
	}

	decision := b.router.Decide(routing.Request{
		Messages:   req.Messages,
		ForceLocal: req.ForceLocal,
		ForceCloud: req.ForceCloud,
	})

	ctx, cancel := context.WithTimeout(r.Context(), config.MustDuration(b.cfg.Backends.Moonshot.Timeout, 5*time.Minute))
	defer cancel()

	model := routing.LocalModel(req.Model)

	localTier := gateway.Tier{
		Key:      "chat.ollama",
		Service:  "ollama",
		Probe:    b.probe(b.ollama.HealthURL()),
		Attempts: b.cfg.Gateway.ChatAttempts,
		Run: func(ctx context.Context) (map[string]any, error) {
			content, err := b.ollama.Chat(ctx, req.Messages, model, req.Temperature)
			if err != nil {
				return nil, err
			}
			return map[string]any{"content": content, "provider": "local"}, nil
		},
	}

	cloudTier := gateway.Tier{
		Key:      "chat.moonshot",
		Attempts: b.cfg.Gateway.ChatAttempts,
		Run: func(ctx context.Context) (map[string]any, error) {
			content, err := b.moonshot.Chat(ctx, req.Messages, req.CloudMode, req.Temperature)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"content":   content,
				"provider":  "kimi-k2.5",
				"cloudMode": req.CloudMode,
			}, nil
		},
	}

	var tiers []gateway.Tier
	if decision.Target == routing.TargetCloud {
		localTier.Fallback = "local-chat"
		tiers = []gateway.Tier{cloudTier, localTier}
	} else {
		tiers = []gateway.Tier{localTier}
		if b.moonshot.Configured() && !req.ForceLocal {
			cloudTier.Fallback = "cloud-chat"
			tiers = append(tiers, cloudTier)
		}
	}

	result := b.gateway.Execute(ctx, "/api/hybrid/chat", tiers, gateway.Fallback{
		Name: fallback.NameTemplateResponse,
		Build: func() map[string]any {
			return map[string]any{
				"response": fallback.HybridTemplate,
				"content":  fallback.HybridTemplate,
				"provider": "none",
			}
		},
	})

	result.Payload["model"] = req.Model
	result.Payload["routing"] = decision
	b.writeJSON(w, http.StatusOK, result.Payload)
}

// HybridStatus serves GET /api/hybrid/status.
func (b *Bridge) HybridStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	available := false
	names := []string{}
	if models, err := b.ollama.Tags(ctx); err == nil {
		available = true
		for _, m := range models {
			names = append(names, m.Name)
		}
	}

	b.writeJSON(w, http.StatusOK, map[string]any{
		"providers": map[string]any{
			"local": map[string]any{
				"available": available,
				"models":    names,
				"url":       b.cfg.Backends.Ollama.URL,
			},
			"cloud": map[string]any{
				"available": b.moonshot.Configured(),
				"provider":  "Moonshot AI",
				"model":     "Kimi K2.5",
				"modes":     backend.Modes(),
			},
		},
		"routing": map[string]any{
			"strategy":            "auto",
			"complexTaskKeywords": routing.Keywords(),
		},
		"circuit": b.gateway.Breakers.Snapshots("chat.ollama", "chat.moonshot"),
	})
}
