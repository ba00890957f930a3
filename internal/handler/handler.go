package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alabobai/media-bridge/config"
	"github.com/alabobai/media-bridge/internal/backend"
	"github.com/alabobai/media-bridge/internal/gateway"
	"github.com/alabobai/media-bridge/internal/healthgate"
	"github.com/alabobai/media-bridge/internal/routing"
	"github.com/alabobai/media-bridge/internal/webhook"
)

// Bridge holds the handlers for every route the media bridge serves.
type Bridge struct {
	gateway      *gateway.Gateway
	ollama       *backend.Ollama
	moonshot     *backend.Moonshot
	image        *backend.ImageBackend
	video        *backend.VideoBackend
	pollinations *backend.Pollinations
	router       *routing.Router
	webhooks     *webhook.Store
	cfg          *config.Config
	logger       *slog.Logger
}

// Deps wires a Bridge. All fields are required except Webhooks, which
// defaults to a fresh store.
type Deps struct {
	Gateway      *gateway.Gateway
	Ollama       *backend.Ollama
	Moonshot     *backend.Moonshot
	Image        *backend.ImageBackend
	Video        *backend.VideoBackend
	Pollinations *backend.Pollinations
	Router       *routing.Router
	Webhooks     *webhook.Store
	Config       *config.Config
	Logger       *slog.Logger
}

func NewBridge(deps Deps) *Bridge {
	if deps.Webhooks == nil {
		deps.Webhooks = webhook.NewStore()
	}
	return &Bridge{
		gateway:      deps.Gateway,
		ollama:       deps.Ollama,
		moonshot:     deps.Moonshot,
		image:        deps.Image,
		video:        deps.Video,
		pollinations: deps.Pollinations,
		router:       deps.Router,
		webhooks:     deps.Webhooks,
		cfg:          deps.Config,
		logger:       deps.Logger,
	}
}

func (b *Bridge) probe(healthURL string) healthgate.ProbeOptions {
	return healthgate.ProbeOptions{
		URL:      healthURL,
		Timeout:  config.MustDuration(b.cfg.Health.ProbeTimeout, 0),
		CacheTTL: config.MustDuration(b.cfg.Health.CacheTTL, 0),
	}
}

func (b *Bridge) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		b.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (b *Bridge) writeError(w http.ResponseWriter, status int, message string) {
	b.writeJSON(w, status, map[string]any{"error": message})
}

func (b *Bridge) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		b.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
