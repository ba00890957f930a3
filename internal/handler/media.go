package handler

import (
	"context"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/alabobai/media-bridge/config"
	"github.com/alabobai/media-bridge/internal/fallback"
	"github.com/alabobai/media-bridge/internal/gateway"
)

type imageRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (r imageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Prompt, validation.Required),
		validation.Field(&r.Style, validation.In("", "logo", "hero", "icon")),
	)
}

// enhancePrompt rewrites the prompt for a named style preset.
func enhancePrompt(prompt, style string) string {
	switch style {
	case "logo":
		return "professional minimalist logo, vector style, clean lines, branding, " + prompt
	case "hero":
		return "cinematic hero image, high detail, modern commercial style, " + prompt
	case "icon":
		return "flat icon design, simple composition, transparent background, " + prompt
	default:
		return prompt
	}
}

// GenerateImage serves POST /api/generate-image: local renderer first, then
// the hosted image service, then a deterministic placeholder.
func (b *Bridge) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !b.decode(w, r, &req) {
		return
	}
	if req.Width == 0 {
		req.Width = 512
	}
	if req.Height == 0 {
		req.Height = 512
	}
	if err := req.Validate(); err != nil {
		b.writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.MustDuration(b.cfg.Backends.Image.Timeout, 90*time.Second))
	defer cancel()

	enhanced := enhancePrompt(req.Prompt, req.Style)

	result := b.gateway.Execute(ctx, "/api/generate-image", []gateway.Tier{
		{
			Key:      "image.local",
			Service:  "image",
			Probe:    b.probe(b.image.HealthURL()),
			Attempts: b.cfg.Gateway.MediaAttempts,
			Run: func(ctx context.Context) (map[string]any, error) {
				url, err := b.image.Txt2Img(ctx, enhanced, req.Width, req.Height)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"url":      url,
					"prompt":   enhanced,
					"width":    req.Width,
					"height":   req.Height,
					"backend":  "local-media-inference",
					"fallback": false,
				}, nil
			},
		},
		{
			Key:      "image.pollinations",
			Attempts: 1,
			Fallback: "pollinations-image",
			Run: func(ctx context.Context) (map[string]any, error) {
				return map[string]any{
					"url":      b.pollinations.ImageURL(enhanced, req.Width, req.Height),
					"prompt":   enhanced,
					"width":    req.Width,
					"height":   req.Height,
					"backend":  "pollinations",
					"fallback": true,
				}, nil
			},
		},
	}, gateway.Fallback{
		Name: fallback.NameLocalSVG,
		Build: func() map[string]any {
			return map[string]any{
				"url":      fallback.ImageDataURL(enhanced, req.Width, req.Height),
				"prompt":   enhanced,
				"width":    req.Width,
				"height":   req.Height,
				"backend":  "placeholder",
				"fallback": true,
			}
		},
	})

	b.writeJSON(w, http.StatusOK, result.Payload)
}

type videoRequest struct {
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"durationSeconds"`
	FPS             int    `json:"fps"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
}

func (r videoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Prompt, validation.Required),
		validation.Field(&r.DurationSeconds, validation.Min(1), validation.Max(30)),
	)
}

// GenerateVideo serves POST /api/generate-video: local renderer, then an
// animated placeholder.
func (b *Bridge) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if !b.decode(w, r, &req) {
		return
	}
	if req.DurationSeconds == 0 {
		req.DurationSeconds = 4
	}
	if req.FPS == 0 {
		req.FPS = 12
	}
	if req.Width == 0 {
		req.Width = 512
	}
	if req.Height == 0 {
		req.Height = 512
	}
	if err := req.Validate(); err != nil {
		b.writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.MustDuration(b.cfg.Backends.Video.Timeout, 2*time.Minute))
	defer cancel()

	result := b.gateway.Execute(ctx, "/api/generate-video", []gateway.Tier{
		{
			Key:      "video.local",
			Service:  "video",
			Probe:    b.probe(b.video.HealthURL()),
			Attempts: b.cfg.Gateway.MediaAttempts,
			Run: func(ctx context.Context) (map[string]any, error) {
				url, err := b.video.Generate(ctx, req.Prompt, req.DurationSeconds, req.FPS, req.Width, req.Height)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"url":             url,
					"prompt":          req.Prompt,
					"durationSeconds": req.DurationSeconds,
					"fps":             req.FPS,
					"width":           req.Width,
					"height":          req.Height,
					"backend":         "local-media-inference",
					"fallback":        false,
				}, nil
			},
		},
	}, gateway.Fallback{
		Name: fallback.NameLocalSVG,
		Build: func() map[string]any {
			return map[string]any{
				"url":             fallback.VideoDataURL(req.Prompt, req.DurationSeconds, req.Width, req.Height),
				"prompt":          req.Prompt,
				"durationSeconds": req.DurationSeconds,
				"fps":             req.FPS,
				"width":           req.Width,
				"height":          req.Height,
				"backend":         "placeholder",
				"fallback":        true,
			}
		},
	})

	b.writeJSON(w, http.StatusOK, result.Payload)
}
