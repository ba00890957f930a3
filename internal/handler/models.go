package handler

import (
	"context"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type modelRequest struct {
	Model string `json:"model"`
}

func (r modelRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Model, validation.Required),
	)
}

// ListModels serves GET /api/local-ai/models. A dead daemon yields an empty
// list rather than an error, so clients can always render.
func (b *Bridge) ListModels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	models, err := b.ollama.Tags(ctx)
	if err != nil {
		b.writeJSON(w, http.StatusOK, map[string]any{"models": []any{}})
		return
	}

	out := make([]map[string]any, 0, len(models))
	for _, m := range models {
		out = append(out, map[string]any{
			"name":     m.Name,
			"size":     sizeGB(m.Size),
			"modified": m.ModifiedAt,
			"digest":   m.Digest,
			"details": map[string]any{
				"family":             orUnknown(m.Details.Family),
				"parameter_size":     orUnknown(m.Details.ParameterSize),
				"quantization_level": orUnknown(m.Details.QuantizationLevel),
			},
		})
	}

	b.writeJSON(w, http.StatusOK, map[string]any{"models": out})
}

// PullModel serves POST /api/local-ai/models.
func (b *Bridge) PullModel(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if !b.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		b.writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := b.ollama.Pull(ctx, req.Model); err != nil {
		b.writeError(w, http.StatusBadGateway, "Failed to pull model")
		return
	}

	b.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// DeleteModel serves DELETE /api/local-ai/models.
func (b *Bridge) DeleteModel(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if !b.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		b.writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := b.ollama.Delete(ctx, req.Model); err != nil {
		b.writeError(w, http.StatusBadGateway, "Failed to delete model")
		return
	}

	b.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
