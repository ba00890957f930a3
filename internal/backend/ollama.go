package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Ollama is the client for the local inference daemon.
type Ollama struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewOllama(baseURL string, timeout time.Duration, logger *slog.Logger) *Ollama {
	return &Ollama{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// HealthURL is the endpoint the health gate probes. Listing tags doubles as
// a liveness check; the daemon has no dedicated /health route.
func (o *Ollama) HealthURL() string {
	return o.baseURL + "/api/tags"
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []ChatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options"`
}

type ollamaChatResponse struct {
	Message ChatMessage `json:"message"`
}

// Chat runs a non-streaming chat completion. On a non-2xx response it retries
// once with the first installed model, covering the common case where the
// requested model is not pulled on this machine.
func (o *Ollama) Chat(ctx context.Context, messages []ChatMessage, model string, temperature float64) (string, error) {
	if model == "" {
		model = "llama3:latest"
	}

	content, err := o.chatOnce(ctx, messages, model, temperature)
	if err == nil {
		return content, nil
	}

	models, tagsErr := o.Tags(ctx)
	if tagsErr != nil || len(models) == 0 {
		return "", err
	}

	fallbackModel := models[0].Name
	if fallbackModel == "" || fallbackModel == model {
		return "", err
	}

	o.logger.Info("retrying chat with first installed model",
		slog.String("requested", model),
		slog.String("fallback", fallbackModel))

	return o.chatOnce(ctx, messages, fallbackModel, temperature)
}

func (o *Ollama) chatOnce(ctx context.Context, messages []ChatMessage, model string, temperature float64) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{"temperature": temperature},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("ollama chat failed: %d", res.StatusCode)
	}

	var decoded ollamaChatResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	return decoded.Message.Content, nil
}

type ollamaTagsResponse struct {
	Models []Model `json:"models"`
}

// Tags lists the installed models.
func (o *Ollama) Tags(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	res, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("ollama tags failed: %d", res.StatusCode)
	}

	var decoded ollamaTagsResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("ollama tags: %w", err)
	}

	return decoded.Models, nil
}

// Pull downloads a model onto the daemon.
func (o *Ollama) Pull(ctx context.Context, model string) error {
	body, err := json.Marshal(map[string]any{"model": model, "stream": false})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama pull: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("ollama pull failed: %d", res.StatusCode)
	}

	return nil
}

// Delete removes a model from the daemon.
func (o *Ollama) Delete(ctx context.Context, model string) error {
	body, err := json.Marshal(map[string]any{"name": model})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, o.baseURL+"/api/delete", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama delete: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("ollama delete failed: %d", res.StatusCode)
	}

	return nil
}
