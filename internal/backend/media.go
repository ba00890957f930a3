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

// ImageBackend is the client for the local txt2img service, speaking the
// Automatic1111 request shape.
type ImageBackend struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewImageBackend(baseURL string, timeout time.Duration, logger *slog.Logger) *ImageBackend {
	return &ImageBackend{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// HealthURL is the endpoint the health gate probes.
func (b *ImageBackend) HealthURL() string {
	return b.baseURL + "/sdapi/v1/sd-models"
}

type txt2imgRequest struct {
	Prompt   string  `json:"prompt"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Steps    int     `json:"steps"`
	CFGScale float64 `json:"cfg_scale"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

// Txt2Img renders an image and returns it as a PNG data URL.
func (b *ImageBackend) Txt2Img(ctx context.Context, prompt string, width, height int) (string, error) {
	body, err := json.Marshal(txt2imgRequest{
		Prompt:   prompt,
		Width:    width,
		Height:   height,
		Steps:    24,
		CFGScale: 7,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/sdapi/v1/txt2img", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("txt2img: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("txt2img failed: %d", res.StatusCode)
	}

	var decoded txt2imgResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("txt2img: %w", err)
	}

	if len(decoded.Images) == 0 {
		return "", fmt.Errorf("txt2img returned no images")
	}

	return "data:image/png;base64," + decoded.Images[0], nil
}

// VideoBackend is the client for the local text-to-video service.
type VideoBackend struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewVideoBackend(baseURL string, timeout time.Duration, logger *slog.Logger) *VideoBackend {
	return &VideoBackend{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// HealthURL is the endpoint the health gate probes.
func (b *VideoBackend) HealthURL() string {
	return b.baseURL + "/health"
}

type videoGenerateRequest struct {
	Prompt   string `json:"prompt"`
	Duration int    `json:"durationSeconds"`
	FPS      int    `json:"fps"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type videoGenerateResponse struct {
	URL   string `json:"url"`
	Video string `json:"video"`
}

// Generate renders a clip and returns its URL or inline data.
func (b *VideoBackend) Generate(ctx context.Context, prompt string, duration, fps, width, height int) (string, error) {
	body, err := json.Marshal(videoGenerateRequest{
		Prompt:   prompt,
		Duration: duration,
		FPS:      fps,
		Width:    width,
		Height:   height,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("video generate: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("video generate failed: %d", res.StatusCode)
	}

	var decoded videoGenerateResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("video generate: %w", err)
	}

	if decoded.URL != "" {
		return decoded.URL, nil
	}
	if decoded.Video != "" {
		return decoded.Video, nil
	}

	return "", fmt.Errorf("video generate returned no output")
}
