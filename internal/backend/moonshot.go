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

// Cloud routing modes, each mapping to a Kimi model variant.
const (
	ModeInstant    = "instant"
	ModeThinking   = "thinking"
	ModeAgent      = "agent"
	ModeAgentSwarm = "agent-swarm"
)

// Moonshot is the client for the Kimi cloud text API, used as the cloud tier
// of the hybrid chat cascade.
type Moonshot struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewMoonshot(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Moonshot {
	return &Moonshot{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Configured reports whether an API key is present. Without one the cloud
// tier is skipped entirely.
func (m *Moonshot) Configured() bool {
	return m.apiKey != ""
}

// Modes lists the supported routing modes.
func Modes() []string {
	return []string{ModeInstant, ModeThinking, ModeAgent, ModeAgentSwarm}
}

func modelForMode(mode string) string {
	switch mode {
	case ModeInstant:
		return "kimi-k2.5"
	case ModeThinking:
		return "kimi-k2.5-thinking"
	case ModeAgent:
		return "kimi-k2.5-agent"
	case ModeAgentSwarm:
		return "kimi-k2.5-agent-swarm"
	default:
		return "kimi-k2.5"
	}
}

type moonshotChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type moonshotChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// Chat runs a chat completion against the cloud API.
func (m *Moonshot) Chat(ctx context.Context, messages []ChatMessage, mode string, temperature float64) (string, error) {
	if !m.Configured() {
		return "", fmt.Errorf("moonshot API key not configured")
	}

	model := modelForMode(mode)
	body, err := json.Marshal(moonshotChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		Stream:      false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	m.logger.Debug("calling cloud chat",
		slog.String("model", model),
		slog.Int("messages", len(messages)))

	res, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("moonshot chat: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("moonshot chat failed: %d", res.StatusCode)
	}

	var decoded moonshotChatResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("moonshot chat: %w", err)
	}

	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("moonshot chat returned no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}
