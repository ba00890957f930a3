package routing

import (
	"strings"

	"github.com/alabobai/media-bridge/internal/backend"
)

// Routing targets.
const (
	TargetLocal = "local"
	TargetCloud = "cloud"
)

// DefaultLocalModel is used when a chat request asks for "auto".
const DefaultLocalModel = "qwen2.5:14b-instruct-q4_K_M"

// complexTaskKeywords trigger the cloud tier. Matched case-insensitively
// against the last three messages of the conversation.
var complexTaskKeywords = []string{
	"agent swarm", "multi-agent", "parallel agents", "coordinate agents",
	"complex analysis", "deep research", "comprehensive", "thorough investigation",
	"analyze image", "analyze video", "vision", "look at this",
	"step by step plan", "detailed breakdown", "orchestrate",
}

// lengthThreshold is the total conversation length above which the larger
// cloud models are preferred.
const lengthThreshold = 8000

// Request carries the routing inputs for one hybrid chat call.
type Request struct {
	Messages   []backend.ChatMessage
	ForceLocal bool
	ForceCloud bool
}

// Decision is where a hybrid chat request should go and why.
type Decision struct {
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// Router decides between the local model and the cloud tier.
type Router struct {
	cloudConfigured bool
}

func NewRouter(cloudConfigured bool) *Router {
	return &Router{cloudConfigured: cloudConfigured}
}

// Keywords returns a truncated preview of the cloud trigger list, for the
// status endpoint.
func Keywords() []string {
	preview := make([]string, 0, 6)
	preview = append(preview, complexTaskKeywords[:5]...)
	return append(preview, "...")
}

// Decide picks a target. Force flags win, then cloud availability, then the
// keyword scan and the length check.
func (r *Router) Decide(req Request) Decision {
	if req.ForceLocal {
		return Decision{Target: TargetLocal, Reason: "forced-local"}
	}
	if req.ForceCloud {
		return Decision{Target: TargetCloud, Reason: "forced-cloud"}
	}
	if !r.cloudConfigured {
		return Decision{Target: TargetLocal, Reason: "cloud-not-configured"}
	}

	recent := req.Messages
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	var b strings.Builder
	for _, m := range recent {
		b.WriteString(m.Content)
		b.WriteString(" ")
	}
	recentContent := strings.ToLower(b.String())

	for _, keyword := range complexTaskKeywords {
		if strings.Contains(recentContent, keyword) {
			return Decision{Target: TargetCloud, Reason: "complex-task:" + keyword}
		}
	}

	total := 0
	for _, m := range req.Messages {
		total += len(m.Content)
	}
	if total > lengthThreshold {
		return Decision{Target: TargetCloud, Reason: "long-conversation"}
	}

	return Decision{Target: TargetLocal, Reason: "default-local"}
}

// LocalModel resolves the model name for the local tier.
func LocalModel(requested string) string {
	if requested == "" || requested == "auto" {
		return DefaultLocalModel
	}
	return requested
}
