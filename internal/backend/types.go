package backend

// ChatMessage is one turn of a conversation, in the role/content shape
// shared by Ollama and OpenAI-compatible APIs.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelDetails mirrors the details block of an Ollama tags entry.
type ModelDetails struct {
	Family            string `json:"family"`
	ParameterSize     string `json:"parameter_size"`
	QuantizationLevel string `json:"quantization_level"`
}

// Model describes one locally installed model.
type Model struct {
	Name       string       `json:"name"`
	Size       int64        `json:"size"`
	ModifiedAt string       `json:"modified_at"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details"`
}
