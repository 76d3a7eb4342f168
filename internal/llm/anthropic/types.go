package anthropic

type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream"`
}

type Content struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

type ImageSource struct {
	Type      string `json:"type"`       // "base64"
	MediaType string `json:"media_type"` // "image/jpeg"
	Data      string `json:"data"`
}

// StreamEvent is the union of the typed SSE payloads of the Messages API.
// Only the fields this adapter reads are declared.
type StreamEvent struct {
	Type  string    `json:"type"`
	Index int       `json:"index,omitempty"`
	Delta *Delta    `json:"delta,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

type Delta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorResponse is the body of a non-2xx response.
type ErrorResponse struct {
	Type  string   `json:"type"`
	Error APIError `json:"error"`
}

const (
	eventContentBlockDelta = "content_block_delta"
	eventMessageStop       = "message_stop"
	eventError             = "error"
)
