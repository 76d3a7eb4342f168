package api

import "time"

// StreamChunk is the payload of one SSE "data:" line of a chat stream.
// Exactly one of Content or Error is set.
type StreamChunk struct {
	Content string       `json:"content,omitempty"`
	Error   *StreamError `json:"error,omitempty"`
}

type StreamError struct {
	Message    string `json:"message"`
	Provider   string `json:"provider,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

func (e *StreamError) Error() string {
	return e.Message
}

// StreamDone terminates every chat stream.
const StreamDone = "[DONE]"

type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Description string `json:"description"`
	Multimodal  bool   `json:"multimodal"`
}

type ModelList struct {
	Object  string  `json:"object"`
	Data    []Model `json:"data"`
	Default string  `json:"default"`
}

type Health struct {
	Status    string        `json:"status"`
	Version   string        `json:"version"`
	Uptime    string        `json:"uptime"`
	StartedAt time.Time     `json:"started_at"`
	Providers []string      `json:"providers"`
	Update    *UpdateStatus `json:"update,omitempty"`
}

type UpdateStatus struct {
	Latest    string `json:"latest"`
	Available bool   `json:"available"`
}
