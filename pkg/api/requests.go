package api

// Attachment is an image sent inline with a prompt. Data holds standard
// base64, or a base64 data URI from which MIMEType is taken when empty.
type Attachment struct {
	ID       string `json:"id"`
	Type     string `json:"type" binding:"omitempty,oneof=image"`
	Data     string `json:"data,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
}

// ChatStreamRequest is the body of POST /v1/chat/stream.
type ChatStreamRequest struct {
	// the model to stream from, e.g. "gpt-4o" or "claude-3-5-sonnet-latest"
	Model string `json:"model" binding:"required,max=128"`

	Prompt string `json:"prompt" binding:"required_without=Attachments"`

	Attachments []Attachment `json:"attachments,omitempty" binding:"max=16,dive"`
}
