package llm

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies one of the supported upstream backends.
type Kind int

const (
	Google Kind = iota + 1
	OpenAI
	Anthropic
)

// Kinds returns every supported provider kind.
func Kinds() []Kind {
	return []Kind{Google, OpenAI, Anthropic}
}

func (k Kind) String() string {
	switch k {
	case Google:
		return "google"
	case OpenAI:
		return "openai"
	case Anthropic:
		return "anthropic"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a configuration name ("google", "openai", "anthropic") to a Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(name, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
}

// ModelID is an opaque model identifier such as "gemini-2.5-flash-latest",
// "gpt-4o" or "claude-3-5-sonnet-latest".
type ModelID string

// family prefixes, matched case-sensitively against the start of a ModelID.
// The ID is not normalized, so the one that selects a provider is the one sent upstream.
var prefixes = []struct {
	prefix string
	kind   Kind
}{
	{"gemini", Google},
	{"veo", Google}, // experimental family served by the same backend
	{"gpt", OpenAI},
	{"chatgpt", OpenAI},
	{"o1", OpenAI},
	{"o3", OpenAI},
	{"o4", OpenAI},
	{"claude", Anthropic},
}

// KindOf resolves the provider that serves model. Unknown families fail with
// ErrUnsupportedProvider; there is no default provider.
func KindOf(model ModelID) (Kind, error) {
	for _, p := range prefixes {
		if strings.HasPrefix(string(model), p.prefix) {
			return p.kind, nil
		}
	}
	return 0, fmt.Errorf("%w: model %q", ErrUnsupportedProvider, model)
}

// MediaImage is the only media kind accepted for attachments.
const MediaImage = "image"

// DefaultImageMIME is assumed for attachments that carry no mime type.
const DefaultImageMIME = "image/jpeg"

// Attachment is an encoded binary resource sent alongside a prompt.
type Attachment struct {
	ID       string `json:"id"`
	Kind     string `json:"type"`
	Data     string `json:"data,omitempty"` // base64, standard encoding
	MIMEType string `json:"mime_type"`
}

// Sendable reports whether the attachment carries a payload. Preview-only
// attachments are a UI concern and are never sent upstream.
func (a Attachment) Sendable() bool {
	return a.Data != ""
}

// MediaType returns the attachment's mime type, or DefaultImageMIME when unset.
func (a Attachment) MediaType() string {
	if a.MIMEType == "" {
		return DefaultImageMIME
	}
	return a.MIMEType
}

// Prompt is one outgoing user turn.
type Prompt struct {
	Model       ModelID
	Text        string
	Attachments []Attachment
}

// StreamResult carries either one text fragment or the terminal error of a stream.
type StreamResult struct {
	Fragment string
	Err      error
}

// Provider is implemented by every backend adapter.
//
// Stream returns an ordered, finite channel of fragments. Failures detected
// before any network I/O are returned directly; failures after the stream
// started arrive as a single StreamResult with Err set, after which the
// channel is closed. Cancelling ctx aborts the underlying transport.
type Provider interface {
	Kind() Kind
	Stream(ctx context.Context, model ModelID, prompt string, attachments []Attachment) (<-chan StreamResult, error)
}

// ModelSwitcher is implemented by providers that keep per-model state.
type ModelSwitcher interface {
	SetModel(model ModelID)
}

// Resetter is implemented by providers that can drop conversation state.
type Resetter interface {
	Reset()
}

// Emit delivers res on ch unless ctx is done first. It reports whether the
// result was delivered.
func Emit(ctx context.Context, ch chan<- StreamResult, res StreamResult) bool {
	select {
	case ch <- res:
		return true
	case <-ctx.Done():
		return false
	}
}
