package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedMediaKind is returned for attachments that are not images.
	ErrUnsupportedMediaKind = errors.New("unsupported media kind")
	// ErrMissingCredential is returned when a provider has no API key configured.
	ErrMissingCredential = errors.New("missing credential")
	// ErrUnsupportedProvider is returned when no provider serves a model identifier.
	ErrUnsupportedProvider = errors.New("unsupported model provider")
)

// EncodingError reports a failure to read or encode an attachment.
type EncodingError struct {
	Name string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode attachment %q: %v", e.Name, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// ProviderError is a transport, status or decode failure reported by one backend.
type ProviderError struct {
	Provider   Kind
	StatusCode int // upstream HTTP status, zero when not applicable
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err for provider k. A nil err yields nil.
func NewProviderError(k Kind, status int, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: k, StatusCode: status, Err: err}
}

// StreamDecodeWarning describes one malformed line skipped while decoding a
// stream. It is logged, never returned to callers.
type StreamDecodeWarning struct {
	Provider Kind
	Line     string
	Err      error
}

func (w *StreamDecodeWarning) Error() string {
	return fmt.Sprintf("%s: skipped malformed stream line: %v", w.Provider, w.Err)
}

func (w *StreamDecodeWarning) Unwrap() error { return w.Err }
