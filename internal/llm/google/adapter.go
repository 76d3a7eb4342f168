package google

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
)

func init() {
	llm.Register(llm.Google, NewAdapter)
}

// Adapter keeps at most one chat session, scoped to the model it was opened
// for. Switching the model drops the session and its history.
type Adapter struct {
	config  config.ProviderConfig
	factory SessionFactory
	log     *zap.Logger

	mu      sync.Mutex
	session *activeSession // nil until the first call after creation or a model switch
}

type activeSession struct {
	model llm.ModelID
	chat  Session
	turn  chan struct{} // one slot: history must stay ordered, so turns run one at a time
}

func NewAdapter(cfg config.ProviderConfig, log *zap.Logger) (llm.Provider, error) {
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = config.DefaultSystemInstruction
	}
	return NewAdapterWithFactory(cfg, newClientFactory(cfg), log), nil
}

// NewAdapterWithFactory builds an adapter over a custom session source.
func NewAdapterWithFactory(cfg config.ProviderConfig, factory SessionFactory, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		config:  cfg,
		factory: factory,
		log:     log.With(zap.String("provider", llm.Google.String())),
	}
}

func (a *Adapter) Kind() llm.Kind { return llm.Google }

// SetModel discards the current session. The next call opens a new one.
func (a *Adapter) SetModel(model llm.ModelID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		a.log.Debug("discarding chat session", zap.String("from", string(a.session.model)), zap.String("to", string(model)))
	}
	a.session = nil
}

// Reset discards the current session, e.g. when a new conversation starts.
func (a *Adapter) Reset() {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
}

// Close releases the underlying client, if the factory holds one.
func (a *Adapter) Close() error {
	a.Reset()
	if c, ok := a.factory.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (a *Adapter) Stream(ctx context.Context, model llm.ModelID, prompt string, attachments []llm.Attachment) (<-chan llm.StreamResult, error) {
	if a.config.APIKey == "" {
		return nil, &llm.ProviderError{Provider: llm.Google, Err: llm.ErrMissingCredential}
	}

	parts, err := buildParts(prompt, attachments)
	if err != nil {
		return nil, err
	}

	sess, err := a.sessionFor(ctx, model)
	if err != nil {
		return nil, llm.NewProviderError(llm.Google, statusOf(err), err)
	}

	ch := make(chan llm.StreamResult)

	go func() {
		defer close(ch)

		// a call queued behind another turn still honours cancellation
		select {
		case sess.turn <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-sess.turn }()

		iter := sess.chat.SendStream(ctx, parts...)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					llm.Emit(ctx, ch, llm.StreamResult{Err: llm.NewProviderError(llm.Google, statusOf(err), err)})
				}
				return
			}

			text := responseText(resp)
			if text == "" {
				continue
			}
			if !llm.Emit(ctx, ch, llm.StreamResult{Fragment: text}) {
				return
			}
		}
	}()

	return ch, nil
}

// sessionFor returns the session for model, opening one when none exists or
// the current one belongs to another model.
func (a *Adapter) sessionFor(ctx context.Context, model llm.ModelID) (*activeSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil && a.session.model == model {
		return a.session, nil
	}

	chat, err := a.factory.NewSession(ctx, model)
	if err != nil {
		return nil, err
	}
	a.log.Debug("opened chat session", zap.String("model", string(model)))
	a.session = &activeSession{model: model, chat: chat, turn: make(chan struct{}, 1)}
	return a.session, nil
}

// buildParts places inline image data before the text part, in attachment order.
func buildParts(prompt string, attachments []llm.Attachment) ([]genai.Part, error) {
	parts := make([]genai.Part, 0, len(attachments)+1)
	for _, att := range attachments {
		if !att.Sendable() {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(att.Data)
		if err != nil {
			return nil, &llm.EncodingError{Name: att.ID, Err: err}
		}
		parts = append(parts, genai.Blob{MIMEType: att.MediaType(), Data: data})
	}
	return append(parts, genai.Text(prompt)), nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func statusOf(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
