package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	"github.com/mxl4r/Prism-LLM-frontend/internal/httpclient"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	defaultVersion   = "2023-06-01"
	defaultMaxTokens = 1024
)

func init() {
	llm.Register(llm.Anthropic, NewAdapter)
}

type Adapter struct {
	config config.ProviderConfig
	client httpclient.HTTPClient
	log    *zap.Logger
}

func NewAdapter(cfg config.ProviderConfig, log *zap.Logger) (llm.Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = defaultVersion
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		config: cfg,
		client: httpclient.NewStreamingClient(cfg.ResponseHeaderTimeout),
		log:    log.With(zap.String("provider", llm.Anthropic.String())),
	}, nil
}

func (a *Adapter) Kind() llm.Kind { return llm.Anthropic }

// toRequest builds one user message: image blocks in attachment order, then the text block.
func (a *Adapter) toRequest(model llm.ModelID, prompt string, attachments []llm.Attachment) Request {
	content := make([]Content, 0, len(attachments)+1)
	for _, att := range attachments {
		if !att.Sendable() {
			continue
		}
		content = append(content, Content{
			Type: "image",
			Source: &ImageSource{
				Type:      "base64",
				MediaType: att.MediaType(),
				Data:      att.Data,
			},
		})
	}
	content = append(content, Content{Type: "text", Text: prompt})

	return Request{
		Model:     string(model),
		Messages:  []Message{{Role: "user", Content: content}},
		MaxTokens: a.config.MaxTokens,
		Stream:    true,
	}
}

func (a *Adapter) Stream(ctx context.Context, model llm.ModelID, prompt string, attachments []llm.Attachment) (<-chan llm.StreamResult, error) {
	if a.config.APIKey == "" {
		return nil, &llm.ProviderError{Provider: llm.Anthropic, Err: llm.ErrMissingCredential}
	}

	req := a.toRequest(model, prompt, attachments)
	url := strings.TrimRight(a.config.BaseURL, "/") + "/messages"
	headers := map[string]string{
		"x-api-key":         a.config.APIKey,
		"anthropic-version": a.config.Version,
	}

	ch := make(chan llm.StreamResult)

	go func() {
		defer close(ch)

		err := httpclient.StreamRequest(ctx, a.client, http.MethodPost, url, headers, req, func(line string) error {
			// "event:" lines repeat the type carried in the data payload.
			data, ok := httpclient.DataPayload(line)
			if !ok {
				return nil
			}

			var event StreamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				a.log.Debug("skipping stream line", zap.Error(&llm.StreamDecodeWarning{Provider: llm.Anthropic, Line: data, Err: err}))
				return nil
			}

			switch event.Type {
			case eventContentBlockDelta:
				if event.Delta == nil || event.Delta.Text == "" {
					return nil
				}
				if !llm.Emit(ctx, ch, llm.StreamResult{Fragment: event.Delta.Text}) {
					return ctx.Err()
				}
			case eventMessageStop:
				return httpclient.ErrStopStream
			case eventError:
				// The only non-delta event that is not skipped: an overloaded
				// API reports it mid-stream and no further deltas follow.
				msg := "stream error"
				if event.Error != nil {
					msg = event.Error.Type + ": " + event.Error.Message
				}
				return &llm.ProviderError{Provider: llm.Anthropic, Err: errors.New(msg)}
			}
			return nil
		})

		if err != nil && ctx.Err() == nil {
			llm.Emit(ctx, ch, llm.StreamResult{Err: a.handleUpstreamError(err)})
		}
	}()

	return ch, nil
}

func (a *Adapter) handleUpstreamError(err error) error {
	var upstreamErr *httpclient.UpstreamError
	if !errors.As(err, &upstreamErr) {
		return llm.NewProviderError(llm.Anthropic, 0, err)
	}

	detail := strings.TrimSpace(string(upstreamErr.Body))
	var resp ErrorResponse
	if jsonErr := json.Unmarshal(upstreamErr.Body, &resp); jsonErr == nil && resp.Error.Message != "" {
		detail = resp.Error.Message
	}

	a.log.Warn("upstream rejected request",
		zap.Int("status", upstreamErr.StatusCode),
		zap.String("url", upstreamErr.URL),
	)

	// Direct browser calls are commonly blocked by CORS, which surfaces as an
	// opaque status with no usable body.
	return &llm.ProviderError{
		Provider:   llm.Anthropic,
		StatusCode: upstreamErr.StatusCode,
		Err:        fmt.Errorf("%s (calls from a browser-hosted client may also fail due to cross-origin restrictions)", detail),
	}
}
