package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/attachment"
	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	"github.com/mxl4r/Prism-LLM-frontend/internal/httpclient"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

func init() {
	llm.Register(llm.OpenAI, NewAdapter)
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
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		config: cfg,
		client: httpclient.NewStreamingClient(cfg.ResponseHeaderTimeout),
		log:    log.With(zap.String("provider", llm.OpenAI.String())),
	}, nil
}

func (a *Adapter) Kind() llm.Kind {
	return llm.OpenAI
}

func (a *Adapter) Stream(ctx context.Context, model llm.ModelID, prompt string, attachments []llm.Attachment) (<-chan llm.StreamResult, error) {
	if a.config.APIKey == "" {
		return nil, &llm.ProviderError{Provider: llm.OpenAI, Err: llm.ErrMissingCredential}
	}

	req := buildRequest(model, prompt, attachments)
	url := strings.TrimRight(a.config.BaseURL, "/") + "/chat/completions"

	headers := map[string]string{
		"Authorization": "Bearer " + a.config.APIKey,
	}
	if a.config.Organization != "" {
		headers["OpenAI-Organization"] = a.config.Organization
	}

	ch := make(chan llm.StreamResult)

	go func() {
		defer close(ch)

		err := httpclient.StreamRequest(ctx, a.client, http.MethodPost, url, headers, req, func(line string) error {
			data, ok := httpclient.DataPayload(line)
			if !ok {
				return nil
			}
			if data == "[DONE]" {
				return httpclient.ErrStopStream
			}

			var chunk goopenai.ChatCompletionStreamResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				a.log.Debug("skipping stream line", zap.Error(&llm.StreamDecodeWarning{Provider: llm.OpenAI, Line: data, Err: err}))
				return nil
			}
			if len(chunk.Choices) == 0 {
				// Mid-stream failures arrive as an error object instead of choices.
				if apiErr := decodeAPIError([]byte(data)); apiErr != nil {
					return &llm.ProviderError{Provider: llm.OpenAI, StatusCode: apiErr.HTTPStatusCode, Err: errors.New(apiErr.Message)}
				}
				return nil
			}
			if chunk.Choices[0].Delta.Content == "" {
				return nil
			}

			if !llm.Emit(ctx, ch, llm.StreamResult{Fragment: chunk.Choices[0].Delta.Content}) {
				return ctx.Err()
			}
			return nil
		})

		if err != nil && ctx.Err() == nil {
			llm.Emit(ctx, ch, llm.StreamResult{Err: a.handleUpstreamError(err)})
		}
	}()

	return ch, nil
}

// buildRequest creates a single user message whose content starts with the
// text part followed by one image part per attachment.
func buildRequest(model llm.ModelID, prompt string, attachments []llm.Attachment) goopenai.ChatCompletionRequest {
	parts := []goopenai.ChatMessagePart{
		{Type: goopenai.ChatMessagePartTypeText, Text: prompt},
	}
	for _, att := range attachments {
		if !att.Sendable() {
			continue
		}
		parts = append(parts, goopenai.ChatMessagePart{
			Type:     goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{URL: attachment.DataURI(att)},
		})
	}

	return goopenai.ChatCompletionRequest{
		Model: string(model),
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, MultiContent: parts},
		},
		Stream: true,
	}
}

func (a *Adapter) handleUpstreamError(err error) error {
	var upstreamErr *httpclient.UpstreamError
	if !errors.As(err, &upstreamErr) {
		return llm.NewProviderError(llm.OpenAI, 0, err)
	}

	msg := strings.TrimSpace(string(upstreamErr.Body))
	if apiErr := decodeAPIError(upstreamErr.Body); apiErr != nil && apiErr.Message != "" {
		msg = apiErr.Message
	}
	if msg == "" {
		msg = http.StatusText(upstreamErr.StatusCode)
	}

	a.log.Warn("upstream rejected request",
		zap.Int("status", upstreamErr.StatusCode),
		zap.String("url", upstreamErr.URL),
	)
	return &llm.ProviderError{Provider: llm.OpenAI, StatusCode: upstreamErr.StatusCode, Err: errors.New(msg)}
}

// decodeAPIError parses the standard {"error": {...}} envelope.
func decodeAPIError(body []byte) *goopenai.APIError {
	var resp goopenai.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}
	return resp.Error
}
