package google

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
)

// ResponseIterator yields streamed chunks until it returns iterator.Done.
type ResponseIterator interface {
	Next() (*genai.GenerateContentResponse, error)
}

// Session is a multi-turn chat bound to one model. Turns must not overlap.
type Session interface {
	SendStream(ctx context.Context, parts ...genai.Part) ResponseIterator
}

// SessionFactory opens chat sessions for a model.
type SessionFactory interface {
	NewSession(ctx context.Context, model llm.ModelID) (Session, error)
}

// clientFactory opens sessions on a genai.Client created on first use.
type clientFactory struct {
	cfg config.ProviderConfig

	mu     sync.Mutex
	client *genai.Client
}

func newClientFactory(cfg config.ProviderConfig) *clientFactory {
	return &clientFactory{cfg: cfg}
}

func (f *clientFactory) NewSession(ctx context.Context, model llm.ModelID) (Session, error) {
	client, err := f.getClient(ctx)
	if err != nil {
		return nil, err
	}

	m := client.GenerativeModel(string(model))
	m.SetTemperature(f.cfg.Temperature)
	if f.cfg.SystemInstruction != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(f.cfg.SystemInstruction)}}
	}

	return &chatSession{chat: m.StartChat()}, nil
}

func (f *clientFactory) getClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil {
		return f.client, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(f.cfg.APIKey)}
	if f.cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(f.cfg.BaseURL))
	}

	// The client outlives the request that created it.
	client, err := genai.NewClient(context.WithoutCancel(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	f.client = client
	return client, nil
}

func (f *clientFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}

type chatSession struct {
	chat *genai.ChatSession
}

func (s *chatSession) SendStream(ctx context.Context, parts ...genai.Part) ResponseIterator {
	return s.chat.SendMessageStream(ctx, parts...)
}
