package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
)

const tracerName = "github.com/mxl4r/Prism-LLM-frontend/internal/gateway"

// ErrProviderNotFound is returned when a model resolves to a provider kind
// that has no registered adapter.
var ErrProviderNotFound = errors.New("provider not registered")

// Service routes prompts to the provider that serves the requested model.
type Service interface {
	// StreamMessage selects the provider for model by its family prefix and
	// delegates the call. Unknown families fail with llm.ErrUnsupportedProvider
	// before any network activity.
	StreamMessage(ctx context.Context, model llm.ModelID, prompt string, attachments []llm.Attachment) (<-chan llm.StreamResult, error)

	// SetModel tells stateful providers that the active model changed.
	SetModel(model llm.ModelID)
	// Reset drops provider-held conversation state.
	Reset()

	// Register installs p, replacing any adapter of the same kind.
	Register(p llm.Provider)
	Providers() []llm.Kind

	Close() error
}

type service struct {
	logger  *zap.Logger
	timeout time.Duration
	tracer  trace.Tracer

	mu        sync.RWMutex
	providers map[llm.Kind]llm.Provider
}

// NewService builds a router. A positive timeout bounds every streamed call.
func NewService(logger *zap.Logger, timeout time.Duration) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		logger:    logger,
		timeout:   timeout,
		tracer:    otel.Tracer(tracerName),
		providers: make(map[llm.Kind]llm.Provider),
	}
}

func (s *service) Register(p llm.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.providers[p.Kind()]; exists {
		s.logger.Debug("replacing provider", zap.Stringer("provider", p.Kind()))
	}
	s.providers[p.Kind()] = p
}

func (s *service) Providers() []llm.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kinds := make([]llm.Kind, 0, len(s.providers))
	for k := range s.providers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (s *service) SetModel(model llm.ModelID) {
	for _, p := range s.snapshot() {
		if sw, ok := p.(llm.ModelSwitcher); ok {
			sw.SetModel(model)
		}
	}
}

func (s *service) Reset() {
	for _, p := range s.snapshot() {
		if r, ok := p.(llm.Resetter); ok {
			r.Reset()
		}
	}
}

func (s *service) Close() error {
	var errs []error
	for _, p := range s.snapshot() {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", p.Kind(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (s *service) snapshot() []llm.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p)
	}
	return out
}

// providerFor resolves model to its registered adapter.
func (s *service) providerFor(model llm.ModelID) (llm.Provider, error) {
	kind, err := llm.KindOf(model)
	if err != nil {
		return nil, err
	}

	switch kind {
	case llm.Google, llm.OpenAI, llm.Anthropic:
		s.mu.RLock()
		p, ok := s.providers[kind]
		s.mu.RUnlock()
		if ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s (model %q)", ErrProviderNotFound, kind, model)
}

func (s *service) StreamMessage(ctx context.Context, model llm.ModelID, prompt string, attachments []llm.Attachment) (<-chan llm.StreamResult, error) {
	provider, err := s.providerFor(model)
	if err != nil {
		s.logger.Warn("Provider routing failed for stream", zap.String("model", string(model)), zap.Error(err))
		return nil, err
	}
	kind := provider.Kind()

	parent := ctx
	var callCtx context.Context
	var cancel context.CancelFunc
	if s.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}

	callCtx, span := s.tracer.Start(callCtx, "gateway.StreamMessage", trace.WithAttributes(
		attribute.String("llm.model", string(model)),
		attribute.String("llm.provider", kind.String()),
		attribute.Int("llm.attachments", len(attachments)),
	))

	upstream, err := provider.Stream(callCtx, model, prompt, attachments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		cancel()
		s.logger.Warn("Provider rejected stream",
			zap.String("model", string(model)),
			zap.Stringer("provider", kind),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Debug("Dispatched stream",
		zap.String("model", string(model)),
		zap.Stringer("provider", kind),
		zap.Int("attachments", len(attachments)),
	)

	out := make(chan llm.StreamResult)

	go func() {
		defer close(out)
		defer span.End()
		defer cancel()

		start := time.Now()
		var ttft time.Duration
		var fragments int
		var streamErr error

		for res := range upstream {
			if res.Err != nil {
				streamErr = res.Err
			} else {
				fragments++
				if fragments == 1 {
					ttft = time.Since(start)
				}
			}

			if !llm.Emit(parent, out, res) {
				// Consumer went away; stop the adapter and let it close.
				cancel()
				for range upstream {
				}
				streamErr = parent.Err()
				break
			}
		}

		if streamErr == nil {
			switch {
			case parent.Err() != nil:
				streamErr = parent.Err()
			case errors.Is(callCtx.Err(), context.DeadlineExceeded):
				// Adapters stay silent on cancellation, so the timeout is reported here.
				streamErr = &llm.ProviderError{Provider: kind, Err: fmt.Errorf("request timed out after %s: %w", s.timeout, context.DeadlineExceeded)}
				llm.Emit(parent, out, llm.StreamResult{Err: streamErr})
			}
		}

		latency := time.Since(start)
		span.SetAttributes(attribute.Int("llm.fragments", fragments))

		fields := []zap.Field{
			zap.String("model", string(model)),
			zap.Stringer("provider", kind),
			zap.Int("fragments", fragments),
			zap.Duration("latency", latency),
			zap.Duration("ttft", ttft),
		}
		if streamErr != nil {
			span.RecordError(streamErr)
			span.SetStatus(codes.Error, streamErr.Error())
			s.logger.Warn("Stream ended with error", append(fields, zap.Error(streamErr))...)
			return
		}
		s.logger.Info("Stream completed", fields...)
	}()

	return out, nil
}
