package conversation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/conversation"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
)

type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) StreamMessage(ctx context.Context, model llm.ModelID, prompt string, attachments []llm.Attachment) (<-chan llm.StreamResult, error) {
	args := m.Called(ctx, model, prompt, attachments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan llm.StreamResult), args.Error(1)
}

func (m *MockRouter) SetModel(model llm.ModelID) { m.Called(model) }
func (m *MockRouter) Reset()                     { m.Called() }

func results(items ...llm.StreamResult) <-chan llm.StreamResult {
	ch := make(chan llm.StreamResult, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return ch
}

func TestSend_AccumulatesFragments(t *testing.T) {
	router := new(MockRouter)
	router.On("StreamMessage", mock.Anything, llm.ModelID("gpt-4o"), "Hello", mock.Anything).
		Return(results(llm.StreamResult{Fragment: "Hi"}, llm.StreamResult{Fragment: " there"}, llm.StreamResult{Fragment: "!"}), nil)

	conv := conversation.New(router, "gpt-4o", zap.NewNop())

	var updates []string
	reply, err := conv.Send(context.Background(), "", "Hello", nil, func(m conversation.Message) {
		updates = append(updates, m.Content)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hi", "Hi there", "Hi there!"}, updates)
	assert.Equal(t, "Hi there!", reply.Content)
	assert.Equal(t, conversation.Model, reply.Role)

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.User, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, "Hi there!", msgs[1].Content)
	assert.False(t, conv.Streaming())
}

func TestSend_ErrorKeepsPartialAndAppendsErrorTurn(t *testing.T) {
	router := new(MockRouter)
	cause := &llm.ProviderError{Provider: llm.Anthropic, StatusCode: 529, Err: errors.New("overloaded")}
	router.On("StreamMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(results(llm.StreamResult{Fragment: "Par"}, llm.StreamResult{Fragment: "tial"}, llm.StreamResult{Err: cause}), nil)

	conv := conversation.New(router, "claude-3-5-sonnet-latest", zap.NewNop())

	msg, err := conv.Send(context.Background(), "", "Hi", nil, nil)
	assert.ErrorIs(t, err, cause)
	assert.True(t, msg.IsError)

	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Partial", msgs[1].Content)
	assert.False(t, msgs[1].IsError)
	assert.True(t, msgs[2].IsError)
	assert.Equal(t, "Error (claude-3-5-sonnet-latest): anthropic: status 529: overloaded", msgs[2].Content)
}

func TestSend_RoutingFailure(t *testing.T) {
	router := new(MockRouter)
	router.On("StreamMessage", mock.Anything, llm.ModelID("llama-3"), mock.Anything, mock.Anything).
		Return(nil, llm.ErrUnsupportedProvider)

	conv := conversation.New(router, "gpt-4o", zap.NewNop())

	_, err := conv.Send(context.Background(), "llama-3", "Hi", nil, nil)
	assert.ErrorIs(t, err, llm.ErrUnsupportedProvider)

	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	assert.Empty(t, msgs[1].Content)
	assert.Equal(t, "Error (llama-3): unsupported model provider", msgs[2].Content)
}

func TestSend_Busy(t *testing.T) {
	router := new(MockRouter)
	upstream := make(chan llm.StreamResult)
	router.On("StreamMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return((<-chan llm.StreamResult)(upstream), nil).Once()

	conv := conversation.New(router, "gpt-4o", zap.NewNop())

	started := make(chan struct{})
	done := make(chan error)
	go func() {
		_, err := conv.Send(context.Background(), "", "first", nil, func(conversation.Message) {
			select {
			case <-started:
			default:
				close(started)
			}
		})
		done <- err
	}()

	upstream <- llm.StreamResult{Fragment: "..."}
	<-started

	_, err := conv.Send(context.Background(), "", "second", nil, nil)
	assert.ErrorIs(t, err, conversation.ErrBusy)
	assert.ErrorIs(t, conv.Reset(), conversation.ErrBusy)

	close(upstream)
	require.NoError(t, <-done)
	router.AssertNumberOfCalls(t, "StreamMessage", 1)
}

func TestSend_CancelKeepsPartialWithoutErrorTurn(t *testing.T) {
	router := new(MockRouter)
	router.On("StreamMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(results(llm.StreamResult{Fragment: "half"}), nil)

	conv := conversation.New(router, "gpt-4o", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg, err := conv.Send(ctx, "", "Hi", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "half", msg.Content)
	assert.Len(t, conv.Messages(), 2)
}

func TestTitle(t *testing.T) {
	router := new(MockRouter)
	router.On("StreamMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(results(), nil)

	conv := conversation.New(router, "gpt-4o", zap.NewNop())
	long := strings.Repeat("é", 31)
	_, err := conv.Send(context.Background(), "", long, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 30)+"...", conv.Title())

	router2 := new(MockRouter)
	router2.On("StreamMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(results(), nil)
	short := conversation.New(router2, "gpt-4o", zap.NewNop())
	_, err = short.Send(context.Background(), "", "Quick question", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Quick question", short.Title())
}

func TestSetModelAndReset(t *testing.T) {
	router := new(MockRouter)
	router.On("SetModel", llm.ModelID("gemini-3-pro-preview")).Once()
	router.On("Reset").Once()
	router.On("StreamMessage", mock.Anything, llm.ModelID("gemini-3-pro-preview"), mock.Anything, mock.Anything).
		Return(results(llm.StreamResult{Fragment: "ok"}), nil)

	conv := conversation.New(router, "gemini-2.5-flash-latest", zap.NewNop())
	conv.SetModel("gemini-3-pro-preview")
	assert.Equal(t, llm.ModelID("gemini-3-pro-preview"), conv.Model())

	_, err := conv.Send(context.Background(), "", "Hi", nil, nil)
	require.NoError(t, err)

	oldID := conv.ID()
	require.NoError(t, conv.Reset())
	assert.NotEqual(t, oldID, conv.ID())
	assert.Empty(t, conv.Messages())
	assert.Empty(t, conv.Title())

	router.AssertExpectations(t)
}
