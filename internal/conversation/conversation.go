// Package conversation keeps the message list of one chat and drives the
// router for each user turn.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
)

// ErrBusy is returned when a turn is sent while another is still streaming.
var ErrBusy = errors.New("a response is still streaming")

const titleRunes = 30

type Role string

const (
	User  Role = "user"
	Model Role = "model"
)

type Message struct {
	ID          string           `json:"id"`
	Role        Role             `json:"role"`
	Content     string           `json:"content"`
	Attachments []llm.Attachment `json:"attachments,omitempty"`
	Model       llm.ModelID      `json:"model,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
	IsError     bool             `json:"is_error,omitempty"`
}

// Router is the part of the AI service a conversation needs.
type Router interface {
	StreamMessage(ctx context.Context, model llm.ModelID, prompt string, attachments []llm.Attachment) (<-chan llm.StreamResult, error)
	SetModel(model llm.ModelID)
	Reset()
}

// Conversation is safe for concurrent use, but only one turn streams at a time.
type Conversation struct {
	router Router
	log    *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	id        string
	title     string
	model     llm.ModelID
	messages  []Message
	streaming bool
	updatedAt time.Time
}

func New(router Router, model llm.ModelID, log *zap.Logger) *Conversation {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Conversation{
		router: router,
		log:    log,
		now:    time.Now,
		id:     uuid.NewString(),
		model:  model,
	}
	c.updatedAt = c.now()
	return c
}

func (c *Conversation) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Title is derived from the first user message; empty until one is sent.
func (c *Conversation) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

func (c *Conversation) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

func (c *Conversation) Model() llm.ModelID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetModel selects the model for subsequent turns and tells the router,
// which drops any provider session bound to the previous model.
func (c *Conversation) SetModel(model llm.ModelID) {
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
	c.router.SetModel(model)
}

// Messages returns a snapshot of the message list.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Reset starts a new conversation: empties the list and drops provider state.
func (c *Conversation) Reset() error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return ErrBusy
	}
	c.id = uuid.NewString()
	c.title = ""
	c.messages = nil
	c.updatedAt = c.now()
	c.mu.Unlock()

	c.router.Reset()
	return nil
}

// Send appends the user turn and an empty model placeholder, then streams
// the reply into the placeholder. onUpdate, when set, receives the
// placeholder with the accumulated text after every fragment, and the error
// message if one is appended. An empty model uses the conversation's model.
//
// On failure the partial reply is kept and a separate message flagged
// IsError is appended; the returned error is the cause.
func (c *Conversation) Send(ctx context.Context, model llm.ModelID, text string, attachments []llm.Attachment, onUpdate func(Message)) (Message, error) {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	c.streaming = true
	if model == "" {
		model = c.model
	}

	now := c.now()
	if len(c.messages) == 0 {
		c.title = deriveTitle(text)
	}
	c.messages = append(c.messages,
		Message{ID: uuid.NewString(), Role: User, Content: text, Attachments: attachments, Timestamp: now},
		Message{ID: uuid.NewString(), Role: Model, Model: model, Timestamp: now},
	)
	placeholder := len(c.messages) - 1
	c.updatedAt = now
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.streaming = false
		c.mu.Unlock()
	}()

	reply, err := c.stream(ctx, model, text, attachments, placeholder, onUpdate)
	if err == nil {
		return reply, nil
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// Stopped by the user; the partial reply stands on its own.
		return reply, err
	}

	c.log.Warn("turn failed", zap.String("model", string(model)), zap.Error(err))
	errMsg := c.appendError(model, err)
	if onUpdate != nil {
		onUpdate(errMsg)
	}
	return errMsg, err
}

func (c *Conversation) stream(ctx context.Context, model llm.ModelID, text string, attachments []llm.Attachment, idx int, onUpdate func(Message)) (Message, error) {
	ch, err := c.router.StreamMessage(ctx, model, text, attachments)
	if err != nil {
		return c.message(idx), err
	}

	var full strings.Builder
	var streamErr error
	for res := range ch {
		if res.Err != nil {
			streamErr = res.Err
			continue
		}
		full.WriteString(res.Fragment)

		c.mu.Lock()
		c.messages[idx].Content = full.String()
		msg := c.messages[idx]
		c.mu.Unlock()

		if onUpdate != nil {
			onUpdate(msg)
		}
	}

	if streamErr == nil {
		streamErr = ctx.Err()
	}
	return c.message(idx), streamErr
}

func (c *Conversation) message(idx int) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[idx]
}

func (c *Conversation) appendError(model llm.ModelID, err error) Message {
	detail := err.Error()
	if detail == "" {
		detail = "Connection failed."
	}
	msg := Message{
		ID:        uuid.NewString(),
		Role:      Model,
		Model:     model,
		Content:   fmt.Sprintf("Error (%s): %s", model, detail),
		Timestamp: c.now(),
		IsError:   true,
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.updatedAt = msg.Timestamp
	c.mu.Unlock()
	return msg
}

func deriveTitle(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= titleRunes {
		return string(runes)
	}
	return string(runes[:titleRunes]) + "..."
}
