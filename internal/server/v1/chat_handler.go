package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/attachment"
	"github.com/mxl4r/Prism-LLM-frontend/internal/gateway"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
	"github.com/mxl4r/Prism-LLM-frontend/internal/server/validator"
	"github.com/mxl4r/Prism-LLM-frontend/pkg/api"
)

type ChatHandler struct {
	service   gateway.Service
	validator *validator.Validator
	logger    *zap.Logger
}

func NewChatHandler(service gateway.Service, v *validator.Validator, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service:   service,
		validator: v,
		logger:    logger,
	}
}

// Stream relays the selected model's reply as server-sent events. Each event
// carries an api.StreamChunk; the stream always ends with "data: [DONE]".
//
// POST /v1/chat/stream
func (h *ChatHandler) Stream(c *gin.Context) {
	var req api.ChatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(h.validator.ParseError(err)))
		return
	}

	attachments := make([]llm.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		normalized, err := attachment.Normalize(llm.Attachment{
			ID:       a.ID,
			Kind:     a.Type,
			Data:     a.Data,
			MIMEType: a.MIMEType,
		})
		if err != nil {
			_ = c.Error(problemFor(err))
			return
		}
		attachments = append(attachments, normalized)
	}

	// errors raised before the first byte still get a proper status code
	stream, err := h.service.StreamMessage(c.Request.Context(), llm.ModelID(req.Model), req.Prompt, attachments)
	if err != nil {
		_ = c.Error(problemFor(err))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		result, ok := <-stream
		if !ok {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", api.StreamDone)
			return false
		}

		chunk := api.StreamChunk{Content: result.Fragment}
		if result.Err != nil {
			h.logger.Warn("Chat stream failed",
				zap.String("model", req.Model),
				zap.Error(result.Err))
			chunk = api.StreamChunk{Error: streamError(result.Err)}
		}

		data, err := json.Marshal(chunk)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		// the producer closes the channel right after an error, so the next
		// receive writes the terminator
		return true
	})
}
