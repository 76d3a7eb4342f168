package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mxl4r/Prism-LLM-frontend/internal/attachment"
	"github.com/mxl4r/Prism-LLM-frontend/pkg/api"
)

const attachmentField = "file"

type AttachmentHandler struct {
	encoder *attachment.Encoder
}

func NewAttachmentHandler(encoder *attachment.Encoder) *AttachmentHandler {
	return &AttachmentHandler{encoder: encoder}
}

// Upload encodes a multipart image upload into an attachment the chat
// endpoint accepts as-is.
//
// POST /v1/attachments
func (h *AttachmentHandler) Upload(c *gin.Context) {
	header, err := c.FormFile(attachmentField)
	if err != nil {
		_ = c.Error(api.ValidationError(map[string]string{attachmentField: "a file upload is required"}))
		return
	}

	f, err := header.Open()
	if err != nil {
		_ = c.Error(api.InternalError("Failed to open upload", err))
		return
	}
	defer f.Close()

	encoded, err := h.encoder.Encode(c.Request.Context(), attachment.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      f,
	})
	if err != nil {
		_ = c.Error(problemFor(err))
		return
	}

	c.JSON(http.StatusCreated, api.Attachment{
		ID:       encoded.ID,
		Type:     encoded.Kind,
		Data:     encoded.Data,
		MIMEType: encoded.MIMEType,
	})
}
