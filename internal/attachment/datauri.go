package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
)

// DataURI renders an attachment as data:<mime>;base64,<payload>.
// An empty mime type falls back to llm.DefaultImageMIME.
func DataURI(a llm.Attachment) string {
	return "data:" + a.MediaType() + ";base64," + a.Data
}

// ParseDataURI splits a base64 data URI into its media type and payload.
func ParseDataURI(uri string) (mediaType, data string, err error) {
	meta, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(meta, "data:") {
		return "", "", errors.New("invalid data URI")
	}

	parts := strings.Split(strings.TrimPrefix(meta, "data:"), ";")
	mediaType = parts[0]

	isBase64 := false
	for _, p := range parts[1:] {
		if p == "base64" {
			isBase64 = true
			break
		}
	}
	if !isBase64 {
		return "", "", errors.New("only base64 data URIs are supported")
	}
	return mediaType, payload, nil
}

// Normalize checks an attachment that arrived already encoded, e.g. from a
// browser. A data URI in Data is unpacked; an empty MIMEType is taken from it.
// Attachments without data are preview-only and pass through untouched.
func Normalize(a llm.Attachment) (llm.Attachment, error) {
	if a.Data == "" {
		return a, nil
	}

	if strings.HasPrefix(a.Data, "data:") {
		mediaType, payload, err := ParseDataURI(a.Data)
		if err != nil {
			return a, &llm.EncodingError{Name: a.ID, Err: err}
		}
		if a.MIMEType == "" {
			a.MIMEType = mediaType
		}
		a.Data = payload
	}

	if a.Kind == "" {
		a.Kind = llm.MediaImage
	}
	a.MIMEType = stripParams(a.MIMEType)
	if a.Kind != llm.MediaImage || (a.MIMEType != "" && !isImage(a.MIMEType)) {
		return a, fmt.Errorf("%s: %w: %s", a.ID, llm.ErrUnsupportedMediaKind, a.MIMEType)
	}

	if _, err := base64.StdEncoding.DecodeString(a.Data); err != nil {
		return a, &llm.EncodingError{Name: a.ID, Err: fmt.Errorf("invalid base64 payload: %w", err)}
	}
	return a, nil
}
