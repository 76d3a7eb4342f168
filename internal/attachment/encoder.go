// Package attachment turns user-selected files into base64 payloads that
// every provider adapter can send inline.
package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
)

// sniffLen matches the prefix mimetype inspects by default.
const sniffLen = 3072

// DefaultMaxBytes is used when an Encoder is built with a non-positive limit.
const DefaultMaxBytes int64 = 20 << 20

var ErrTooLarge = errors.New("attachment exceeds size limit")

// File is a raw resource picked by the user. ContentType may be empty, in
// which case the type is sniffed from the content.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

type Encoder struct {
	maxBytes int64
}

func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{maxBytes: maxBytes}
}

// Encode reads f fully and returns it as an image attachment. Non-image
// content fails with llm.ErrUnsupportedMediaKind before the body is read past
// the sniffing prefix. Read failures come back as *llm.EncodingError.
func (e *Encoder) Encode(ctx context.Context, f File) (*llm.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Reader == nil {
		return nil, &llm.EncodingError{Name: f.Name, Err: errors.New("no content")}
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Reader, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &llm.EncodingError{Name: f.Name, Err: err}
	}
	head = head[:n]

	mediaType := resolveType(f.ContentType, head)
	if !isImage(mediaType) {
		return nil, fmt.Errorf("%s: %w: %s", f.Name, llm.ErrUnsupportedMediaKind, mediaType)
	}

	var buf bytes.Buffer
	buf.Write(head)
	if _, err := io.Copy(&buf, io.LimitReader(f.Reader, e.maxBytes-int64(n)+1)); err != nil {
		return nil, &llm.EncodingError{Name: f.Name, Err: err}
	}
	if int64(buf.Len()) > e.maxBytes {
		return nil, &llm.EncodingError{Name: f.Name, Err: fmt.Errorf("%w (%d bytes)", ErrTooLarge, e.maxBytes)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &llm.Attachment{
		ID:       uuid.NewString(),
		Kind:     llm.MediaImage,
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		MIMEType: mediaType,
	}, nil
}

// EncodeFile opens path and encodes it. The declared type is guessed from
// the extension and falls back to sniffing.
func (e *Encoder) EncodeFile(ctx context.Context, path string) (*llm.Attachment, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, &llm.EncodingError{Name: path, Err: err}
	}
	defer func() {
		_ = fh.Close()
	}()

	return e.Encode(ctx, File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Reader:      fh,
	})
}

func resolveType(declared string, head []byte) string {
	if mt := stripParams(declared); mt != "" && mt != "application/octet-stream" {
		return mt
	}
	return stripParams(mimetype.Detect(head).String())
}

func stripParams(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func isImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}
