package httpclient

import (
	"errors"
	"fmt"
)

// ErrStopStream may be returned by a LineProcessor to end a stream cleanly,
// e.g. on an SSE "[DONE]" sentinel. StreamRequest then returns nil.
var ErrStopStream = errors.New("httpclient: stop stream")

// UpstreamError represents an error returned by an upstream service
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}
