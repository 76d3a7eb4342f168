package httpclient_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mxl4r/Prism-LLM-frontend/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamRequest_StopsOnSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Key"))
		fmt.Fprint(w, "data: one\n\n: keep-alive\ndata: two\n\ndata: [DONE]\ndata: never\n")
	}))
	defer server.Close()

	var got []string
	err := httpclient.StreamRequest(context.Background(), server.Client(), http.MethodPost, server.URL,
		map[string]string{"X-Key": "secret"}, map[string]string{"q": "hi"},
		func(line string) error {
			payload, ok := httpclient.DataPayload(line)
			if !ok {
				return nil
			}
			if payload == "[DONE]" {
				return httpclient.ErrStopStream
			}
			got = append(got, payload)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestStreamRequest_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer server.Close()

	err := httpclient.StreamRequest(context.Background(), server.Client(), http.MethodPost, server.URL, nil, nil,
		func(string) error { return nil })

	var upstream *httpclient.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode)
	assert.Contains(t, string(upstream.Body), "bad key")
}

func TestStreamRequest_ProcessorErrorAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: a\ndata: b\n")
	}))
	defer server.Close()

	boom := errors.New("boom")
	calls := 0
	err := httpclient.StreamRequest(context.Background(), server.Client(), http.MethodPost, server.URL, nil, nil,
		func(string) error {
			calls++
			return boom
		})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestStreamRequest_LongLine(t *testing.T) {
	long := strings.Repeat("x", 200<<10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "data: %s\n", long)
	}))
	defer server.Close()

	var size int
	err := httpclient.StreamRequest(context.Background(), server.Client(), http.MethodPost, server.URL, nil, nil,
		func(line string) error {
			payload, _ := httpclient.DataPayload(line)
			size = len(payload)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, len(long), size)
}

func TestSendRequest_DecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"status":"ok"}`)
	}))
	defer server.Close()

	var out struct {
		Status string `json:"status"`
	}
	err := httpclient.SendRequest(context.Background(), server.Client(), http.MethodGet, server.URL, nil, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Status)
}

func TestNewStreamingClient_HeaderTimeout(t *testing.T) {
	client := httpclient.NewStreamingClient(2 * time.Second)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, transport.ResponseHeaderTimeout)
	assert.Zero(t, client.Timeout)
}

func TestDataPayload(t *testing.T) {
	p, ok := httpclient.DataPayload("data:{\"a\":1}")
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, p)

	_, ok = httpclient.DataPayload("event: message_start")
	assert.False(t, ok)
}
