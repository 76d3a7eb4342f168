package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/attachment"
	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
	"github.com/mxl4r/Prism-LLM-frontend/internal/server"
	"github.com/mxl4r/Prism-LLM-frontend/internal/version"
	"github.com/mxl4r/Prism-LLM-frontend/pkg/api"
)

// MockService is a mock implementation of gateway.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) StreamMessage(ctx context.Context, model llm.ModelID, prompt string, attachments []llm.Attachment) (<-chan llm.StreamResult, error) {
	args := m.Called(ctx, model, prompt, attachments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan llm.StreamResult), args.Error(1)
}

func (m *MockService) SetModel(model llm.ModelID) { m.Called(model) }
func (m *MockService) Reset()                     { m.Called() }
func (m *MockService) Register(p llm.Provider)    { m.Called(p) }
func (m *MockService) Close() error               { return m.Called().Error(0) }

func (m *MockService) Providers() []llm.Kind {
	return m.Called().Get(0).([]llm.Kind)
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x00, 0x42}, 64)...)

func results(items ...llm.StreamResult) <-chan llm.StreamResult {
	ch := make(chan llm.StreamResult, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return ch
}

func setup(t *testing.T, svc *MockService) (*server.Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		Router: config.RouterConfig{DefaultModel: "gemini-2.5-flash-latest"},
	}
	srv := server.New(cfg, zap.NewNop(), svc, attachment.NewEncoder(1024))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// readEvents returns the payloads of all "data:" lines of an SSE body.
func readEvents(t *testing.T, resp *http.Response) []string {
	t.Helper()
	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
			events = append(events, data)
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func decodeProblem(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	assert.Equal(t, api.ProblemContentType, resp.Header.Get("Content-Type"))
	var problem map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	return problem
}

func TestChatStream_RelaysFragments(t *testing.T) {
	svc := new(MockService)
	_, ts := setup(t, svc)

	svc.On("StreamMessage", mock.Anything, llm.ModelID("gpt-4o"), "Hello", mock.Anything).
		Return(results(llm.StreamResult{Fragment: "Hi"}, llm.StreamResult{Fragment: " there"}), nil)

	resp := postJSON(t, ts.URL+"/v1/chat/stream", api.ChatStreamRequest{Model: "gpt-4o", Prompt: "Hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp)
	require.Len(t, events, 3)
	assert.JSONEq(t, `{"content":"Hi"}`, events[0])
	assert.JSONEq(t, `{"content":" there"}`, events[1])
	assert.Equal(t, api.StreamDone, events[2])
	svc.AssertExpectations(t)
}

func TestChatStream_MidStreamErrorThenDone(t *testing.T) {
	svc := new(MockService)
	_, ts := setup(t, svc)

	upstream := &llm.ProviderError{Provider: llm.Anthropic, StatusCode: 529, Err: assert.AnError}
	svc.On("StreamMessage", mock.Anything, llm.ModelID("claude-3-5-sonnet-latest"), "Hello", mock.Anything).
		Return(results(llm.StreamResult{Fragment: "Par"}, llm.StreamResult{Err: upstream}), nil)

	resp := postJSON(t, ts.URL+"/v1/chat/stream", api.ChatStreamRequest{Model: "claude-3-5-sonnet-latest", Prompt: "Hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := readEvents(t, resp)
	require.Len(t, events, 3)
	assert.JSONEq(t, `{"content":"Par"}`, events[0])

	var chunk api.StreamChunk
	require.NoError(t, json.Unmarshal([]byte(events[1]), &chunk))
	require.NotNil(t, chunk.Error)
	assert.Equal(t, "anthropic", chunk.Error.Provider)
	assert.Equal(t, 529, chunk.Error.StatusCode)
	assert.Empty(t, chunk.Content)

	assert.Equal(t, api.StreamDone, events[2])
}

func TestChatStream_NormalizesDataURIAttachments(t *testing.T) {
	svc := new(MockService)
	_, ts := setup(t, svc)

	svc.On("StreamMessage", mock.Anything, llm.ModelID("gemini-2.5-flash-latest"), "", mock.MatchedBy(func(atts []llm.Attachment) bool {
		return len(atts) == 1 &&
			atts[0].MIMEType == "image/png" &&
			atts[0].Kind == llm.MediaImage &&
			atts[0].Data == "iVBORw0KGgo="
	})).Return(results(llm.StreamResult{Fragment: "A cat."}), nil)

	resp := postJSON(t, ts.URL+"/v1/chat/stream", api.ChatStreamRequest{
		Model:       "gemini-2.5-flash-latest",
		Attachments: []api.Attachment{{ID: "a1", Data: "data:image/png;base64,iVBORw0KGgo="}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"content":"A cat."}`, api.StreamDone}, readEvents(t, resp))
	svc.AssertExpectations(t)
}

func TestChatStream_ValidationError(t *testing.T) {
	svc := new(MockService)
	_, ts := setup(t, svc)

	resp := postJSON(t, ts.URL+"/v1/chat/stream", map[string]any{"prompt": "Hello"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	problem := decodeProblem(t, resp)
	assert.Equal(t, "Validation Error", problem["title"])
	fields, ok := problem["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "model")
	svc.AssertNotCalled(t, "StreamMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChatStream_RejectsNonImageAttachment(t *testing.T) {
	svc := new(MockService)
	_, ts := setup(t, svc)

	resp := postJSON(t, ts.URL+"/v1/chat/stream", api.ChatStreamRequest{
		Model:       "gpt-4o",
		Prompt:      "Read this",
		Attachments: []api.Attachment{{ID: "a1", Data: "JVBERi0=", MIMEType: "application/pdf"}},
	})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	svc.AssertNotCalled(t, "StreamMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChatStream_ErrorsBeforeFirstByte(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unsupported model", llm.ErrUnsupportedProvider, http.StatusBadRequest},
		{"missing credential", &llm.ProviderError{Provider: llm.OpenAI, Err: llm.ErrMissingCredential}, http.StatusServiceUnavailable},
		{"encoding failure", &llm.EncodingError{Name: "a1", Err: assert.AnError}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			_, ts := setup(t, svc)

			svc.On("StreamMessage", mock.Anything, llm.ModelID("gpt-4o"), "Hello", mock.Anything).Return(nil, tt.err)

			resp := postJSON(t, ts.URL+"/v1/chat/stream", api.ChatStreamRequest{Model: "gpt-4o", Prompt: "Hello"})
			assert.Equal(t, tt.status, resp.StatusCode)
			problem := decodeProblem(t, resp)
			assert.Equal(t, "/v1/chat/stream", problem["instance"])
		})
	}
}

func TestListModels(t *testing.T) {
	svc := new(MockService)
	_, ts := setup(t, svc)

	resp, err := http.Get(ts.URL + "/v1/models")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list api.ModelList
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, "list", list.Object)
	assert.Equal(t, "gemini-2.5-flash-latest", list.Default)
	assert.NotEmpty(t, list.Data)
}

func TestListModels_FilterByProvider(t *testing.T) {
	svc := new(MockService)
	_, ts := setup(t, svc)

	resp, err := http.Get(ts.URL + "/v1/models?provider=anthropic")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list api.ModelList
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.NotEmpty(t, list.Data)
	for _, m := range list.Data {
		assert.Equal(t, "anthropic", m.Provider)
	}

	bad, err := http.Get(ts.URL + "/v1/models?provider=mistral")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestHealth(t *testing.T) {
	svc := new(MockService)
	srv, ts := setup(t, svc)

	svc.On("Providers").Return([]llm.Kind{llm.Google, llm.OpenAI})
	srv.SetUpdate(&version.Update{Current: "v0.0.0", Latest: "v1.2.0", Available: true})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health api.Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, []string{"google", "openai"}, health.Providers)
	require.NotNil(t, health.Update)
	assert.True(t, health.Update.Available)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func upload(t *testing.T, url, name string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post(url, w.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestUploadAttachment(t *testing.T) {
	svc := new(MockService)
	_, ts := setup(t, svc)

	resp := upload(t, ts.URL+"/v1/attachments", "shot.png", pngBytes)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var att api.Attachment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&att))
	assert.Equal(t, "image", att.Type)
	assert.Equal(t, "image/png", att.MIMEType)
	assert.NotEmpty(t, att.ID)
	assert.NotEmpty(t, att.Data)
}

func TestUploadAttachment_Rejections(t *testing.T) {
	svc := new(MockService)
	_, ts := setup(t, svc)

	text := upload(t, ts.URL+"/v1/attachments", "notes.txt", []byte("just some plain notes"))
	assert.Equal(t, http.StatusUnsupportedMediaType, text.StatusCode)

	big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0x01}, 2048)...)
	tooLarge := upload(t, ts.URL+"/v1/attachments", "big.png", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, tooLarge.StatusCode)

	missing, err := http.Post(ts.URL+"/v1/attachments", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	svc := new(MockService)
	_, ts := setup(t, svc)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/v1/chat/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
