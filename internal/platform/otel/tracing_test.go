package otel_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	prismotel "github.com/mxl4r/Prism-LLM-frontend/internal/platform/otel"
)

func TestInitTracer_Disabled(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := prismotel.InitTracer(config.TracingConfig{Enabled: false}, zap.NewNop(), &buf)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	assert.Zero(t, buf.Len())
}

func TestInitTracer_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := prismotel.InitTracer(config.TracingConfig{Enabled: true, ServiceName: "prism-test"}, zap.NewNop(), &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "gateway.StreamMessage")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "gateway.StreamMessage")
	assert.Contains(t, buf.String(), "prism-test")
}
