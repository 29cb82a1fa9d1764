package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInfoWritesJSONWithServiceFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("ev-parking-test", "production", &buf)

	Info(context.Background(), "vehicle parked", "slot", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "vehicle parked", entry["msg"])
	assert.Equal(t, "ev-parking-test", entry["service"])
	assert.Equal(t, "production", entry["environment"])
	assert.EqualValues(t, 3, entry["slot"])
}

func TestDebugSuppressedOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("ev-parking-test", "production", &buf)

	Debug(context.Background(), "noisy")
	assert.Empty(t, buf.String())

	InitWithWriter("ev-parking-test", "development", &buf)
	Debug(context.Background(), "noisy")
	assert.Contains(t, buf.String(), "noisy")
}

func TestWithContextAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("ev-parking-test", "production", &buf)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	Warn(ctx, "traced")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["traceId"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["spanId"])
}
