package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func instrumentedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	core, logs := observer.New(zap.InfoLevel)

	prevTracer, prevLogger := Tracer, Logger
	Tracer, Logger = tp.Tracer("test"), zap.New(core)
	t.Cleanup(func() {
		Tracer, Logger = prevTracer, prevLogger
		_ = tp.Shutdown(context.Background())
	})

	r := gin.New()
	r.Use(TracingMiddleware())
	r.POST("/webhooks/:method", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, sr, logs
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (string, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracingMiddlewareTagsPaymentMethod(t *testing.T) {
	r, sr, logs := instrumentedRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/cardlink", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /webhooks/:method", spans[0].Name())
	method, ok := spanAttr(spans[0], "payment.method")
	require.True(t, ok)
	assert.Equal(t, "cardlink", method)
	assert.Equal(t, rec.Header().Get("X-Trace-ID"), spans[0].SpanContext().TraceID().String())

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "cardlink", fields["payment_method"])
	assert.Equal(t, "/webhooks/cardlink", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestTracingMiddlewareSkipsLogForHealth(t *testing.T) {
	r, sr, logs := instrumentedRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sr.Ended(), 1)
	_, ok := spanAttr(sr.Ended()[0], "payment.method")
	assert.False(t, ok)
	assert.Zero(t, logs.Len())
}

func TestTraceIDOutsideSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
