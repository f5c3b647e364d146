package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupTracing_Exporters(t *testing.T) {
	ctx := context.Background()

	for _, exporter := range []string{ExporterNone, ExporterStdout} {
		cfg := DefaultTracerConfig()
		cfg.ExporterType = exporter
		tp, err := SetupTracing(ctx, cfg)
		require.NoError(t, err, exporter)
		require.NoError(t, ShutdownTracing(ctx, tp))
	}

	cfg := DefaultTracerConfig()
	cfg.ExporterType = "zipkin"
	_, err := SetupTracing(ctx, cfg)
	assert.Error(t, err)
}

func TestStartPackageOperationSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(previous)

	_, span := StartPackageOperationSpan(context.Background(), "install", "op-1", "jQuery", "1.8.2", "Web")
	EndSpanWithError(span, errors.New("boom"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "package.install", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}
