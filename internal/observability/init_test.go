package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Sumatoshi-tech/histeq/internal/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	cfg := observability.DefaultConfig()

	providers, err := observability.Init(cfg, observability.Options{LogOutput: &bytes.Buffer{}})
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)

	_, span := providers.Tracer.Start(context.Background(), "histeq.run")
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_ExtraReaderCollectsInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()

	providers, err := observability.Init(observability.DefaultConfig(), observability.Options{
		LogOutput:    &bytes.Buffer{},
		MetricReader: reader,
	})
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	red, err := observability.NewREDMetrics(providers.Meter)
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "equalize", observability.StatusOK, 0)

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))
	assert.NotNil(t, findMetric(rm, "histeq.requests.total"))
}

func TestInit_LoggerWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.Environment = "test"

	providers, err := observability.Init(cfg, observability.Options{LogOutput: &buf})
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	providers.Logger.Info("hello")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "histeq", record["service"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "cli", record["mode"])
	assert.Equal(t, "hello", record["msg"])
}

func TestBuildResource_Attributes(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "staging"
	cfg.Mode = observability.ModeServe

	res, err := observability.ProbeBuildResource(cfg)
	require.NoError(t, err)

	name, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "histeq", name.AsString())

	version, ok := res.Set().Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", version.AsString())

	mode, ok := res.Set().Value("app.mode")
	require.True(t, ok)
	assert.Equal(t, "serve", mode.AsString())
}

func TestSelectSampler(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	assert.True(t, observability.ProbeSamplerSpan(cfg))

	cfg.SampleRatio = 1
	assert.True(t, observability.ProbeSamplerSpan(cfg))
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t,
		map[string]string{"api-key": "secret", "tenant": "a"},
		observability.ParseOTLPHeaders(" api-key = secret ,tenant=a,broken"),
	)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, observability.ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, observability.ParseLogLevel(" WARN "))
	assert.Equal(t, slog.LevelError, observability.ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, observability.ParseLogLevel("loud"))
	assert.Equal(t, slog.LevelInfo, observability.ParseLogLevel(""))
}
