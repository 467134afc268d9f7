package observability

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/gaborage/go-apifetch/logger"
)

// syncBuffer serializes writes from the span and metric exporters.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewProviderDisabledReturnsNoop(t *testing.T) {
	p, err := NewProvider(&Config{Enabled: false})

	require.NoError(t, err)
	assert.IsType(t, &noopProvider{}, p)
	assert.IsType(t, tracenoop.NewTracerProvider(), p.TracerProvider())
	assert.IsType(t, metricnoop.NewMeterProvider(), p.MeterProvider())
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderRejectsInvalidConfig(t *testing.T) {
	_, err := NewProvider(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = NewProvider(&Config{Enabled: true})
	assert.ErrorIs(t, err, ErrMissingServiceName)

	_, err = NewProvider(&Config{
		Enabled: true,
		Service: ServiceConfig{Name: "svc"},
		Trace:   TraceConfig{Sample: SampleConfig{Rate: Float64Ptr(1.5)}},
	})
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
}

func TestNewProviderStdoutExportsSpansAndMetrics(t *testing.T) {
	out := &syncBuffer{}
	var logs bytes.Buffer

	p, err := NewProvider(&Config{
		Enabled: true,
		Service: ServiceConfig{Name: "widgets", Version: "1.2.3"},
	}, WithWriter(out), WithoutGlobals(), WithLogger(logger.NewWithWriter(&logs, "debug", false, nil)))
	require.NoError(t, err)

	assert.IsType(t, &sdktrace.TracerProvider{}, p.TracerProvider())
	assert.IsType(t, &sdkmetric.MeterProvider{}, p.MeterProvider())

	ctx := context.Background()
	_, span := p.TracerProvider().Tracer("test").Start(ctx, "apifetch.fetch")
	span.End()

	counter, err := p.MeterProvider().Meter("test").Int64Counter("apifetch.client.attempts")
	require.NoError(t, err)
	counter.Add(ctx, 2)

	require.NoError(t, Shutdown(p, time.Second))

	assert.Contains(t, out.String(), "apifetch.fetch")
	assert.Contains(t, out.String(), "apifetch.client.attempts")
	assert.Contains(t, out.String(), "widgets")
	assert.Contains(t, logs.String(), "Observability provider initialized")
}

func TestNewProviderSignalsCanBeDisabledIndependently(t *testing.T) {
	p, err := NewProvider(&Config{
		Enabled: true,
		Service: ServiceConfig{Name: "svc"},
		Metrics: MetricsConfig{Enabled: BoolPtr(false)},
	}, WithWriter(&syncBuffer{}), WithoutGlobals())
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	assert.IsType(t, &sdktrace.TracerProvider{}, p.TracerProvider())
	assert.IsType(t, metricnoop.NewMeterProvider(), p.MeterProvider())

	p2, err := NewProvider(&Config{
		Enabled: true,
		Service: ServiceConfig{Name: "svc"},
		Trace:   TraceConfig{Enabled: BoolPtr(false)},
	}, WithWriter(&syncBuffer{}), WithoutGlobals())
	require.NoError(t, err)
	defer func() { _ = p2.Shutdown(context.Background()) }()

	assert.IsType(t, tracenoop.NewTracerProvider(), p2.TracerProvider())
	assert.IsType(t, &sdkmetric.MeterProvider{}, p2.MeterProvider())
}

func TestNewProviderOTLPTraceExporters(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		protocol string
	}{
		{name: "http", endpoint: "http://localhost:4318", protocol: ProtocolHTTP},
		{name: "grpc", endpoint: "localhost:4317", protocol: ProtocolGRPC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(&Config{
				Enabled: true,
				Service: ServiceConfig{Name: "svc"},
				Trace: TraceConfig{
					Endpoint: tt.endpoint,
					Protocol: tt.protocol,
					Insecure: true,
					Headers:  map[string]string{"api-key": "secret"},
				},
				Metrics: MetricsConfig{Enabled: BoolPtr(false)},
			}, WithoutGlobals())
			require.NoError(t, err)

			// Nothing was recorded, so shutdown does not reach the collector.
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			assert.NoError(t, p.Shutdown(ctx))
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{
		Enabled: true,
		Service: ServiceConfig{Name: "svc"},
		Trace: TraceConfig{
			Endpoint: "collector:4317",
			Protocol: ProtocolGRPC,
			Insecure: true,
			Headers:  map[string]string{"api-key": "secret"},
			Batch:    BatchConfig{Size: 5000},
		},
	}

	cfg.ApplyDefaults()

	assert.Equal(t, "unknown", cfg.Service.Version)
	assert.Equal(t, EnvironmentDevelopment, cfg.Environment)
	assert.True(t, *cfg.Trace.Enabled)
	assert.InDelta(t, 1.0, *cfg.Trace.Sample.Rate, 0)
	assert.Equal(t, CompressionGzip, cfg.Trace.Compression)
	assert.Equal(t, defaultQueueSize, cfg.Trace.QueueSize)
	assert.Equal(t, defaultQueueSize, cfg.Trace.Batch.Size)

	assert.True(t, *cfg.Metrics.Enabled)
	assert.Equal(t, "collector:4317", cfg.Metrics.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Metrics.Protocol)
	assert.True(t, *cfg.Metrics.Insecure)
	assert.Equal(t, map[string]string{"api-key": "secret"}, cfg.Metrics.Headers)
	assert.Equal(t, TemporalityCumulative, cfg.Metrics.Temporality)
	assert.Equal(t, defaultMetricInterval, cfg.Metrics.Interval)
	assert.Equal(t, defaultExportTimeout, cfg.Metrics.Export.Timeout)

	cfg.Metrics.Headers["api-key"] = "changed"
	assert.Equal(t, "secret", cfg.Trace.Headers["api-key"])
}

func TestApplyDefaultsKeepsExplicitZeroSampleRate(t *testing.T) {
	cfg := Config{Trace: TraceConfig{Sample: SampleConfig{Rate: Float64Ptr(0)}}}
	cfg.ApplyDefaults()
	assert.InDelta(t, 0.0, *cfg.Trace.Sample.Rate, 0)
	assert.False(t, *cfg.Trace.Enabled)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{Enabled: true, Service: ServiceConfig{Name: "svc"}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "minimal", mutate: func(*Config) {}},
		{name: "disabled skips checks", mutate: func(c *Config) { c.Enabled = false; c.Service.Name = "" }},
		{name: "missing service", mutate: func(c *Config) { c.Service.Name = "" }, wantErr: ErrMissingServiceName},
		{name: "negative rate", mutate: func(c *Config) { c.Trace.Sample.Rate = Float64Ptr(-0.1) }, wantErr: ErrInvalidSampleRate},
		{name: "bad compression", mutate: func(c *Config) { c.Trace.Compression = "zstd" }, wantErr: ErrInvalidCompression},
		{name: "bad protocol", mutate: func(c *Config) {
			c.Trace.Endpoint = "http://localhost:4318"
			c.Trace.Protocol = "thrift"
		}, wantErr: ErrInvalidProtocol},
		{name: "http without scheme", mutate: func(c *Config) { c.Trace.Endpoint = "localhost:4318" }, wantErr: ErrInvalidEndpointFormat},
		{name: "grpc with scheme", mutate: func(c *Config) {
			c.Trace.Endpoint = "http://localhost:4317"
			c.Trace.Protocol = ProtocolGRPC
		}, wantErr: ErrInvalidEndpointFormat},
		{name: "bad temporality", mutate: func(c *Config) { c.Metrics.Temporality = "sometimes" }, wantErr: ErrInvalidTemporality},
		{name: "disabled metrics skip checks", mutate: func(c *Config) {
			c.Metrics.Enabled = BoolPtr(false)
			c.Metrics.Temporality = "sometimes"
		}},
		{name: "metrics inherit grpc protocol", mutate: func(c *Config) {
			c.Trace.Protocol = ProtocolGRPC
			c.Metrics.Endpoint = "localhost:4317"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)
}

func TestTemporalitySelector(t *testing.T) {
	cumulative := temporalitySelector(TemporalityCumulative)
	assert.Equal(t, metricdata.CumulativeTemporality, cumulative(sdkmetric.InstrumentKindCounter))

	delta := temporalitySelector(TemporalityDelta)
	assert.Equal(t, metricdata.DeltaTemporality, delta(sdkmetric.InstrumentKindCounter))
	assert.Equal(t, metricdata.DeltaTemporality, delta(sdkmetric.InstrumentKindHistogram))
	assert.Equal(t, metricdata.CumulativeTemporality, delta(sdkmetric.InstrumentKindUpDownCounter))
}

func TestShutdownNilProvider(t *testing.T) {
	assert.NoError(t, Shutdown(nil, 0))
	assert.NoError(t, Shutdown(newNoopProvider(), 0))
}
