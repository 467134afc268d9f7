package observability

import (
	"maps"
	"strings"
	"time"
)

const (
	// EndpointStdout writes telemetry to stdout instead of an OTLP collector.
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// CompressionGzip specifies gzip compression for OTLP export.
	CompressionGzip = "gzip"

	// CompressionNone disables compression for OTLP export.
	CompressionNone = "none"

	// TemporalityDelta reports the change since the last export.
	TemporalityDelta = "delta"

	// TemporalityCumulative reports the total since the start of the measurement.
	TemporalityCumulative = "cumulative"

	// EnvironmentDevelopment is the default environment name.
	EnvironmentDevelopment = "development"

	defaultServiceVersion = "unknown"
	defaultBatchTimeout   = 5 * time.Second
	defaultExportTimeout  = 30 * time.Second
	defaultQueueSize      = 2048
	defaultBatchSize      = 512
	defaultMetricInterval = 60 * time.Second
)

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Config configures export of the fetcher's spans and metrics.
type Config struct {
	// Enabled controls whether telemetry is exported at all.
	// When false, NewProvider returns a no-op provider.
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`

	Service ServiceConfig `koanf:"service" json:"service" yaml:"service"`

	// Environment is recorded as deployment.environment.name.
	Environment string `koanf:"environment" json:"environment" yaml:"environment"`

	Trace   TraceConfig   `koanf:"trace" json:"trace" yaml:"trace"`
	Metrics MetricsConfig `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// ServiceConfig identifies the process in exported telemetry.
type ServiceConfig struct {
	// Name is required when telemetry is enabled.
	Name    string `koanf:"name" json:"name" yaml:"name"`
	Version string `koanf:"version" json:"version" yaml:"version"`
}

// TraceConfig configures span export.
type TraceConfig struct {
	// Enabled defaults to true when telemetry is enabled.
	Enabled *bool `koanf:"enabled" json:"enabled" yaml:"enabled"`

	// Endpoint is "stdout" or an OTLP endpoint. HTTP endpoints carry a
	// scheme (http://localhost:4318), gRPC endpoints are host:port.
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`

	// Protocol is "http" or "grpc". Defaults to http.
	Protocol string `koanf:"protocol" json:"protocol" yaml:"protocol"`

	// Insecure disables TLS for OTLP endpoints.
	Insecure bool `koanf:"insecure" json:"insecure" yaml:"insecure"`

	// Headers are sent with every OTLP export, typically an API key.
	Headers map[string]string `koanf:"headers" json:"-" yaml:"-"`

	// Compression is "gzip" (default) or "none".
	Compression string `koanf:"compression" json:"compression" yaml:"compression"`

	Sample SampleConfig `koanf:"sample" json:"sample" yaml:"sample"`
	Batch  BatchConfig  `koanf:"batch" json:"batch" yaml:"batch"`
	Export ExportConfig `koanf:"export" json:"export" yaml:"export"`

	// QueueSize limits the number of spans buffered for export.
	QueueSize int `koanf:"queuesize" json:"queuesize" yaml:"queuesize"`
}

// SampleConfig configures trace sampling.
type SampleConfig struct {
	// Rate is the fraction of fetches traced, 0.0 to 1.0.
	// nil means 1.0; an explicit 0.0 is kept.
	Rate *float64 `koanf:"rate" json:"rate" yaml:"rate"`
}

// BatchConfig configures the batch span processor.
type BatchConfig struct {
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
	Size    int           `koanf:"size" json:"size" yaml:"size"`
}

// ExportConfig bounds a single export.
type ExportConfig struct {
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
}

// MetricsConfig configures metric export. Unset connection settings
// fall back to the trace settings.
type MetricsConfig struct {
	// Enabled defaults to true when telemetry is enabled.
	Enabled *bool `koanf:"enabled" json:"enabled" yaml:"enabled"`

	Endpoint    string            `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	Protocol    string            `koanf:"protocol" json:"protocol" yaml:"protocol"`
	Insecure    *bool             `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Headers     map[string]string `koanf:"headers" json:"-" yaml:"-"`
	Compression string            `koanf:"compression" json:"compression" yaml:"compression"`

	// Temporality is "cumulative" (default) or "delta".
	Temporality string `koanf:"temporality" json:"temporality" yaml:"temporality"`

	// Interval is how often metrics are exported.
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval"`

	Export ExportConfig `koanf:"export" json:"export" yaml:"export"`
}

// ApplyDefaults fills every unset field. NewProvider calls it on a copy,
// so callers do not need to.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = defaultServiceVersion
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	c.applyTraceDefaults()
	c.applyMetricsDefaults()
}

func (c *Config) applyTraceDefaults() {
	t := &c.Trace
	if t.Enabled == nil {
		t.Enabled = BoolPtr(c.Enabled)
	}
	if t.Endpoint == "" {
		t.Endpoint = EndpointStdout
	}
	if t.Protocol == "" {
		t.Protocol = ProtocolHTTP
	}
	if t.Compression == "" {
		t.Compression = CompressionGzip
	}
	if t.Sample.Rate == nil {
		t.Sample.Rate = Float64Ptr(1.0)
	}
	if t.Batch.Timeout <= 0 {
		t.Batch.Timeout = defaultBatchTimeout
	}
	if t.Batch.Size <= 0 {
		t.Batch.Size = defaultBatchSize
	}
	if t.Export.Timeout <= 0 {
		t.Export.Timeout = defaultExportTimeout
	}
	if t.QueueSize <= 0 {
		t.QueueSize = defaultQueueSize
	}
	// A batch larger than the queue is never filled.
	if t.Batch.Size > t.QueueSize {
		t.Batch.Size = t.QueueSize
	}
}

func (c *Config) applyMetricsDefaults() {
	m := &c.Metrics
	if m.Enabled == nil {
		m.Enabled = BoolPtr(c.Enabled)
	}
	if m.Endpoint == "" {
		m.Endpoint = c.Trace.Endpoint
	}
	if m.Protocol == "" {
		m.Protocol = c.Trace.Protocol
	}
	if m.Insecure == nil {
		m.Insecure = BoolPtr(c.Trace.Insecure)
	}
	if len(m.Headers) == 0 && len(c.Trace.Headers) > 0 {
		m.Headers = maps.Clone(c.Trace.Headers)
	}
	if m.Compression == "" {
		m.Compression = c.Trace.Compression
	}
	if m.Temporality == "" {
		m.Temporality = TemporalityCumulative
	}
	if m.Interval <= 0 {
		m.Interval = defaultMetricInterval
	}
	if m.Export.Timeout <= 0 {
		m.Export.Timeout = c.Trace.Export.Timeout
	}
}

// Validate reports the first invalid setting. A disabled config is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}

	if err := c.validateTrace(); err != nil {
		return err
	}
	return c.validateMetrics()
}

func (c *Config) validateTrace() error {
	if rate := c.Trace.Sample.Rate; rate != nil && (*rate < 0.0 || *rate > 1.0) {
		return ErrInvalidSampleRate
	}
	if err := validateCompression(c.Trace.Compression); err != nil {
		return err
	}
	return validateEndpoint(c.Trace.Endpoint, c.Trace.Protocol)
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Enabled != nil && !*c.Metrics.Enabled {
		return nil
	}
	if err := validateCompression(c.Metrics.Compression); err != nil {
		return err
	}
	switch c.Metrics.Temporality {
	case "", TemporalityDelta, TemporalityCumulative:
	default:
		return ErrInvalidTemporality
	}

	protocol := c.Metrics.Protocol
	if protocol == "" {
		protocol = c.Trace.Protocol
	}
	return validateEndpoint(c.Metrics.Endpoint, protocol)
}

func validateCompression(compression string) error {
	switch compression {
	case "", CompressionGzip, CompressionNone:
		return nil
	default:
		return ErrInvalidCompression
	}
}

// validateEndpoint checks that the endpoint format matches the protocol:
// gRPC endpoints are host:port, HTTP endpoints include the scheme.
func validateEndpoint(endpoint, protocol string) error {
	if endpoint == "" || endpoint == EndpointStdout {
		return nil
	}
	if protocol == "" {
		protocol = ProtocolHTTP
	}

	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	switch protocol {
	case ProtocolHTTP:
		if !hasScheme {
			return ErrInvalidEndpointFormat
		}
	case ProtocolGRPC:
		if hasScheme {
			return ErrInvalidEndpointFormat
		}
	default:
		return ErrInvalidProtocol
	}
	return nil
}
