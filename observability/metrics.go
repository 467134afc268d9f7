package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc/credentials/insecure"
)

func (p *provider) initMeterProvider(res *resource.Resource) error {
	exporter, err := p.createMetricExporter()
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(p.config.Metrics.Interval),
		sdkmetric.WithTimeout(p.config.Metrics.Export.Timeout),
	)

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	return nil
}

func (p *provider) createMetricExporter() (sdkmetric.Exporter, error) {
	m := p.config.Metrics
	selector := temporalitySelector(m.Temporality)

	if m.Endpoint == EndpointStdout {
		return stdoutmetric.New(
			stdoutmetric.WithWriter(p.out),
			stdoutmetric.WithTemporalitySelector(selector),
		)
	}

	switch m.Protocol {
	case ProtocolHTTP:
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpointURL(m.Endpoint),
			otlpmetrichttp.WithTemporalitySelector(selector),
		}
		if *m.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(m.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(m.Headers))
		}
		if m.Compression == CompressionGzip {
			opts = append(opts, otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression))
		} else {
			opts = append(opts, otlpmetrichttp.WithCompression(otlpmetrichttp.NoCompression))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case ProtocolGRPC:
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(m.Endpoint),
			otlpmetricgrpc.WithTemporalitySelector(selector),
		}
		if *m.Insecure {
			opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(m.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(m.Headers))
		}
		if m.Compression == CompressionGzip {
			opts = append(opts, otlpmetricgrpc.WithCompressor(CompressionGzip))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("metrics protocol '%s': %w", m.Protocol, ErrInvalidProtocol)
	}
}

// temporalitySelector maps the configured temporality to an SDK selector.
// Up-down counters stay cumulative under delta since their deltas are not
// meaningful on their own.
func temporalitySelector(temporality string) sdkmetric.TemporalitySelector {
	if temporality != TemporalityDelta {
		return sdkmetric.DefaultTemporalitySelector
	}
	return func(kind sdkmetric.InstrumentKind) metricdata.Temporality {
		switch kind {
		case sdkmetric.InstrumentKindUpDownCounter, sdkmetric.InstrumentKindObservableUpDownCounter:
			return metricdata.CumulativeTemporality
		default:
			return metricdata.DeltaTemporality
		}
	}
}
