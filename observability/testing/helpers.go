// Package testing provides in-memory OpenTelemetry providers and assertions
// for testing the spans and metrics recorded by fetchers.
//
// Usage:
//
//	tp := NewTestTraceProvider()
//	defer tp.Shutdown(context.Background())
//	mp := NewTestMeterProvider()
//	defer mp.Shutdown(context.Background())
//
//	f, _ := fetch.NewBuilder(log).
//		WithTransport(tr).
//		WithTracerProvider(tp).
//		WithMeterProvider(mp).
//		Build()
//
//	// ... perform fetches ...
//
//	span := NewSpanCollector(t, tp.Exporter).WithName("apifetch.fetch").First()
//	AssertSpanStatus(t, &span, codes.Ok)
//	rm := mp.Collect(t)
//	attempts, _ := GetMetricSumValue(rm, "apifetch.client.attempts")
package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	attrValueMismatchErrMsg = "attribute %s value mismatch"
	metricNotFoundErrMsg    = "metric %s not found"
	noDataPointsErrMsg      = "no data points for metric %s"
)

// TestTraceProvider wraps the SDK TracerProvider and in-memory exporter for testing.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider that exports synchronously
// into memory.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	return &TestTraceProvider{
		TracerProvider: provider,
		Exporter:       exporter,
	}
}

// TestMeterProvider wraps the SDK MeterProvider and manual reader for testing.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider with a manual reader, so
// metrics are only collected when Collect is called.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
	)

	return &TestMeterProvider{
		MeterProvider: provider,
		Reader:        reader,
	}
}

// Collect reads all metrics from the provider.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	err := tmp.Reader.Collect(context.Background(), &rm)
	require.NoError(t, err, "failed to collect metrics")
	return rm
}

// SpanCollector provides a fluent API for filtering and asserting on captured spans.
type SpanCollector struct {
	t     *testing.T
	spans tracetest.SpanStubs
}

// NewSpanCollector creates a span collector from an in-memory exporter.
func NewSpanCollector(t *testing.T, exporter *tracetest.InMemoryExporter) *SpanCollector {
	t.Helper()
	return &SpanCollector{
		t:     t,
		spans: exporter.GetSpans(),
	}
}

// Len returns the number of collected spans.
func (sc *SpanCollector) Len() int {
	return len(sc.spans)
}

// WithName filters spans by name and returns a new collector.
func (sc *SpanCollector) WithName(name string) *SpanCollector {
	sc.t.Helper()
	filtered := make(tracetest.SpanStubs, 0)
	for i := range sc.spans {
		if sc.spans[i].Name == name {
			filtered = append(filtered, sc.spans[i])
		}
	}
	return &SpanCollector{t: sc.t, spans: filtered}
}

// WithAttribute filters spans by attribute key-value pair and returns a new collector.
func (sc *SpanCollector) WithAttribute(key string, value any) *SpanCollector {
	sc.t.Helper()
	filtered := make(tracetest.SpanStubs, 0)
	for i := range sc.spans {
		for _, attr := range sc.spans[i].Attributes {
			if attr.Key == attribute.Key(key) && matchesValue(attr.Value, value) {
				filtered = append(filtered, sc.spans[i])
				break
			}
		}
	}
	return &SpanCollector{t: sc.t, spans: filtered}
}

// First returns the first span in the collection.
// Fails the test if the collection is empty.
func (sc *SpanCollector) First() tracetest.SpanStub {
	sc.t.Helper()
	require.NotEmpty(sc.t, sc.spans, "no spans in collection")
	return sc.spans[0]
}

// AssertCount asserts the number of collected spans.
func (sc *SpanCollector) AssertCount(expected int) *SpanCollector {
	sc.t.Helper()
	assert.Len(sc.t, sc.spans, expected, "unexpected number of spans")
	return sc
}

func matchesValue(attrValue attribute.Value, expected any) bool {
	switch v := expected.(type) {
	case string:
		return attrValue.AsString() == v
	case int:
		return attrValue.AsInt64() == int64(v)
	case int64:
		return attrValue.AsInt64() == v
	case float64:
		return attrValue.AsFloat64() == v
	case bool:
		return attrValue.AsBool() == v
	default:
		return false
	}
}

// AssertSpanAttribute asserts that a span has a specific attribute with the expected value.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, key string, expected any) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) != key {
			continue
		}
		switch v := expected.(type) {
		case string:
			assert.Equal(t, v, attr.Value.AsString(), attrValueMismatchErrMsg, key)
		case int:
			assert.Equal(t, int64(v), attr.Value.AsInt64(), attrValueMismatchErrMsg, key)
		case int64:
			assert.Equal(t, v, attr.Value.AsInt64(), attrValueMismatchErrMsg, key)
		case float64:
			assert.Equal(t, v, attr.Value.AsFloat64(), attrValueMismatchErrMsg, key)
		case bool:
			assert.Equal(t, v, attr.Value.AsBool(), attrValueMismatchErrMsg, key)
		default:
			t.Fatalf("unsupported attribute value type: %T", expected)
		}
		return
	}
	t.Errorf("attribute %s not found in span", key)
}

// AssertSpanStatus asserts the status of a span.
func AssertSpanStatus(t *testing.T, span *tracetest.SpanStub, expectedCode codes.Code) {
	t.Helper()
	assert.Equal(t, expectedCode, span.Status.Code, "span status code mismatch")
}

// AssertSpanError asserts that a span has an error status with the expected description.
func AssertSpanError(t *testing.T, span *tracetest.SpanStub, expectedDesc string) {
	t.Helper()
	assert.Equal(t, codes.Error, span.Status.Code, "expected error status")
	if expectedDesc != "" {
		assert.Equal(t, expectedDesc, span.Status.Description, "span error description mismatch")
	}
}

// FindMetric finds a metric by name in the ResourceMetrics.
// Returns nil if not found.
func FindMetric(rm metricdata.ResourceMetrics, metricName string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == metricName {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// AssertMetricExists asserts that a metric with the given name exists.
func AssertMetricExists(t *testing.T, rm metricdata.ResourceMetrics, metricName string) {
	t.Helper()
	require.NotNil(t, FindMetric(rm, metricName), metricNotFoundErrMsg, metricName)
}

// GetMetricSumValue returns the total of a Sum[int64] or Sum[float64] metric
// across all of its attribute sets.
func GetMetricSumValue(rm metricdata.ResourceMetrics, metricName string) (any, error) {
	metric := FindMetric(rm, metricName)
	if metric == nil {
		return nil, fmt.Errorf(metricNotFoundErrMsg, metricName)
	}

	switch data := metric.Data.(type) {
	case metricdata.Sum[int64]:
		if len(data.DataPoints) == 0 {
			return nil, fmt.Errorf(noDataPointsErrMsg, metricName)
		}
		var total int64
		for _, dp := range data.DataPoints {
			total += dp.Value
		}
		return total, nil
	case metricdata.Sum[float64]:
		if len(data.DataPoints) == 0 {
			return nil, fmt.Errorf(noDataPointsErrMsg, metricName)
		}
		var total float64
		for _, dp := range data.DataPoints {
			total += dp.Value
		}
		return total, nil
	default:
		return nil, fmt.Errorf("metric %s is not a Sum type", metricName)
	}
}

// GetMetricHistogramCount returns the number of recordings of a Histogram
// metric across all of its attribute sets.
func GetMetricHistogramCount(rm metricdata.ResourceMetrics, metricName string) (uint64, error) {
	metric := FindMetric(rm, metricName)
	if metric == nil {
		return 0, fmt.Errorf(metricNotFoundErrMsg, metricName)
	}

	var total uint64
	switch data := metric.Data.(type) {
	case metricdata.Histogram[int64]:
		if len(data.DataPoints) == 0 {
			return 0, fmt.Errorf(noDataPointsErrMsg, metricName)
		}
		for _, dp := range data.DataPoints {
			total += dp.Count
		}
	case metricdata.Histogram[float64]:
		if len(data.DataPoints) == 0 {
			return 0, fmt.Errorf(noDataPointsErrMsg, metricName)
		}
		for _, dp := range data.DataPoints {
			total += dp.Count
		}
	default:
		return 0, fmt.Errorf("metric %s is not a Histogram type", metricName)
	}
	return total, nil
}
