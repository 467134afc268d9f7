package app

import (
	nethttp "net/http"

	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-apifetch/config"
	"github.com/gaborage/go-apifetch/fetch"
	"github.com/gaborage/go-apifetch/logger"
)

// Options contains optional dependencies for creating an App instance.
type Options struct {
	// ConfigLoader replaces config.Load in New.
	ConfigLoader func() (*config.Config, error)
	// Logger replaces the logger built from the log configuration.
	Logger logger.Logger
	// RoundTripper replaces the default HTTP transport of the client.
	RoundTripper nethttp.RoundTripper
	// CookieJar stores cookies for endpoints whose credentials mode allows them.
	CookieJar nethttp.CookieJar
	// Transport replaces the configured HTTP client entirely.
	Transport fetch.Transport
	// MeterProvider and TracerProvider replace the providers built from the
	// observability section. Setting either skips that section entirely.
	MeterProvider  metric.MeterProvider
	TracerProvider oteltrace.TracerProvider
}
