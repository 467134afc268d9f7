package app

import (
	"fmt"

	"github.com/gaborage/go-apifetch/config"
	"github.com/gaborage/go-apifetch/fetch"
	"github.com/gaborage/go-apifetch/logger"
	"github.com/gaborage/go-apifetch/retry"
	"github.com/gaborage/go-apifetch/transport"
	"github.com/gaborage/go-apifetch/validation"
)

// DefaultsFromConfig converts the fetch section into fetcher defaults.
func DefaultsFromConfig(cfg *config.FetchConfig) (fetch.Defaults, error) {
	reqMode, err := validation.ParseMode(cfg.Validation.Request)
	if err != nil {
		return fetch.Defaults{}, fmt.Errorf("fetch.validation.request: %w", err)
	}
	resMode, err := validation.ParseMode(cfg.Validation.Response)
	if err != nil {
		return fetch.Defaults{}, fmt.Errorf("fetch.validation.response: %w", err)
	}

	return fetch.Defaults{
		RequestValidation:  reqMode,
		ResponseValidation: resMode,
		Retry:              RetryFromConfig(&cfg.Retry),
		BaseURL:            cfg.BaseURL,
	}, nil
}

// RetryFromConfig builds the default evaluator: exponential backoff over the
// configured statuses, optionally deferring to Retry-After. It returns nil
// when retries are disabled.
func RetryFromConfig(cfg *config.RetryConfig) retry.Evaluator {
	if !cfg.Enabled {
		return nil
	}

	backoff := retry.Backoff(retry.BackoffConfig{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
		Statuses:   cfg.Statuses,
	})
	if !cfg.RespectRetryAfter {
		return backoff
	}
	return retry.RespectRetryAfter(cfg.MaxDelay, backoff)
}

// TransportFromConfig builds the HTTP transport described by the transport
// section. baseURL marks the origin treated as same-origin for credentials.
func TransportFromConfig(cfg *config.TransportConfig, baseURL string, log logger.Logger, opts *Options) *transport.Client {
	b := transport.NewBuilder(log).
		WithTimeout(cfg.Timeout).
		WithBaseURL(baseURL).
		WithPayloadLogging(cfg.LogPayloads, cfg.MaxPayloadLogBytes).
		WithW3CTrace(cfg.W3CTrace)

	if cfg.TraceHeader != "" {
		b = b.WithTraceIDHeader(cfg.TraceHeader)
	}
	for key, value := range cfg.Headers {
		b = b.WithDefaultHeader(key, value)
	}
	if cfg.BasicAuth.Username != "" {
		b = b.WithBasicAuth(cfg.BasicAuth.Username, cfg.BasicAuth.Password)
	}
	if cfg.RateLimit > 0 {
		b = b.WithRateLimit(cfg.RateLimit, cfg.Burst)
	}
	if opts != nil {
		if opts.RoundTripper != nil {
			b = b.WithTransport(opts.RoundTripper)
		}
		if opts.CookieJar != nil {
			b = b.WithCookieJar(opts.CookieJar)
		}
	}
	return b.Build()
}
