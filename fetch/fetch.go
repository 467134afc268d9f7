// Package fetch issues single logical API calls: it materializes a request
// from an endpoint descriptor, performs it through a Transport, classifies
// the response into an api.Result and consults a retry.Evaluator between
// failed attempts.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-apifetch/api"
	"github.com/gaborage/go-apifetch/fetch/internal/tracking"
	"github.com/gaborage/go-apifetch/logger"
	"github.com/gaborage/go-apifetch/retry"
	"github.com/gaborage/go-apifetch/validation"
)

// Defaults is the process-wide configuration read at the start of every fetch.
type Defaults struct {
	RequestValidation  validation.Mode
	ResponseValidation validation.Mode
	// Retry is used when a call does not supply its own evaluator. Nil disables retries.
	Retry retry.Evaluator
	// BaseURL prefixes relative descriptor URLs.
	BaseURL string
}

// DefaultDefaults validates hard in both directions and never retries.
func DefaultDefaults() Defaults {
	return Defaults{
		RequestValidation:  validation.ModeHard,
		ResponseValidation: validation.ModeHard,
	}
}

// Fetcher runs the fetch loop. It is safe for concurrent use.
type Fetcher struct {
	transport    Transport
	materializer Materializer
	classifier   Classifier
	logger       logger.Logger
	defaults     atomic.Pointer[Defaults]
	tracker      *tracking.Recorder
}

// Builder provides a fluent interface for creating fetchers.
type Builder struct {
	transport      Transport
	materializer   Materializer
	classifier     Classifier
	validator      *validation.Validator
	logger         logger.Logger
	defaults       Defaults
	meterProvider  metric.MeterProvider
	tracerProvider oteltrace.TracerProvider
}

// NewBuilder creates a new fetcher builder.
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		logger:   log,
		defaults: DefaultDefaults(),
	}
}

// WithTransport sets the transport used for every attempt. Required.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithMaterializer replaces the default request materializer.
func (b *Builder) WithMaterializer(m Materializer) *Builder {
	b.materializer = m
	return b
}

// WithClassifier replaces the default response classifier.
func (b *Builder) WithClassifier(c Classifier) *Builder {
	b.classifier = c
	return b
}

// WithValidator sets the validator shared by the default materializer and classifier.
func (b *Builder) WithValidator(v *validation.Validator) *Builder {
	b.validator = v
	return b
}

// WithDefaults sets the initial defaults.
func (b *Builder) WithDefaults(d Defaults) *Builder {
	b.defaults = d
	return b
}

// WithMeterProvider sets the meter provider. Defaults to the global provider.
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// WithTracerProvider sets the tracer provider. Defaults to the global provider.
func (b *Builder) WithTracerProvider(tp oteltrace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// Build creates the fetcher.
func (b *Builder) Build() (*Fetcher, error) {
	if b.transport == nil {
		return nil, errors.New("fetch: transport is required")
	}

	v := b.validator
	if v == nil {
		v = validation.New()
	}
	m := b.materializer
	if m == nil {
		m = NewMaterializer("", v, b.logger)
	}
	c := b.classifier
	if c == nil {
		c = NewClassifier(v, b.logger)
	}
	mp := b.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	f := &Fetcher{
		transport:    b.transport,
		materializer: m,
		classifier:   c,
		logger:       b.logger,
		tracker:      tracking.New(mp, tp),
	}
	f.SetDefaults(b.defaults)
	return f, nil
}

// SetDefaults replaces the defaults. Calls already in flight keep the
// defaults they started with.
func (f *Fetcher) SetDefaults(d Defaults) {
	f.defaults.Store(&d)
}

// Defaults returns the current defaults.
func (f *Fetcher) Defaults() Defaults {
	return *f.defaults.Load()
}

// Option overrides a default for one call.
type Option func(*callOptions)

type callOptions struct {
	requestValidation  validation.Mode
	responseValidation validation.Mode
	transport          *TransportOptions
	retry              retry.Evaluator
}

// WithRequestValidation sets the request validation mode for this call.
func WithRequestValidation(mode validation.Mode) Option {
	return func(o *callOptions) {
		o.requestValidation = mode
	}
}

// WithResponseValidation sets the response validation mode for this call.
func WithResponseValidation(mode validation.Mode) Option {
	return func(o *callOptions) {
		o.responseValidation = mode
	}
}

// WithTransportOptions supplements or overrides the derived transport inputs.
func WithTransportOptions(opts *TransportOptions) Option {
	return func(o *callOptions) {
		o.transport = opts
	}
}

// WithRetry sets the retry evaluator for this call, overriding Defaults.Retry.
func WithRetry(e retry.Evaluator) Option {
	return func(o *callOptions) {
		o.retry = e
	}
}

// Fetch performs one logical API call.
//
// The returned error is non-nil only when the call could not be completed:
// an invalid descriptor (*api.ConfigurationError), a transport fault, an
// evaluator error, or a context that ended while waiting to retry
// (ErrRetryAborted, returned with the last result). Failures described by
// the server or by the request itself are reported through the result.
func (f *Fetcher) Fetch(ctx context.Context, desc api.Descriptor, req any, opts ...Option) (*api.Result, error) {
	desc = desc.WithDefaults()
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	defaults := f.Defaults()
	co := callOptions{}
	for _, opt := range opts {
		opt(&co)
	}
	reqMode := co.requestValidation.Or(defaults.RequestValidation).Or(validation.ModeHard)
	resMode := co.responseValidation.Or(defaults.ResponseValidation).Or(validation.ModeHard)
	evaluator := co.retry
	if evaluator == nil {
		evaluator = defaults.Retry
	}

	endpoint := desc.String()
	start := time.Now()
	ctx, span := f.tracker.Start(ctx, endpoint, desc.Method)

	result, err := f.run(ctx, desc, req, reqMode, resMode, co.transport, evaluator, defaults.BaseURL)

	status := 0
	if result != nil {
		status = result.Status
	}
	f.tracker.End(ctx, span, endpoint, start, outcomeOf(result, err), status, err)
	return result, err
}

func (f *Fetcher) run(
	ctx context.Context,
	desc api.Descriptor,
	req any,
	reqMode, resMode validation.Mode,
	transportOpts *TransportOptions,
	evaluator retry.Evaluator,
	baseURL string,
) (*api.Result, error) {
	endpoint := desc.String()

	materialized, err := f.materializer.Materialize(ctx, desc, req, reqMode)
	if err != nil {
		var matErr *MaterializationError
		if errors.As(err, &matErr) {
			f.logger.Warn().
				Str("endpoint", endpoint).
				Err(err).
				Msg("Request could not be materialized")
			return api.Invalid(matErr.Error()), nil
		}
		return nil, err
	}

	attempts := 0
	for {
		treq := &TransportRequest{
			Method:      desc.Method,
			URL:         resolveURL(baseURL, materialized.URL),
			Headers:     materialized.Headers.Clone(),
			Body:        materialized.Body,
			Credentials: desc.Credentials,
		}
		transportOpts.apply(treq)

		f.logger.Debug().
			Str("endpoint", endpoint).
			Str("method", treq.Method).
			Str("url", treq.URL).
			Int("attempt", attempts+1).
			Msg("Fetch attempt")

		logger.IncrementFetchCounter(ctx)
		attemptStart := time.Now()
		raw, err := f.transport.Do(ctx, treq)
		logger.AddFetchElapsed(ctx, time.Since(attemptStart).Nanoseconds())
		if err != nil {
			f.tracker.Attempt(ctx, endpoint, treq.Method, attempts+1, 0, err)
			f.logger.Error().
				Str("endpoint", endpoint).
				Int("attempt", attempts+1).
				Err(err).
				Msg("Transport failed")
			return nil, err
		}
		f.tracker.Attempt(ctx, endpoint, treq.Method, attempts+1, raw.StatusCode, nil)

		result, err := f.classifier.Classify(ctx, desc, req, raw, resMode)
		if err != nil {
			return nil, err
		}
		if result.OK() {
			return result, nil
		}
		if evaluator == nil {
			return result, nil
		}

		decision, err := evaluator(ctx, retry.Attempt{
			Descriptor: desc,
			Request:    req,
			Result:     result,
			Count:      attempts,
		})
		attempts++
		if err != nil {
			return nil, fmt.Errorf("retry evaluator for %s: %w", endpoint, err)
		}
		if !decision.Retry {
			return result, nil
		}

		f.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", result.Status).
			Str("kind", result.Kind.String()).
			Int("retry", attempts).
			Dur("delay", decision.Delay).
			Msg("Retrying fetch")
		f.tracker.Retry(ctx, endpoint, attempts, decision.Delay)

		if err := wait(ctx, decision.Delay); err != nil {
			return result, err
		}
		if decision.WasCanceled() {
			f.logger.Debug().
				Str("endpoint", endpoint).
				Int("retry", attempts).
				Msg("Retry canceled after delay")
			return result, nil
		}
	}
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRetryAborted, err)
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrRetryAborted, ctx.Err())
	}
}

// resolveURL prefixes relative URLs with base.
func resolveURL(base, target string) string {
	if base == "" || strings.Contains(target, "://") {
		return target
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(target, "/")
}

func outcomeOf(result *api.Result, err error) string {
	switch {
	case errors.Is(err, ErrRetryAborted):
		return tracking.OutcomeAborted
	case err != nil || result == nil:
		return tracking.OutcomeTransportError
	case result.Kind == api.KindOK:
		return tracking.OutcomeOK
	case result.Kind == api.KindInvalid:
		return tracking.OutcomeInvalid
	default:
		return tracking.OutcomeErrorResponse
	}
}
