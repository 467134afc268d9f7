// Package app wires configuration, logging, the HTTP transport and the
// fetcher into a ready-to-use client.
package app

import (
	"context"
	"fmt"

	"github.com/gaborage/go-apifetch/api"
	"github.com/gaborage/go-apifetch/config"
	"github.com/gaborage/go-apifetch/fetch"
	"github.com/gaborage/go-apifetch/logger"
	"github.com/gaborage/go-apifetch/observability"
	"github.com/gaborage/go-apifetch/transport"
)

// App holds a configured fetcher and the components it was built from.
type App struct {
	cfg       *config.Config
	logger    logger.Logger
	client    *transport.Client
	transport fetch.Transport
	fetcher   *fetch.Fetcher
	provider  observability.Provider
}

// New creates an App from configuration loaded with config.Load, or with
// opts.ConfigLoader when set.
func New(opts *Options) (*App, error) {
	load := config.Load
	if opts != nil && opts.ConfigLoader != nil {
		load = opts.ConfigLoader
	}

	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg, opts)
}

// NewWithConfig creates an App from an already loaded configuration.
func NewWithConfig(cfg *config.Config, opts *Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if opts == nil {
		opts = &Options{}
	}

	log := opts.Logger
	if log == nil {
		log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
	}

	defaults, err := DefaultsFromConfig(&cfg.Fetch)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: log}
	if opts.Transport != nil {
		a.transport = opts.Transport
	} else {
		a.client = TransportFromConfig(&cfg.Transport, cfg.Fetch.BaseURL, log, opts)
		a.transport = a.client
	}

	meterProvider, tracerProvider := opts.MeterProvider, opts.TracerProvider
	if meterProvider == nil && tracerProvider == nil {
		a.provider, err = observability.NewProvider(&cfg.Observability, observability.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize observability: %w", err)
		}
		meterProvider, tracerProvider = a.provider.MeterProvider(), a.provider.TracerProvider()
	}

	a.fetcher, err = fetch.NewBuilder(log).
		WithTransport(a.transport).
		WithDefaults(defaults).
		WithMeterProvider(meterProvider).
		WithTracerProvider(tracerProvider).
		Build()
	if err != nil {
		_ = observability.Shutdown(a.provider, observability.DefaultShutdownTimeout)
		return nil, fmt.Errorf("failed to build fetcher: %w", err)
	}

	log.Info().
		Str("base_url", cfg.Fetch.BaseURL).
		Str("request_validation", string(defaults.RequestValidation)).
		Str("response_validation", string(defaults.ResponseValidation)).
		Bool("retry", defaults.Retry != nil).
		Msg("API fetcher initialized")

	return a, nil
}

// Fetcher returns the configured fetcher.
func (a *App) Fetcher() *fetch.Fetcher {
	return a.fetcher
}

// Client returns the HTTP transport, or nil when a custom transport was supplied.
func (a *App) Client() *transport.Client {
	return a.client
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the App's logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}

// Fetch performs one logical API call with the App's fetcher.
func (a *App) Fetch(ctx context.Context, desc api.Descriptor, req any, opts ...fetch.Option) (*api.Result, error) {
	return a.fetcher.Fetch(ctx, desc, req, opts...)
}

// Shutdown flushes and stops the telemetry exporters created from the
// observability section. It is a no-op when providers were supplied in Options.
func (a *App) Shutdown(ctx context.Context) error {
	if a.provider == nil {
		return nil
	}
	return a.provider.Shutdown(ctx)
}

// Reload replaces the fetch defaults from the fetch section of cfg. Calls
// in flight finish with the defaults they started with. Transport settings
// are not reloaded.
func (a *App) Reload(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	defaults, err := DefaultsFromConfig(&cfg.Fetch)
	if err != nil {
		return err
	}
	a.fetcher.SetDefaults(defaults)
	a.cfg = cfg

	a.logger.Info().
		Str("base_url", cfg.Fetch.BaseURL).
		Bool("retry", defaults.Retry != nil).
		Msg("API fetcher defaults reloaded")
	return nil
}
