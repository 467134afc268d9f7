package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/go-apifetch/observability"
)

// Config represents the configuration of a fetcher and its transport.
// The embedded koanf instance gives access to keys not modelled here.
type Config struct {
	Fetch     FetchConfig     `koanf:"fetch" json:"fetch" yaml:"fetch"`
	Transport TransportConfig `koanf:"transport" json:"transport" yaml:"transport"`
	Log       LogConfig       `koanf:"log" json:"log" yaml:"log"`

	Observability observability.Config `koanf:"observability" json:"observability" yaml:"observability"`

	// k holds the underlying Koanf instance for flexible access to custom configurations
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// FetchConfig holds the process-wide fetch defaults.
type FetchConfig struct {
	BaseURL    string           `koanf:"baseurl" json:"baseurl" yaml:"baseurl"`
	Validation ValidationConfig `koanf:"validation" json:"validation" yaml:"validation"`
	Retry      RetryConfig      `koanf:"retry" json:"retry" yaml:"retry"`
}

// ValidationConfig holds the default validation modes: none, soft or hard.
type ValidationConfig struct {
	Request  string `koanf:"request" json:"request" yaml:"request"`
	Response string `koanf:"response" json:"response" yaml:"response"`
}

// RetryConfig configures the default retry evaluator.
// Disabled by default; failed attempts are then returned as they are.
type RetryConfig struct {
	Enabled    bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	MaxRetries int           `koanf:"maxretries" json:"maxretries" yaml:"maxretries"`
	BaseDelay  time.Duration `koanf:"basedelay" json:"basedelay" yaml:"basedelay"`
	MaxDelay   time.Duration `koanf:"maxdelay" json:"maxdelay" yaml:"maxdelay"`
	// Statuses lists retryable statuses. Empty means 429 and the usual 5xx gateway statuses.
	Statuses []int `koanf:"statuses" json:"statuses" yaml:"statuses"`
	// RespectRetryAfter waits for the server's Retry-After hint, capped by MaxDelay.
	RespectRetryAfter bool `koanf:"respectretryafter" json:"respectretryafter" yaml:"respectretryafter"`
}

// TransportConfig configures the HTTP transport.
type TransportConfig struct {
	Timeout            time.Duration     `koanf:"timeout" json:"timeout" yaml:"timeout"`
	RateLimit          float64           `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit"` // requests per second, 0 disables
	Burst              int               `koanf:"burst" json:"burst" yaml:"burst"`
	TraceHeader        string            `koanf:"traceheader" json:"traceheader" yaml:"traceheader"`
	W3CTrace           bool              `koanf:"w3ctrace" json:"w3ctrace" yaml:"w3ctrace"`
	LogPayloads        bool              `koanf:"logpayloads" json:"logpayloads" yaml:"logpayloads"`
	MaxPayloadLogBytes int               `koanf:"maxpayloadlogbytes" json:"maxpayloadlogbytes" yaml:"maxpayloadlogbytes"`
	Headers            map[string]string `koanf:"headers" json:"headers" yaml:"headers"`
	BasicAuth          BasicAuthConfig   `koanf:"basicauth" json:"basicauth" yaml:"basicauth"`
}

// BasicAuthConfig holds credentials sent according to each endpoint's credentials mode.
type BasicAuthConfig struct {
	Username string `koanf:"username" json:"username" yaml:"username"`
	Password string `koanf:"password" json:"-" yaml:"-"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}
