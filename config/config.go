// Package config loads fetcher configuration from defaults, an optional YAML
// file and APIFETCH_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix of environment variables read by Load.
	EnvPrefix = "APIFETCH_"
	// DefaultFile is the YAML file Load reads when it exists.
	DefaultFile = "apifetch.yaml"
	// FileEnvVar names an alternative YAML file.
	FileEnvVar = EnvPrefix + "CONFIG_FILE"
)

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. YAML configuration file
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	path := os.Getenv(FileEnvVar)
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// The default file is optional; an explicitly named one is not.
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}
	return finish(k)
}

// LoadFromBytes loads configuration from inline YAML on top of the defaults.
// Environment variables are not consulted.
func LoadFromBytes(data []byte) (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnv(k *koanf.Koanf) error {
	provider := env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// APIFETCH_FETCH_RETRY_MAXRETRIES -> fetch.retry.maxretries
			key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_", ".")
			if key == "config.file" {
				return "", nil
			}
			if strings.Contains(value, ",") {
				return key, strings.Split(value, ",")
			}
			return key, value
		},
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"fetch.baseurl":                 "",
		"fetch.validation.request":      "hard",
		"fetch.validation.response":     "hard",
		"fetch.retry.enabled":           false,
		"fetch.retry.maxretries":        3,
		"fetch.retry.basedelay":         "100ms",
		"fetch.retry.maxdelay":          "30s",
		"fetch.retry.respectretryafter": true,

		"transport.timeout":            "30s",
		"transport.ratelimit":          0,
		"transport.burst":              1,
		"transport.traceheader":        "X-Request-ID",
		"transport.w3ctrace":           true,
		"transport.logpayloads":        false,
		"transport.maxpayloadlogbytes": 1024,

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled":           false,
		"observability.service.name":      "go-apifetch",
		"observability.trace.endpoint":    "stdout",
		"observability.trace.protocol":    "http",
		"observability.trace.compression": "gzip",
		"observability.metrics.interval":  "60s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// Exists reports whether key is set in any source.
func (c *Config) Exists(key string) bool {
	return c != nil && c.k != nil && c.k.Exists(key)
}

// GetString retrieves a string value from the configuration or the provided default.
func (c *Config) GetString(key string, defaultVal ...string) string {
	if !c.Exists(key) {
		if len(defaultVal) > 0 {
			return defaultVal[0]
		}
		return ""
	}
	return c.k.String(key)
}

// Keys returns all keys known to the configuration.
func (c *Config) Keys() []string {
	if c == nil || c.k == nil {
		return nil
	}
	return c.k.Keys()
}
