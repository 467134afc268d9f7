package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/gaborage/go-apifetch/validation"
)

var (
	validLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}
	validModes  = []string{string(validation.ModeNone), string(validation.ModeSoft), string(validation.ModeHard)}
)

// Validate checks cfg and returns the first problem found.
func Validate(cfg *Config) error {
	if err := validateFetch(&cfg.Fetch); err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}

	if err := validateTransport(&cfg.Transport); err != nil {
		return fmt.Errorf("transport config: %w", err)
	}

	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	if err := cfg.Observability.Validate(); err != nil {
		return fmt.Errorf("observability config: %w", err)
	}

	return nil
}

func validateFetch(cfg *FetchConfig) error {
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return NewValidationError("fetch.baseurl", fmt.Sprintf("must be an absolute url, got %q", cfg.BaseURL))
		}
	}

	if _, err := validation.ParseMode(cfg.Validation.Request); err != nil {
		return NewInvalidFieldError("fetch.validation.request", err.Error(), validModes)
	}
	if _, err := validation.ParseMode(cfg.Validation.Response); err != nil {
		return NewInvalidFieldError("fetch.validation.response", err.Error(), validModes)
	}

	return validateRetry(&cfg.Retry)
}

// validateRetry checks the retry settings only when retries are enabled.
func validateRetry(cfg *RetryConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.MaxRetries < 0 {
		return NewValidationError("fetch.retry.maxretries", "must not be negative")
	}
	if cfg.BaseDelay < 0 {
		return NewValidationError("fetch.retry.basedelay", "must not be negative")
	}
	if cfg.MaxDelay < 0 {
		return NewValidationError("fetch.retry.maxdelay", "must not be negative")
	}
	if cfg.MaxDelay > 0 && cfg.MaxDelay < cfg.BaseDelay {
		return NewValidationError("fetch.retry.maxdelay", "must not be lower than fetch.retry.basedelay")
	}

	for _, status := range cfg.Statuses {
		if status < 100 || status > 599 {
			return NewValidationError("fetch.retry.statuses", fmt.Sprintf("invalid status code %d (must be 100-599)", status))
		}
	}

	return nil
}

func validateTransport(cfg *TransportConfig) error {
	if cfg.Timeout < 0 {
		return NewValidationError("transport.timeout", "must not be negative")
	}
	if cfg.RateLimit < 0 {
		return NewValidationError("transport.ratelimit", "must not be negative")
	}
	if cfg.RateLimit > 0 && cfg.Burst <= 0 {
		return NewValidationError("transport.burst", "must be positive when transport.ratelimit is set")
	}
	if cfg.MaxPayloadLogBytes < 0 {
		return NewValidationError("transport.maxpayloadlogbytes", "must not be negative")
	}
	if cfg.BasicAuth.Username != "" && cfg.BasicAuth.Password == "" {
		return NewMissingFieldError("transport.basicauth.password")
	}

	return nil
}

func validateLog(cfg *LogConfig) error {
	if !slices.Contains(validLevels, strings.ToLower(cfg.Level)) {
		return NewInvalidFieldError("log.level", fmt.Sprintf("invalid log level: %s", cfg.Level), validLevels)
	}

	return nil
}
