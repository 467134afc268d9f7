package validation

import (
	"fmt"
	"strings"
)

// Mode controls how validation failures are treated.
type Mode string

const (
	// ModeNone skips validation entirely.
	ModeNone Mode = "none"
	// ModeSoft validates and reports failures without rejecting the value.
	ModeSoft Mode = "soft"
	// ModeHard rejects values that fail validation.
	ModeHard Mode = "hard"
)

// ParseMode converts a configuration string into a Mode. An empty string yields ModeHard.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHard:
		return ModeHard, nil
	case ModeSoft:
		return ModeSoft, nil
	case ModeNone:
		return ModeNone, nil
	default:
		return "", fmt.Errorf("invalid validation mode %q (valid: none, soft, hard)", s)
	}
}

// Or returns m, or fallback when m is unset.
func (m Mode) Or(fallback Mode) Mode {
	if m == "" {
		return fallback
	}
	return m
}
