package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"
)

// Duration is a time.Duration read from text such as "10s" or "250ms", the
// form used for timeouts and intervals in config files and DIRECTORYD_* env
// vars.
type Duration time.Duration

// ErrNegativeDuration is returned for durations below zero.
var ErrNegativeDuration = errors.New("duration must not be negative")

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("%q: %w", text, ErrNegativeDuration)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

const redacted = "[REDACTED]"

// ErrSecretInvalid is returned for secrets that cannot be sent in an HTTP
// header.
var ErrSecretInvalid = errors.New("secret must not contain whitespace or control characters")

// Secret is the upstream bearer token. It prints as "[REDACTED]" through
// fmt, JSON, YAML and text; only Value exposes it.
type Secret string

func (s Secret) redact() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) String() string { return s.redact() }

func (s Secret) GoString() string { return "Secret(" + redacted + ")" }

// Value returns the token for the Authorization header.
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether a token is configured.
func (s Secret) IsSet() bool {
	return s != ""
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.redact()), nil
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.redact())
}

// MarshalYAML keeps `directoryd config` output redacted.
func (s Secret) MarshalYAML() (any, error) {
	return s.redact(), nil
}

// UnmarshalText trims the trailing newline a token file or env var often
// carries and rejects anything else that would corrupt the header.
func (s *Secret) UnmarshalText(text []byte) error {
	v := strings.TrimSpace(string(text))
	if strings.IndexFunc(v, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return ErrSecretInvalid
	}
	*s = Secret(v)
	return nil
}
