package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces secrets in log output.
const RedactedValue = "[REDACTED]"

// Log keys whose values are never secret. Anything else passed through
// MaskField is hidden.
var plainKeys = map[string]struct{}{
	"address":   {},
	"code":      {},
	"component": {},
	"endpoint":  {},
	"error":     {},
	"height":    {},
	"method":    {},
	"remote":    {},
	"seller":    {},
	"tx":        {},
}

func isPlain(key string) bool {
	_, ok := plainKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// Redact hides a non-empty secret. An empty value is returned as is so a
// missing secret is still visible in the logs.
func Redact(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField builds a string attribute, redacting value unless key is known
// to carry public data.
func MaskField(key, value string) slog.Attr {
	if isPlain(key) {
		return slog.String(key, value)
	}
	return slog.String(key, Redact(value))
}
