package logger

import (
	"log/slog"
	"strconv"
	"strings"
)

// DefaultMaxValueLen is the longest string attribute logged verbatim.
const DefaultMaxValueLen = 256

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"credential",
	"auth",
}

// Attribute keys that carry stored user data. Only their size is logged.
var payloadKeys = []string{
	"value",
	"payload",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive rewrites an attribute before it is emitted: secrets are
// replaced, stored values are reduced to their size and long strings are
// truncated to maxLen bytes.
func redactSensitive(a slog.Attr, maxLen int) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		strVal := a.Value.String()
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if isPayloadKey(a.Key) {
			return slog.String(a.Key, sizeOnly(len(strVal)))
		}
		if len(strVal) > maxLen {
			return slog.String(a.Key, Truncate(strVal, maxLen))
		}

	case slog.KindAny:
		if b, ok := a.Value.Any().([]byte); ok {
			if IsSensitiveKey(a.Key) && len(b) > 0 {
				return slog.String(a.Key, redactedValue)
			}
			if isPayloadKey(a.Key) {
				return slog.String(a.Key, sizeOnly(len(b)))
			}
			return slog.String(a.Key, Truncate(string(b), maxLen))
		}

	case slog.KindGroup:
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr, maxLen)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

func sizeOnly(n int) string {
	return "<" + strconv.Itoa(n) + " bytes>"
}

func isPayloadKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, k := range payloadKeys {
		if keyLower == k {
			return true
		}
	}
	return false
}

// Truncate shortens s to at most maxLen bytes and notes how much was cut.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...(+" + strconv.Itoa(len(s)-maxLen) + " bytes)"
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
