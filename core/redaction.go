package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const RedactedValue = "[REDACTED]"

// RedactSensitiveMap returns a deep copy of metadata with credential-bearing
// keys replaced by RedactedValue. Traceability keys survive untouched so
// diagnostics stay correlatable.
func RedactSensitiveMap(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return redactSensitiveMap(metadata)
}

// RedactHeaders redacts sensitive header values while preserving the header
// names, so logs show which headers were present.
func RedactHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	target := make(map[string]string, len(headers))
	for key, value := range headers {
		if shouldRedactKey(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = value
	}
	return target
}

// SanitizeBodyForLog renders a request or response body for diagnostics.
// JSON objects and arrays are deep-redacted by key; anything else is
// summarized by size so raw payloads never reach the logs. Bodies of
// authentication-endpoint calls are redacted whole with fullyRedact.
func SanitizeBodyForLog(body []byte, fullyRedact bool) any {
	if len(body) == 0 {
		return nil
	}
	if fullyRedact {
		return RedactedValue
	}
	var decoded any
	if err := json.Unmarshal(bytes.TrimSpace(body), &decoded); err == nil {
		switch decoded.(type) {
		case map[string]any, []any:
			return redactSensitiveValue(decoded)
		}
	}
	return fmt.Sprintf("<%d bytes>", len(body))
}

func redactSensitiveMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if shouldRedactKey(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = redactSensitiveValue(value)
	}
	return target
}

func redactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactSensitiveMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactSensitiveValue(typed[i])
		}
		return out
	default:
		return value
	}
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	sensitiveTokens := []string{
		"password",
		"secret",
		"token",
		"authorization",
		"api_key",
		"apikey",
		"access_key",
		"refresh",
		"credential",
		"signature",
		"cookie",
	}
	for _, token := range sensitiveTokens {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}

func isTraceabilityKey(key string) bool {
	switch key {
	case "correlation_id",
		"request_id",
		"trace_id",
		"client_name",
		"status_code",
		"method",
		"path",
		"attempt",
		"idempotency_key":
		return true
	default:
		return false
	}
}
