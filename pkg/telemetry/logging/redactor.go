package logging

import (
	"regexp"
	"strings"
)

// Redactor scrubs credentials from log output. The gateway handles
// provider API keys and OAuth tokens on every request, so both
// sensitive key names and token-shaped substrings are masked before a
// record reaches a handler or the ring.
type Redactor struct {
	patterns []redactPattern
}

// redactPattern contains a compiled regex and its replacement.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			{
				// Anthropic and OpenAI style secret keys.
				name:        "api_key",
				regex:       regexp.MustCompile(`sk-[a-zA-Z0-9\-_]+`),
				replacement: "sk-***",
			},
			{
				name:        "bearer_token",
				regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
				replacement: "Bearer ***",
			},
			{
				// URL query credentials (?api_key=..., &token=...).
				name:        "query_credential",
				regex:       regexp.MustCompile(`([?&](?:api_key|apikey|token|key)=)[^&\s]+`),
				replacement: "$1***",
			},
		},
	}
}

// RedactString masks credential-shaped substrings in a value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}
	return redacted
}

// sensitiveKeys are attribute-name fragments whose values are always
// masked, whatever their shape.
var sensitiveKeys = []string{
	"api_key", "apikey",
	"token",
	"secret",
	"authorization",
	"password",
	"code_verifier",
}

// IsSensitiveKey reports whether an attribute name indicates a
// credential value.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// RedactValue fully masks a value, keeping a short prefix of longer
// strings so operators can tell credentials apart.
func RedactValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***"
}
