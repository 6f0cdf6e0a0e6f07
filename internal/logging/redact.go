package logging

import "regexp"

// Patterns for credentials that must never reach the log output. The
// client carries a backend session cookie, so the cookie header and the
// raw token forms are both covered.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9._-]{20,})`),
	regexp.MustCompile(`(?i)(cookie|set-cookie):\s*([^\s;]+)`),
	regexp.MustCompile(`(?i)(session[_-]?token|token|secret|password)[=:]["']?([a-zA-Z0-9+/=_-]{16,})["']?`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces credential material in a string.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}
