package logger

import (
	"strings"
)

var sensitiveQueryParams = []string{
	"password",
	"token",
	"secret",
	"email",
	"auth",
	"jwt",
}

// SanitizedEmail masks an email address for logging, e.g. "a***@*******.com"
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	if len(local) > 1 {
		local = local[:1] + strings.Repeat("*", len(local)-1)
	}

	// keep the TLD only
	labels := strings.Split(domain, ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = strings.Repeat("*", len(labels[i]))
	}

	return local + "@" + strings.Join(labels, ".")
}

// SanitizeQueryString reports whether the raw query mentions a sensitive
// parameter, in which case the whole query should be left out of logs
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveQueryParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
