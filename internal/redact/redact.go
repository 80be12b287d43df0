// Package redact scrubs email-like substrings before text reaches the audit
// trail. Detection is intentionally a single regex; this is a prototype PII
// filter, not a real one.
package redact

import (
	"regexp"
)

// Placeholder replaces each detected email address.
const Placeholder = "[REDACTED_EMAIL]"

var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// Emails returns s with every email-like substring replaced by Placeholder.
func Emails(s string) string {
	return emailRe.ReplaceAllString(s, Placeholder)
}

// HasEmail reports whether s contains an email-like substring.
func HasEmail(s string) bool {
	return emailRe.MatchString(s)
}
