package policy

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// North American style numbers only, so ISO dates and meeting IDs survive.
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[ .\-]?)?(?:\(\d{3}\)|\b\d{3})[ .\-]?\d{3}[ .\-]\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	// Bearer tokens and query-string secrets in provider error bodies.
	tokenPattern = regexp.MustCompile(`(?i)\b(bearer\s+|access_token=|client_secret=|pwd=)[A-Za-z0-9._\-~+/=]+`)
)

// RedactPII masks common high-risk PII patterns.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	// Run card redaction before phone to avoid card numbers being classified as phone.
	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	next = tokenPattern.ReplaceAllString(out, "${1}[REDACTED_TOKEN]")
	changed = changed || next != out
	out = next

	return out, changed
}

// Redact is RedactPII without the changed flag.
func Redact(input string) string {
	out, _ := RedactPII(input)
	return out
}
