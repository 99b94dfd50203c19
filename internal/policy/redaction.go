// Package policy masks high-risk PII before conversation turns are archived.
package policy

import "regexp"

type redactionRule struct {
	pattern *regexp.Regexp
	mask    string
}

// Rule order matters: card numbers must be masked before the phone rule can
// misclassify them.
var rules = []redactionRule{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[REDACTED_PHONE]"},
}

// Redact masks common PII patterns and reports whether anything changed.
func Redact(input string) (string, bool) {
	out := input
	changed := false
	for _, r := range rules {
		next := r.pattern.ReplaceAllString(out, r.mask)
		if next != out {
			changed = true
			out = next
		}
	}
	return out, changed
}
