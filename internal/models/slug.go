package models

import "strings"

// GenerateID derives a url-safe slug from a human label: lowercase, strip
// anything outside [a-z0-9\s-], collapse whitespace runs to a single dash,
// collapse repeated dashes, trim leading/trailing dashes. Pure and
// deterministic: the same label always yields the same id.
func GenerateID(label string) string {
	lower := strings.ToLower(label)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteRune('-')
		}
	}
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-")
}
