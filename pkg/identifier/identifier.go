// Package identifier derives stable record ids from human-readable names.
package identifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ForProvider derives a lower-cased provider id, preferring the acronym when
// present. Callers that received an explicit id should pass it through
// Normalize instead; both are idempotent on already-derived ids.
func ForProvider(name, acronym string) string {
	base := acronym
	if strings.TrimSpace(base) == "" {
		base = name
	}

	return strings.ToLower(Normalize(base))
}

// ForService composes a service id as "{providerID}.{name}", lower-cased.
// The "." separator is load-bearing: digest classification tells services
// from providers solely by its presence, which is why Normalize never lets a
// "." survive in a provider id.
func ForService(providerID, serviceName string) string {
	return strings.ToLower(providerID + "." + Normalize(serviceName))
}

// Normalize strips diacritics, drops every character outside
// [A-Za-z0-9 _-], then replaces spaces with underscores.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer(), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder

	for _, r := range folded {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}

	return b.String()
}

// foldTransformer decomposes to NFD, removes combining marks, recomposes.
func foldTransformer() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
