package dedup

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizePhone canonicalizes a phone number for equality comparison.
// Strips everything but digits; 9-10 digit numbers without a leading 39
// get the Italian country code prepended. Idempotent: a number that
// already carries the prefix (or is too short/long to be a domestic
// number) passes through unchanged.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	normalized := b.String()

	if !strings.HasPrefix(normalized, "39") && len(normalized) >= 9 && len(normalized) <= 10 {
		normalized = "39" + normalized
	}
	return normalized
}

// normalizeLastTen keeps only digits and trims to the last 10. Used by the
// fuzzy detector, which compares national significant numbers regardless
// of country prefix.
func normalizeLastTen(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// NormalizeText lowers and trims a name, strips accents (decompose, then
// drop combining marks) and removes all interior whitespace, so that
// "José  Pérez" and "jose perez" compare equal.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}
	return strings.Join(strings.Fields(s), "")
}
