package dedup

import "strings"

// Prefix lengths required by the strict name matcher. First names must
// agree on a longer prefix than last names; both are capped by the
// shorter of the two tokens being compared.
const (
	firstNamePrefix = 6
	lastNamePrefix  = 4
)

// IsNameMatch reports whether a candidate name should be treated as the
// same identity as a stored name.
//
// The comparison is deliberately asymmetric: input is the querying side,
// dbName the stored side. A bare first name matches any stored record
// sharing the first-name prefix ("Mario" matches "Mario Rossi"), but a
// two-part input requires the stored name to carry a matching last name
// too ("Mario Rossi" does not match "Mario"). Callers must not swap the
// arguments to "fix" this; the grouping contract depends on the
// direction.
func IsNameMatch(input, dbName string) bool {
	inputParts := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	dbParts := strings.Fields(strings.ToLower(strings.TrimSpace(dbName)))

	if len(inputParts) == 0 || len(dbParts) == 0 {
		return false
	}

	if !prefixMatch(inputParts[0], dbParts[0], firstNamePrefix) {
		return false
	}

	// A two-part input must fully qualify: the stored record needs a last
	// name and it has to agree on the shorter prefix.
	if len(inputParts) > 1 {
		if len(dbParts) < 2 {
			return false
		}
		inputLast := inputParts[len(inputParts)-1]
		dbLast := dbParts[len(dbParts)-1]
		if !prefixMatch(inputLast, dbLast, lastNamePrefix) {
			return false
		}
	}

	return true
}

// prefixMatch compares a and b on the first min(limit, len(a), len(b))
// bytes. Tokens are already lowercased.
func prefixMatch(a, b string, limit int) bool {
	n := limit
	if len(a) < n {
		n = len(a)
	}
	if len(b) < n {
		n = len(b)
	}
	return a[:n] == b[:n]
}

// PhonesMatch reports byte equality of the normalized forms. Both sides
// must be non-empty before normalization; a record without a phone never
// matches on phone.
func PhonesMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return NormalizePhone(a) == NormalizePhone(b)
}

// EmailsMatch reports case-insensitive equality. No normalization beyond
// case folding: "mario+crm@x.it" and "mario@x.it" are different people.
func EmailsMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
