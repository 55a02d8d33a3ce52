package record

import "regexp"

// DOI syntax: 10.<4-9 digit prefix>/<suffix>, case-insensitive.
// Matches the registrant pattern used by Crossref.
var doiPattern = regexp.MustCompile(`^(?i)10\.\d{4,9}/[-._;()/:a-z0-9]+$`)

// ValidateDOI reports whether s is a syntactically valid DOI.
// It performs no network lookup.
func ValidateDOI(s string) bool {
	return doiPattern.MatchString(s)
}
