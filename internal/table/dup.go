package table

import "strings"

// MatchDOI returns the rows recorded for the given DOI.
// Matching is case-insensitive, as DOIs are.
func MatchDOI(rows []Row, doi string) []Row {
	doi = strings.ToLower(strings.TrimSpace(doi))
	var matches []Row
	for _, r := range rows {
		if strings.ToLower(r.DOI) == doi {
			matches = append(matches, r)
		}
	}
	return matches
}

// Exists reports whether a paper is already present in the table and
// returns its rows. The result is advisory: the entry workflow warns on
// an existing DOI but does not block further entry.
func Exists(rows []Row, doi string) (bool, []Row) {
	matches := MatchDOI(rows, doi)
	return len(matches) > 0, matches
}
