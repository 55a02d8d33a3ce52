// Package pdf extracts DOIs from paper PDFs so a contributor can run
// the duplicate check straight from a downloaded file.
package pdf

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/matsen/ccslog/internal/record"
)

// DOI pattern: 10.<4-9 digits>/<suffix>. Looser than the canonical
// validator because PDF text runs DOIs into surrounding words; each
// candidate is trimmed and re-validated before being returned.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// maxScanPages bounds the search; the DOI is nearly always on page 1.
const maxScanPages = 3

// ExtractDOI extracts a DOI from a PDF file. Not finding one is not an
// error: the result is empty and the caller falls back to manual entry.
func ExtractDOI(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pages := maxScanPages
	if r.NumPage() < pages {
		pages = r.NumPage()
	}

	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		if doi := FindDOI(text); doi != "" {
			return doi, nil
		}
	}

	return "", nil
}

// FindDOI finds the first valid DOI in free text.
func FindDOI(text string) string {
	for _, candidate := range doiPattern.FindAllString(text, -1) {
		// Trailing sentence punctuation is part of the match but not
		// of the DOI.
		candidate = strings.TrimRight(candidate, ".,;:)")
		if record.ValidateDOI(candidate) {
			return candidate
		}
	}
	return ""
}
