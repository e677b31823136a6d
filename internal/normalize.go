package internal

import (
	"strings"
	"unicode"
)

// NormalizeString title-cases strings that are entirely upper or lower case and leaves
// mixed-case strings untouched, so curated capitalisation like "McDonald" survives.
func NormalizeString(s string) string {
	if isUpper(s) || isLower(s) {
		return titleCase(s)
	}
	return s
}

func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func isLower(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

// titleCase upper-cases every letter that follows a non-letter and lower-cases the rest,
// so "ST-JEAN D'ANGELY" becomes "St-Jean D'Angely".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
