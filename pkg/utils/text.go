package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips combining diacritics, so "Číslo" and "cislo"
// compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// ContainsFolded reports whether the folded haystack contains any of the
// folded terms.
func ContainsFolded(haystack string, terms []string) bool {
	h := Fold(haystack)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(h, Fold(term)) {
			return true
		}
	}
	return false
}

// HasLetter reports whether s contains at least one alphabetic rune.
func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
