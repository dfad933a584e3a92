// Package textnorm folds free text coming from attendance exports and job
// titles into a lowercase ASCII form so that keyword matching survives lost
// or mangled diacritics.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/fiam/gounidecode/unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold strips combining marks, transliterates what is left to ASCII,
// lowercases and collapses runs of whitespace.
//
//	Fold("  Mã  Nhân Viên ") == "ma nhan vien"
func Fold(s string) string {
	if s == "" {
		return ""
	}

	// transform.Chain keeps state, so it cannot be shared between goroutines.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	ascii := unidecode.Unidecode(stripped)
	return strings.Join(strings.Fields(strings.ToLower(ascii)), " ")
}

// ContainsAny reports whether the folded form of s contains any of the
// folded keywords.
func ContainsAny(s string, keywords ...string) bool {
	folded := Fold(s)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(folded, Fold(kw)) {
			return true
		}
	}
	return false
}

// HasPrefixAny reports whether the folded form of s, with leading
// punctuation removed, starts with any of the folded prefixes.
func HasPrefixAny(s string, prefixes ...string) bool {
	folded := strings.TrimLeftFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if strings.HasPrefix(folded, Fold(p)) {
			return true
		}
	}
	return false
}
