package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SimplifyName folds a name for matching: lower case, accents stripped,
// other non-ASCII runes dropped and every remaining non-alphanumeric rune
// replaced by a space. "Élodie Brûlé-2" becomes "elodie brule 2".
func SimplifyName(s string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
		runes.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return ' '
		}),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// NameContains reports whether the simplified sub is contained in the
// simplified s.
func NameContains(s, sub string) bool {
	return strings.Contains(SimplifyName(s), SimplifyName(sub))
}
