package fantamarket

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText collapses runs of whitespace and trims the result.
// It is the form in which aliases are stored.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FoldKey returns the case-folded normalized text. Two texts with the same key are the
// same alias.
func FoldKey(s string) string {
	// Casers are stateful, one per call.
	return cases.Fold().String(NormalizeText(s))
}

// NameKey returns the key used to match player names across imports: punctuation becomes
// space, accents are removed, case is folded.
//
//	NameKey("Kone'") == NameKey("koné") == "kone"
func NameKey(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '\'', '?', '’':
			return ' '
		}
		return r
	}, s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return FoldKey(stripped)
}
