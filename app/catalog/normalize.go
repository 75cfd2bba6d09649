package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ligatures = strings.NewReplacer(
	"œ", "oe",
	"æ", "ae",
	"ß", "ss",
	"’", "'",
	"‘", "'",
)

// Basicize lowercases s, strips diacritics and trims surrounding space.
// Every text comparison in the catalog goes through it.
func Basicize(s string) string {
	s = ligatures.Replace(strings.ToLower(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}

	return strings.TrimSpace(out)
}

// Words splits the basicized form of s on whitespace.
func Words(s string) []string {
	return strings.Fields(Basicize(s))
}

// MatchWords reports whether every word of criterion is contained in at
// least one word of candidate.
func MatchWords(criterion, candidate string) bool {
	words := Words(candidate)
	for _, want := range Words(criterion) {
		found := false
		for _, w := range words {
			if strings.Contains(w, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// nameKey reduces an enumeration name to its letters, so "Open (claimed)",
// "open_claimed" and "OPEN CLAIMED" compare equal.
func nameKey(s string) string {
	var b strings.Builder
	for _, r := range Basicize(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
