package directory

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes the string, drops combining marks, and recomposes,
// so "Jiří" becomes "Jiri".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldName folds a person name for comparison: diacritics removed,
// lowercased, dashes treated as spaces. HR records and search input rarely
// agree on accents, so both sides are folded before matching.
func FoldName(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)
	return strings.ReplaceAll(folded, "-", " ")
}
