package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// apostrophes used in Latin-script Uzbek names (oʻ, gʻ) and their common substitutes
var apostrophes = runes.In(&unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0027, Hi: 0x0027, Stride: 1}, // '
		{Lo: 0x0060, Hi: 0x0060, Stride: 1}, // `
		{Lo: 0x02BB, Hi: 0x02BC, Stride: 1}, // ʻ ʼ
		{Lo: 0x2018, Hi: 0x2019, Stride: 1}, // ‘ ’
	},
})

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for lookup: lowercase, no diacritics,
// no apostrophes, and dashes, underscores and repeated spaces folded to one space.
// Gallery folders are named "Name_Surname", so "ali_valiyev" and "Ali Valiyev" compare equal.
func NormalizePersonName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), runes.Remove(apostrophes), norm.NFC)
	name, _, _ = transform.String(t, name)
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}
