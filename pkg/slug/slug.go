package slug

import (
	"regexp"
	"strings"
)

// Separator joins the slugs produced by Join. Generate collapses repeated
// hyphens, so the separator never appears inside a single slug.
const Separator = "--"

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Turkish characters are transliterated; fabric and color names in the
// catalog use them ("Keten Karışım", "Açık Gri").
var transliterator = strings.NewReplacer(
	"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
	"Ç", "c", "Ğ", "g", "İ", "i", "Ö", "o", "Ş", "s", "Ü", "u",
)

// Generate creates a URL-friendly slug from the given name.
//
// Examples:
//   - "Açık Gri" → "acik-gri"
//   - "Keten / Pamuk" → "keten-pamuk"
//   - "XL " → "xl"
func Generate(name string) string {
	s := transliterator.Replace(strings.TrimSpace(name))
	s = strings.ToLower(s)
	s = slugRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Join slugs each part, skips the ones that slug to nothing and joins the
// rest with Separator. Join("Red", "", "M") is "red--m".
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := Generate(p); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, Separator)
}
