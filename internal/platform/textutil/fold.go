package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s using Turkish casing rules, so "İ" and "I" map to "i"
// and "ı" the way a Turkish shopper types them.
func Fold(s string) string {
	return cases.Lower(language.Turkish).String(strings.TrimSpace(s))
}

// ContainsFold reports whether needle occurs in any of the haystacks after
// folding both sides. An empty needle matches everything.
func ContainsFold(needle string, haystacks ...string) bool {
	needle = Fold(needle)
	if needle == "" {
		return true
	}
	for _, h := range haystacks {
		if strings.Contains(Fold(h), needle) {
			return true
		}
	}
	return false
}

var turkishASCII = strings.NewReplacer(
	"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
)

// Slugify turns a product name into a lowercase ASCII slug.
func Slugify(s string) string {
	folded := turkishASCII.Replace(Fold(s))
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), folded)
	if err != nil {
		stripped = folded
	}

	var b strings.Builder
	dash := false
	for _, r := range stripped {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// NormalizeEmail trims and lower-cases an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeStringSet trims entries, drops blanks and duplicates (after
// folding), and keeps first-seen order.
func NormalizeStringSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := Fold(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
