package pagecontext

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sanitizer turns an identifier into a tag fragment.
type Sanitizer func(raw string) string

var percentOctet = regexp.MustCompile(`%[a-fA-F0-9]{2}`)

// Sanitize lowercases raw and reduces it to the charset [a-z0-9_-]. Accents
// are folded onto their base letter, percent encoded octets are dropped and
// every other disallowed rune becomes a hyphen. Runs of hyphens collapse to
// one and hyphens at either end are trimmed.
func Sanitize(raw string) string {
	raw = percentOctet.ReplaceAllString(raw, "")
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), raw)
	if err == nil {
		raw = folded
	}

	var b strings.Builder
	b.Grow(len(raw))
	pendingHyphen := false
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}
