package render

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// placeholderPattern matches {{name}} where name is made of letters, marks,
// digits and underscores in any script.
var placeholderPattern = regexp.MustCompile(`\{\{([\p{L}\p{M}\p{N}_]+)\}\}`)

// Lookup resolves a placeholder name to its replacement text
type Lookup func(name string) (string, bool)

// MapLookup chains maps into a Lookup; earlier maps win.
func MapLookup(maps ...map[string]string) Lookup {
	normalized := make([]map[string]string, len(maps))
	for i, m := range maps {
		normalized[i] = NormalizeKeys(m)
	}
	return func(name string) (string, bool) {
		for _, m := range normalized {
			if v, ok := m[name]; ok {
				return v, true
			}
		}
		return "", false
	}
}

// Chain tries each lookup in turn; the first hit wins.
func Chain(lookups ...Lookup) Lookup {
	return func(name string) (string, bool) {
		for _, lookup := range lookups {
			if lookup == nil {
				continue
			}
			if v, ok := lookup(name); ok {
				return v, true
			}
		}
		return "", false
	}
}

// NormalizeKey puts a placeholder name in NFC so that decomposed input
// (as typed on some platforms) matches composed keys.
func NormalizeKey(name string) string {
	return norm.NFC.String(name)
}

// NormalizeKeys returns a copy of m with NFC keys
func NormalizeKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[NormalizeKey(k)] = v
	}
	return out
}

// HasPlaceholder reports whether s contains at least one {{name}} token
func HasPlaceholder(s string) bool {
	return placeholderPattern.MatchString(norm.NFC.String(s))
}

// Placeholders returns the distinct placeholder names in s, in order of appearance
func Placeholders(s string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(norm.NFC.String(s), -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Substitute replaces every known placeholder in s. Unknown placeholders are
// left verbatim so missing keys stay visible in the output.
func Substitute(s string, lookup Lookup) string {
	s = norm.NFC.String(s)
	return placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := token[2 : len(token)-2]
		if value, ok := lookup(name); ok {
			return Sanitize(value)
		}
		return token
	})
}

// Sanitize makes a replacement value safe for an a:t element: vertical tabs
// and form feeds become newlines, other control characters except tab, CR and
// LF are removed.
func Sanitize(s string) string {
	if !strings.ContainsFunc(s, isControl) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\x0b' || r == '\x0c' {
			b.WriteByte('\n')
			continue
		}
		if isControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 && r != '\t' && r != '\n' && r != '\r'
}
