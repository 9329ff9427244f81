package flowformat

import (
	"strconv"
	"strings"
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeAttr escapes the five XML special characters of an attribute value. Every
// character is escaped exactly once so & is never doubled.
func EscapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

var namedEntities = map[string]rune{
	"amp":  '&',
	"lt":   '<',
	"gt":   '>',
	"quot": '"',
	"apos": '\'',
}

// UnescapeAttr resolves the predefined and numeric character references in s. References
// it cannot resolve are kept verbatim and reported through ok.
func UnescapeAttr(s string) (_ string, ok bool) {
	if !strings.ContainsRune(s, '&') {
		return s, true
	}
	ok = true
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '&')
		if i == -1 {
			b.WriteString(s)
			return b.String(), ok
		}
		b.WriteString(s[:i])
		s = s[i:]

		j := strings.IndexByte(s, ';')
		if j == -1 {
			b.WriteString(s)
			return b.String(), false
		}
		r, resolved := resolveEntity(s[1:j])
		if !resolved {
			ok = false
			b.WriteString(s[:j+1])
		} else {
			b.WriteRune(r)
		}
		s = s[j+1:]
	}
}

func resolveEntity(name string) (rune, bool) {
	if r, ok := namedEntities[name]; ok {
		return r, true
	}
	if !strings.HasPrefix(name, "#") {
		return 0, false
	}
	name = name[1:]
	base := 10
	if strings.HasPrefix(name, "x") {
		name = name[1:]
		base = 16
	}
	n, err := strconv.ParseUint(name, base, 32)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}
