package etl

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"orcamento/internal/core"
)

// ParseInteiro reads an integer cell that may come as "2025" or "2025.0".
func ParseInteiro(s string) (int64, error) {
	d, err := core.ParseValor(s)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("inteiro inválido %q", s)
	}
	return d.IntPart(), nil
}

// Texto normalizes a code cell: trims spaces and drops a trailing ".0"
// left by spreadsheets that stored the code as a number.
func Texto(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".0") && strings.IndexFunc(s[:len(s)-2], func(r rune) bool { return r < '0' || r > '9' }) < 0 {
		s = s[:len(s)-2]
	}
	return s
}

var semAcentos = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug lowercases s, strips accents and replaces every other non
// alphanumeric run with a single underscore.
func Slug(s string) string {
	t, _, err := transform.String(semAcentos, s)
	if err != nil {
		t = s
	}
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(t) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
			continue
		}
		sep = true
	}
	return b.String()
}
