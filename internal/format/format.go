// Package format renders numbers the way Brazilian public-finance reports
// show them: dot thousands, comma decimals, parenthesized negatives.
//
// Separators are substituted by hand, so output does not depend on the host
// locale database.
package format

import (
	"math"
	"strconv"
	"strings"
)

// Color selects how signed values are highlighted.
type Color int

const (
	NoColor Color = iota
	HTMLColor
	TerminalColor
)

const (
	ansiRed   = "\033[91m"
	ansiGreen = "\033[92m"
	ansiReset = "\033[0m"

	PrefixoReal = "R$"
)

// Numero formats v with the given decimals, dot thousands and comma decimal.
// With no decimals the fraction is truncated toward zero, not rounded.
func Numero(v float64, casas int) string {
	if casas <= 0 {
		return numero(math.Trunc(v), 0)
	}
	return numero(v, casas)
}

func numero(v float64, casas int) string {
	if casas < 0 {
		casas = 0
	}
	s := strconv.FormatFloat(math.Abs(v), 'f', casas, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if v < 0 && !isZeroString(s) {
		b.WriteByte('-')
	}
	b.WriteString(groupThousands(intPart))
	if casas > 0 {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

// Moeda formats a currency value: "R$ 1.234,50", "(R$ 1.234,50)".
func Moeda(v float64) string {
	return MoedaComPrefixo(&v, PrefixoReal, NoColor)
}

// MoedaPtr treats nil as zero.
func MoedaPtr(v *float64) string {
	return MoedaComPrefixo(v, PrefixoReal, NoColor)
}

// MoedaCor formats a currency value highlighted by sign.
func MoedaCor(v float64, c Color) string {
	return MoedaComPrefixo(&v, PrefixoReal, c)
}

// MoedaComPrefixo is the general currency formatter.
func MoedaComPrefixo(v *float64, prefixo string, c Color) string {
	if v == nil {
		return joinPrefix(prefixo, "0,00")
	}
	val := *v
	texto := joinPrefix(prefixo, numero(math.Abs(val), 2))
	negativo := val < 0 && texto != joinPrefix(prefixo, "0,00")
	if negativo {
		texto = "(" + texto + ")"
	}
	return colorize(texto, val, c)
}

// MoedaOuTraco renders zero as "-", as the RREO tables do.
func MoedaOuTraco(v float64) string {
	if v == 0 {
		return "-"
	}
	return Moeda(v)
}

// Percentual formats a fraction (0.25 is 25%) with a forced "+" on positives.
func Percentual(v float64, casas int) string {
	return PercentualCor(&v, casas, NoColor)
}

// PercentualCor formats a fraction as a signed percentage; nil is "0,00%".
func PercentualCor(v *float64, casas int, c Color) string {
	if v == nil {
		return numero(0, casas) + "%"
	}
	val := *v * 100
	texto := numero(val, casas) + "%"
	if val > 0 && !isZeroString(strings.TrimSuffix(texto, "%")) {
		texto = "+" + texto
	}
	return colorize(texto, val, c)
}

// PercentualPontos formats a value that is already in percentage points.
func PercentualPontos(v float64, casas int) string {
	return Percentual(v/100, casas)
}

// ResumoFinanceiro formats every numeric entry of a summary map. Keys that
// mention "percentual" or "crescimento" are percentages, other numbers are
// currency; non-numeric values pass through unchanged.
func ResumoFinanceiro(resumo map[string]any) map[string]string {
	out := make(map[string]string, len(resumo))
	for k, v := range resumo {
		n, ok := toFloat(v)
		if !ok {
			if s, isStr := v.(string); isStr {
				out[k] = s
			}
			continue
		}
		lower := strings.ToLower(k)
		if strings.Contains(lower, "percentual") || strings.Contains(lower, "crescimento") {
			out[k] = Percentual(n, 2)
		} else {
			out[k] = Moeda(n)
		}
	}
	return out
}

func colorize(texto string, v float64, c Color) string {
	switch c {
	case HTMLColor:
		switch {
		case v < 0:
			return `<span style="color: red;">` + texto + `</span>`
		case v > 0:
			return `<span style="color: green;">` + texto + `</span>`
		}
	case TerminalColor:
		switch {
		case v < 0:
			return ansiRed + texto + ansiReset
		case v > 0:
			return ansiGreen + texto + ansiReset
		}
	}
	return texto
}

func joinPrefix(prefixo, s string) string {
	if prefixo == "" {
		return s
	}
	return prefixo + " " + s
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func isZeroString(s string) bool {
	return strings.Trim(s, "0.,-") == ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
