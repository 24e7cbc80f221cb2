package http

import (
	"encoding/json"
	"html/template"
	"strings"

	"orcamento/internal/core"
	"orcamento/internal/format"
)

// templateFuncs are the formatting helpers available to every template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"moeda":        format.Moeda,
		"moedaOuTraco": format.MoedaOuTraco,
		"moedaCor": func(v float64) template.HTML {
			return template.HTML(format.MoedaCor(v, format.HTMLColor))
		},
		// variations are carried in percentage points
		"percentual": func(v float64) string {
			return format.PercentualPontos(v, 2)
		},
		"percentualCor": func(v float64) template.HTML {
			f := v / 100
			return template.HTML(format.PercentualCor(&f, 2, format.HTMLColor))
		},
		"numero":  format.Numero,
		"nomeMes": core.NomeMes,
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		"indent": func(nivel int) string {
			if nivel <= 0 {
				return ""
			}
			return strings.Repeat(" ", 4*nivel)
		},
		"add": func(a, b int) int { return a + b },
		"seq": func(from, to int) []int {
			var out []int
			for i := from; i <= to; i++ {
				out = append(out, i)
			}
			return out
		},
		"classeValor": func(v float64) string {
			switch {
			case v < 0:
				return "negativo"
			case v > 0:
				return "positivo"
			}
			return ""
		},
	}
}

// pontoGrafico is one slice of a pie chart.
type pontoGrafico struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}
