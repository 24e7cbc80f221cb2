package reports

import "orcamento/internal/core"

// Linha is one node of a revenue hierarchy, flattened for rendering.
type Linha struct {
	ID        string `json:"id"`
	Codigo    string `json:"codigo"`
	Descricao string `json:"descricao"`
	Nivel     int    `json:"nivel"`
	Tipo      string `json:"tipo,omitempty"`
	Classes   string `json:"classes,omitempty"`
	PaiID     string `json:"pai_id,omitempty"`
	TemFilhos bool   `json:"tem_filhos"`
	core.Medidas
	VariacaoAbsoluta   float64           `json:"variacao_absoluta"`
	VariacaoPercentual float64           `json:"variacao_percentual"`
	TemLancamentos     bool              `json:"tem_lancamentos"`
	ParamsLancamentos  map[string]string `json:"params_lancamentos,omitempty"`
}

func (l *Linha) calcularVariacao() {
	v := l.Medidas.Variacao()
	l.VariacaoAbsoluta = v.Absoluta
	l.VariacaoPercentual = v.Percentual
}

// Totais are the sums of the top-level rows of a report.
type Totais struct {
	core.Medidas
	VariacaoAbsoluta   float64 `json:"variacao_absoluta"`
	VariacaoPercentual float64 `json:"variacao_percentual"`
}

// CalcularTotais sums the level-0 rows.
func CalcularTotais(linhas []Linha) Totais {
	var t Totais
	for _, l := range linhas {
		if l.Nivel == 0 {
			t.Medidas.Add(l.Medidas)
		}
	}
	v := t.Medidas.Variacao()
	t.VariacaoAbsoluta = v.Absoluta
	t.VariacaoPercentual = v.Percentual
	return t
}
