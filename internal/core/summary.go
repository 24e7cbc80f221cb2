package core

// Medidas are the four revenue measures shared by the revenue reports.
type Medidas struct {
	PrevisaoInicial    float64 `json:"previsao_inicial"`
	PrevisaoAtualizada float64 `json:"previsao_atualizada"`
	ReceitaAtual       float64 `json:"receita_atual"`
	ReceitaAnterior    float64 `json:"receita_anterior"`
}

// Add accumulates o into m.
func (m *Medidas) Add(o Medidas) {
	m.PrevisaoInicial += o.PrevisaoInicial
	m.PrevisaoAtualizada += o.PrevisaoAtualizada
	m.ReceitaAtual += o.ReceitaAtual
	m.ReceitaAnterior += o.ReceitaAnterior
}

// SomaAbsoluta is the sum of absolute values, used to suppress rows that
// only carry rounding noise.
func (m Medidas) SomaAbsoluta() float64 {
	return abs(m.PrevisaoInicial) + abs(m.PrevisaoAtualizada) + abs(m.ReceitaAtual) + abs(m.ReceitaAnterior)
}

// IsZero reports whether every measure is exactly zero.
func (m Medidas) IsZero() bool {
	return m.PrevisaoInicial == 0 && m.PrevisaoAtualizada == 0 && m.ReceitaAtual == 0 && m.ReceitaAnterior == 0
}

// Variacao compares the realized revenue of both years.
func (m Medidas) Variacao() Variacao {
	return NewVariacao(m.ReceitaAtual, m.ReceitaAnterior)
}

// LimiarRuido is the absolute-sum threshold below which rows are hidden.
const LimiarRuido = 0.01

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
