package reports

import (
	"context"
	"fmt"
	"strconv"

	"orcamento/internal/core"
	"orcamento/internal/storage"
)

// MesComparativo is the accumulated revenue up to one month in two years.
type MesComparativo struct {
	Mes                int     `json:"mes"`
	NomeMes            string  `json:"nome_mes"`
	AnoAtual           int     `json:"ano_atual"`
	AnoAnterior        int     `json:"ano_anterior"`
	ReceitaAtual       float64 `json:"receita_atual"`
	ReceitaAnterior    float64 `json:"receita_anterior"`
	VariacaoAbsoluta   float64 `json:"variacao_absoluta"`
	VariacaoPercentual float64 `json:"variacao_percentual"`
}

// DatasetGrafico is one line series of the comparison chart.
type DatasetGrafico struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor"`
	BackgroundColor string    `json:"backgroundColor"`
	BorderWidth     int       `json:"borderWidth"`
	Tension         float64   `json:"tension"`
}

// Grafico is the chart payload consumed by the page script.
type Grafico struct {
	Labels   []string         `json:"labels"`
	Datasets []DatasetGrafico `json:"datasets"`
}

// Comparativo is the month-by-month accumulated comparison of net revenue.
type Comparativo struct {
	Meses   []MesComparativo `json:"meses"`
	Grafico Grafico          `json:"grafico"`
}

func (c Comparativo) TemDados() bool { return len(c.Meses) > 0 }

// ComparativoMensal accumulates net revenue month by month for ano and
// ano-1. Months where both accumulations are zero are skipped.
func (s *Service) ComparativoMensal(ctx context.Context, ano int, coug, filtro string) (Comparativo, error) {
	meses, err := s.mesesDoAno(ctx, ano)
	if err != nil {
		return Comparativo{}, err
	}

	a := s.args()
	conds := []string{
		"f.coexercicio IN (" + a.Add(ano) + ", " + a.Add(ano-1) + ")",
		regra(a, core.ReceitaLiquida, "f.cocontacontabil"),
	}
	if coug != "" {
		conds = append(conds, "f.coug = "+a.Add(coug))
	}
	if fl, ok := core.FiltroPorChave(filtro); ok {
		conds = append(conds, filtroCond(a, fl, "f"))
	}
	q := `SELECT f.coexercicio, f.inmes, COALESCE(SUM(f.saldo_contabil), 0)
		FROM ` + s.table(storage.SchemaSaldos, "fato_saldos") + ` f
		WHERE ` + and(conds...) + `
		GROUP BY f.coexercicio, f.inmes`

	rows, err := s.repo.QueryRows(ctx, q, a.Values()...)
	if err != nil {
		return Comparativo{}, fmt.Errorf("query comparativo mensal: %w", err)
	}
	defer rows.Close()

	mensal := map[int]map[int]float64{ano: {}, ano - 1: {}}
	for rows.Next() {
		var ex, mes int
		var v float64
		if err := rows.Scan(&ex, &mes, &v); err != nil {
			return Comparativo{}, fmt.Errorf("scan comparativo mensal: %w", err)
		}
		mensal[ex][mes] += v
	}
	if err := rows.Err(); err != nil {
		return Comparativo{}, fmt.Errorf("iterate comparativo mensal: %w", err)
	}

	return montarComparativo(ano, meses, mensal), nil
}

func montarComparativo(ano int, meses []mesNomeado, mensal map[int]map[int]float64) Comparativo {
	var out Comparativo
	for _, m := range meses {
		var atual, anterior float64
		for i := 1; i <= m.mes; i++ {
			atual += mensal[ano][i]
			anterior += mensal[ano-1][i]
		}
		if atual == 0 && anterior == 0 {
			continue
		}
		v := core.NewVariacao(atual, anterior)
		out.Meses = append(out.Meses, MesComparativo{
			Mes:                m.mes,
			NomeMes:            m.nome,
			AnoAtual:           ano,
			AnoAnterior:        ano - 1,
			ReceitaAtual:       atual,
			ReceitaAnterior:    anterior,
			VariacaoAbsoluta:   v.Absoluta,
			VariacaoPercentual: v.Percentual,
		})
	}
	out.Grafico = graficoComparativo(ano, out.Meses)
	return out
}

func graficoComparativo(ano int, meses []MesComparativo) Grafico {
	g := Grafico{Labels: []string{}, Datasets: []DatasetGrafico{}}
	if len(meses) == 0 {
		return g
	}
	atuais := make([]float64, len(meses))
	anteriores := make([]float64, len(meses))
	for i, m := range meses {
		g.Labels = append(g.Labels, m.NomeMes)
		atuais[i] = m.ReceitaAtual
		anteriores[i] = m.ReceitaAnterior
	}
	g.Datasets = []DatasetGrafico{
		{Label: strconv.Itoa(ano - 1), Data: anteriores, BorderColor: "#95a5a6", BackgroundColor: "rgba(149, 165, 166, 0.1)", BorderWidth: 2, Tension: 0.1},
		{Label: strconv.Itoa(ano), Data: atuais, BorderColor: "#2a5298", BackgroundColor: "rgba(42, 82, 152, 0.1)", BorderWidth: 3, Tension: 0.1},
	}
	return g
}

type mesNomeado struct {
	mes  int
	nome string
}

// mesesDoAno reads the calendar from dim_tempo, defaulting to the twelve
// months when the dimension has not been loaded.
func (s *Service) mesesDoAno(ctx context.Context, ano int) ([]mesNomeado, error) {
	a := s.args()
	q := `SELECT inmes, nome_mes FROM ` + s.table(storage.SchemaSaldos, "dim_tempo") + `
		WHERE coexercicio = ` + a.Add(ano) + ` ORDER BY inmes`
	rows, err := s.repo.QueryRows(ctx, q, a.Values()...)
	if err != nil {
		return nil, fmt.Errorf("query dim_tempo: %w", err)
	}
	defer rows.Close()

	var out []mesNomeado
	for rows.Next() {
		var m mesNomeado
		if err := rows.Scan(&m.mes, &m.nome); err != nil {
			return nil, fmt.Errorf("scan dim_tempo: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		for mes := 1; mes <= 12; mes++ {
			out = append(out, mesNomeado{mes, core.NomeMes(mes)})
		}
	}
	return out, nil
}
