package reports

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"orcamento/internal/core"
	"orcamento/internal/storage"
)

// CardUG is the revenue summary of one managing unit.
type CardUG struct {
	Codigo             string  `json:"codigo"`
	Nome               string  `json:"nome"`
	DescricaoCompleta  string  `json:"descricao_completa"`
	ReceitaRealizada   float64 `json:"receita_realizada"`
	ReceitaAnterior    float64 `json:"receita_anterior"`
	VariacaoAbsoluta   float64 `json:"variacao_absoluta"`
	VariacaoPercentual float64 `json:"variacao_percentual"`
}

// Icone depends on the size band of the realized revenue.
func (c CardUG) Icone() string {
	switch PorteDe(c.ReceitaRealizada) {
	case PorteGrande:
		return "🏛️"
	case PorteMedio:
		return "🏢"
	case PortePequeno:
		return "🏘️"
	}
	return "🏠"
}

// Porte is a size band of unit revenue.
type Porte string

const (
	PorteGrande  Porte = "grandes"
	PorteMedio   Porte = "medias"
	PortePequeno Porte = "pequenas"
	PorteMicro   Porte = "micro"
)

var rotulosPorte = map[Porte]string{
	PorteGrande:  "Grandes (> R$ 100M)",
	PorteMedio:   "Médias (R$ 10M - R$ 100M)",
	PortePequeno: "Pequenas (R$ 1M - R$ 10M)",
	PorteMicro:   "Micro (< R$ 1M)",
}

// PorteDe classifies a revenue value.
func PorteDe(v float64) Porte {
	switch {
	case v >= 100_000_000:
		return PorteGrande
	case v >= 10_000_000:
		return PorteMedio
	case v >= 1_000_000:
		return PortePequeno
	}
	return PorteMicro
}

// FaixaPorte groups the cards of one size band.
type FaixaPorte struct {
	Porte    Porte    `json:"porte"`
	Rotulo   string   `json:"rotulo"`
	Unidades []CardUG `json:"unidades"`
}

// TotaisCards summarizes all cards.
type TotaisCards struct {
	TotalUnidades           int     `json:"total_unidades"`
	ReceitaTotal            float64 `json:"receita_total"`
	ReceitaTotalAnterior    float64 `json:"receita_total_anterior"`
	VariacaoTotalAbsoluta   float64 `json:"variacao_total_absoluta"`
	VariacaoTotalPercentual float64 `json:"variacao_total_percentual"`
	MaiorReceita            *CardUG `json:"maior_receita,omitempty"`
	MaiorCrescimento        *CardUG `json:"maior_crescimento,omitempty"`
	MaiorQueda              *CardUG `json:"maior_queda,omitempty"`
}

// Cards is the payload of the unit cards section.
type Cards struct {
	Unidades []CardUG     `json:"unidades"`
	Faixas   []FaixaPorte `json:"faixas"`
	Totais   TotaisCards  `json:"totais"`
}

func (c Cards) TemDados() bool { return len(c.Unidades) > 0 }

// CardsUnidades lists units with positive realized net revenue up to mes,
// ordered by revenue descending.
func (s *Service) CardsUnidades(ctx context.Context, ano, mes int, filtro string) (Cards, error) {
	a := s.args()
	condAtual := []string{"f.coexercicio = " + a.Add(ano), "f.inmes <= " + a.Add(mes), regra(a, core.ReceitaLiquida, "f.cocontacontabil")}
	condAnterior := []string{"f.coexercicio = " + a.Add(ano-1), "f.inmes <= " + a.Add(mes), regra(a, core.ReceitaLiquida, "f.cocontacontabil")}
	if fl, ok := core.FiltroPorChave(filtro); ok {
		condAtual = append(condAtual, filtroCond(a, fl, "f"))
		condAnterior = append(condAnterior, filtroCond(a, fl, "f"))
	}

	q := `SELECT coug, noug, receita_realizada, receita_anterior FROM (
			SELECT f.coug AS coug, ug.noug AS noug,
				` + sumWhen(and(condAtual...), "f.saldo_contabil") + ` AS receita_realizada,
				` + sumWhen(and(condAnterior...), "f.saldo_contabil") + ` AS receita_anterior
			FROM ` + s.table(storage.SchemaSaldos, "fato_saldos") + ` f
			LEFT JOIN ` + s.table(storage.SchemaDimensoes, "unidades_gestoras") + ` ug ON f.coug = ug.coug
			WHERE f.coug IS NOT NULL AND f.coug <> ''
			GROUP BY f.coug, ug.noug
		) u
		WHERE receita_realizada > 0
		ORDER BY receita_realizada DESC, coug`

	rows, err := s.repo.QueryRows(ctx, q, a.Values()...)
	if err != nil {
		return Cards{}, fmt.Errorf("query cards unidades: %w", err)
	}
	defer rows.Close()

	var unidades []CardUG
	for rows.Next() {
		var c CardUG
		var nome sql.NullString
		if err := rows.Scan(&c.Codigo, &nome, &c.ReceitaRealizada, &c.ReceitaAnterior); err != nil {
			return Cards{}, fmt.Errorf("scan card unidade: %w", err)
		}
		c.Nome = nullString(nome, "UG "+c.Codigo)
		c.DescricaoCompleta = c.Codigo + " - " + c.Nome
		c.VariacaoAbsoluta = c.ReceitaRealizada - c.ReceitaAnterior
		c.VariacaoPercentual = 100
		if c.ReceitaAnterior > 0 {
			c.VariacaoPercentual = c.VariacaoAbsoluta / c.ReceitaAnterior * 100
		}
		unidades = append(unidades, c)
	}
	if err := rows.Err(); err != nil {
		return Cards{}, fmt.Errorf("iterate cards unidades: %w", err)
	}

	return Cards{Unidades: unidades, Faixas: agruparPorPorte(unidades), Totais: totaisCards(unidades)}, nil
}

func agruparPorPorte(unidades []CardUG) []FaixaPorte {
	ordem := []Porte{PorteGrande, PorteMedio, PortePequeno, PorteMicro}
	idx := map[Porte]int{}
	out := make([]FaixaPorte, len(ordem))
	for i, p := range ordem {
		out[i] = FaixaPorte{Porte: p, Rotulo: rotulosPorte[p], Unidades: []CardUG{}}
		idx[p] = i
	}
	for _, u := range unidades {
		i := idx[PorteDe(u.ReceitaRealizada)]
		out[i].Unidades = append(out[i].Unidades, u)
	}
	return out
}

func totaisCards(unidades []CardUG) TotaisCards {
	t := TotaisCards{TotalUnidades: len(unidades)}
	if len(unidades) == 0 {
		return t
	}
	var comHistorico []CardUG
	for i := range unidades {
		u := unidades[i]
		t.ReceitaTotal += u.ReceitaRealizada
		t.ReceitaTotalAnterior += u.ReceitaAnterior
		if t.MaiorReceita == nil || u.ReceitaRealizada > t.MaiorReceita.ReceitaRealizada {
			t.MaiorReceita = &unidades[i]
		}
		if u.ReceitaAnterior > 0 {
			comHistorico = append(comHistorico, u)
		}
	}
	t.VariacaoTotalAbsoluta = t.ReceitaTotal - t.ReceitaTotalAnterior
	if t.ReceitaTotalAnterior > 0 {
		t.VariacaoTotalPercentual = t.VariacaoTotalAbsoluta / t.ReceitaTotalAnterior * 100
	}

	if len(comHistorico) > 0 {
		sort.SliceStable(comHistorico, func(i, j int) bool {
			return comHistorico[i].VariacaoPercentual > comHistorico[j].VariacaoPercentual
		})
		if maior := comHistorico[0]; maior.VariacaoPercentual > 0 {
			t.MaiorCrescimento = &maior
		}
		if menor := comHistorico[len(comHistorico)-1]; menor.VariacaoPercentual < 0 {
			t.MaiorQueda = &menor
		}
	}
	return t
}
