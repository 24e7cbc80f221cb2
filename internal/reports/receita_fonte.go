package reports

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"orcamento/internal/core"
	"orcamento/internal/storage"
)

// ParamsReceitaFonte selects a revenue by alínea/fonte report.
type ParamsReceitaFonte struct {
	Tipo   core.TipoRelatorio
	Ano    int
	Mes    int
	COUG   string
	Filtro string
}

// RelatorioReceitaFonte is the JSON payload of the revenue by source report.
type RelatorioReceitaFonte struct {
	Tipo            core.TipoRelatorio `json:"tipo"`
	Dados           []Linha            `json:"dados"`
	Totais          Totais             `json:"totais"`
	TemDados        bool               `json:"tem_dados"`
	COUGSelecionada string             `json:"coug_selecionada"`
}

type dimensao struct {
	coluna     string
	tabela     string
	colunaNome string
}

var (
	dimAlinea = dimensao{coluna: "coalinea", tabela: "alineas", colunaNome: "noalinea"}
	dimFonte  = dimensao{coluna: "cofonte", tabela: "fontes", colunaNome: "nofonte"}
)

type receitaFonteRow struct {
	primario, secundario string
	nomeP, nomeS         sql.NullString
	core.Medidas
}

// ReceitaFonte builds the two-level revenue report: by alínea then fonte
// (tipo receita) or by fonte then alínea (tipo fonte).
func (s *Service) ReceitaFonte(ctx context.Context, p ParamsReceitaFonte) (RelatorioReceitaFonte, error) {
	primaria, secundaria := dimAlinea, dimFonte
	switch p.Tipo {
	case core.TipoReceita:
	case core.TipoFonte:
		primaria, secundaria = dimFonte, dimAlinea
	default:
		return RelatorioReceitaFonte{}, core.ErrInvalidTipo
	}

	a := s.args()
	pil := regra(a, core.PrevisaoInicialLiquida, "f.cocontacontabil")
	pal := regra(a, core.PrevisaoAtualizadaLiquida, "f.cocontacontabil")
	rlAtual := regra(a, core.ReceitaLiquida, "f.cocontacontabil")
	rlAnterior := regra(a, core.ReceitaLiquida, "f.cocontacontabil")
	ano, anoAnterior, mes := a.Add(p.Ano), a.Add(p.Ano-1), a.Add(p.Mes)

	conds := []string{
		"f." + primaria.coluna + " IS NOT NULL",
		"f." + primaria.coluna + " <> ''",
		"f.coexercicio IN (" + ano + ", " + anoAnterior + ")",
	}
	if p.COUG != "" {
		conds = append(conds, "f.coug = "+a.Add(p.COUG))
	}
	if filtro, ok := core.FiltroPorChave(p.Filtro); ok {
		conds = append(conds, filtroCond(a, filtro, "f"))
	}

	q := `SELECT f.` + primaria.coluna + `, dp.` + primaria.colunaNome + `,
			COALESCE(f.` + secundaria.coluna + `, ''), ds.` + secundaria.colunaNome + `,
			` + sumWhen("f.coexercicio = "+ano+" AND "+pil, "f.saldo_contabil") + `,
			` + sumWhen("f.coexercicio = "+ano+" AND "+pal, "f.saldo_contabil") + `,
			` + sumWhen("f.coexercicio = "+ano+" AND f.inmes <= "+mes+" AND "+rlAtual, "f.saldo_contabil") + `,
			` + sumWhen("f.coexercicio = "+anoAnterior+" AND f.inmes <= "+mes+" AND "+rlAnterior, "f.saldo_contabil") + `
		FROM ` + s.table(storage.SchemaSaldos, "fato_saldos") + ` f
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, primaria.tabela) + ` dp ON dp.` + primaria.coluna + ` = f.` + primaria.coluna + `
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, secundaria.tabela) + ` ds ON ds.` + secundaria.coluna + ` = f.` + secundaria.coluna + `
		WHERE ` + and(conds...) + `
		GROUP BY f.` + primaria.coluna + `, dp.` + primaria.colunaNome + `, COALESCE(f.` + secundaria.coluna + `, ''), ds.` + secundaria.colunaNome

	rows, err := s.repo.QueryRows(ctx, q, a.Values()...)
	if err != nil {
		return RelatorioReceitaFonte{}, fmt.Errorf("query receita por %s: %w", p.Tipo, err)
	}
	defer rows.Close()

	var flat []receitaFonteRow
	for rows.Next() {
		var r receitaFonteRow
		if err := rows.Scan(&r.primario, &r.nomeP, &r.secundario, &r.nomeS,
			&r.PrevisaoInicial, &r.PrevisaoAtualizada, &r.ReceitaAtual, &r.ReceitaAnterior); err != nil {
			return RelatorioReceitaFonte{}, fmt.Errorf("scan receita por %s: %w", p.Tipo, err)
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return RelatorioReceitaFonte{}, fmt.Errorf("iterate receita por %s: %w", p.Tipo, err)
	}

	dados := montarReceitaFonte(p, flat)
	return RelatorioReceitaFonte{
		Tipo:            p.Tipo,
		Dados:           dados,
		Totais:          CalcularTotais(dados),
		TemDados:        len(dados) > 0,
		COUGSelecionada: p.COUG,
	}, nil
}

// montarReceitaFonte groups flat rows under their primary code and orders
// both levels by realized revenue, breaking ties by code. A primary is
// shown while any of its secondaries is, even if they cancel out.
func montarReceitaFonte(p ParamsReceitaFonte, flat []receitaFonteRow) []Linha {
	type grupo struct {
		principal Linha
		filhos    []Linha
	}
	grupos := map[string]*grupo{}
	tipo := string(p.Tipo)

	for _, r := range flat {
		g, ok := grupos[r.primario]
		if !ok {
			g = &grupo{principal: Linha{
				ID:        tipo + "-" + r.primario,
				Codigo:    r.primario,
				Descricao: nullString(r.nomeP, "Código "+r.primario),
				Nivel:     0,
				Tipo:      "principal",
			}}
			grupos[r.primario] = g
		}
		g.principal.Medidas.Add(r.Medidas)

		// rows without a secondary code only count toward the primary
		if r.secundario == "" || r.Medidas.SomaAbsoluta() <= core.LimiarRuido {
			continue
		}
		filho := Linha{
			ID:        tipo + "-" + r.primario + "-" + r.secundario,
			Codigo:    r.secundario,
			Descricao: nullString(r.nomeS, "Código "+r.secundario),
			Nivel:     1,
			Tipo:      "secundario",
			PaiID:     tipo + "-" + r.primario,
			Medidas:   r.Medidas,
		}
		if p.Tipo == core.TipoFonte && p.COUG != "" && !r.Medidas.IsZero() {
			filho.TemLancamentos = true
			filho.ParamsLancamentos = map[string]string{
				"coalinea": r.secundario,
				"cofonte":  r.primario,
			}
		}
		filho.calcularVariacao()
		g.filhos = append(g.filhos, filho)
	}

	ordenados := make([]*grupo, 0, len(grupos))
	for _, g := range grupos {
		if len(g.filhos) == 0 && g.principal.Medidas.SomaAbsoluta() <= core.LimiarRuido {
			continue
		}
		ordenados = append(ordenados, g)
	}
	sort.Slice(ordenados, func(i, j int) bool {
		pi, pj := ordenados[i].principal, ordenados[j].principal
		if pi.ReceitaAtual != pj.ReceitaAtual {
			return pi.ReceitaAtual > pj.ReceitaAtual
		}
		return pi.Codigo < pj.Codigo
	})

	var out []Linha
	for _, g := range ordenados {
		sort.Slice(g.filhos, func(i, j int) bool {
			if g.filhos[i].ReceitaAtual != g.filhos[j].ReceitaAtual {
				return g.filhos[i].ReceitaAtual > g.filhos[j].ReceitaAtual
			}
			return g.filhos[i].Codigo < g.filhos[j].Codigo
		})
		g.principal.TemFilhos = len(g.filhos) > 0
		g.principal.calcularVariacao()
		out = append(out, g.principal)
		out = append(out, g.filhos...)
	}
	return out
}
