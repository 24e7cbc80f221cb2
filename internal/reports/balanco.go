package reports

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"orcamento/internal/core"
	"orcamento/internal/storage"
)

// ParamsBalanco selects a balanço orçamentário da receita.
type ParamsBalanco struct {
	Ano    int
	Mes    int
	COUG   string
	Filtro string
}

const descricaoSemDados = "NENHUM DADO ENCONTRADO"

type balancoRow struct {
	cat, fonte, sub, alinea             string
	nomeCat, nomeFonte, nomeSub, nomeAl sql.NullString
	core.Medidas
}

// BalancoReceita builds the categoria → fonte → subfonte → alínea hierarchy
// closed by a TOTAL GERAL row. Query failures and empty results yield the
// single "NENHUM DADO ENCONTRADO" row so the page still renders.
func (s *Service) BalancoReceita(ctx context.Context, p ParamsBalanco) []Linha {
	flat, err := s.queryBalanco(ctx, p)
	if err != nil {
		s.logger.ErrorContext(ctx, "Balanço query failed", "error", err, "ano", p.Ano, "mes", p.Mes, "coug", p.COUG)
		return []Linha{linhaSemDados()}
	}
	if len(flat) == 0 {
		return []Linha{linhaSemDados()}
	}

	temLancamentos, err := storage.TableExists(ctx, s.repo, mustDB(storage.SchemaLancamentos), "lancamentos")
	if err != nil {
		s.logger.WarnContext(ctx, "Ledger table check failed", "error", err)
	}
	return montarBalanco(flat, temLancamentos)
}

func (s *Service) queryBalanco(ctx context.Context, p ParamsBalanco) ([]balancoRow, error) {
	a := s.args()
	pil := regra(a, core.PrevisaoInicialLiquida, "f.cocontacontabil")
	pal := regra(a, core.PrevisaoAtualizadaLiquida, "f.cocontacontabil")
	rlA := regra(a, core.ReceitaLiquida, "f.cocontacontabil")
	rlB := regra(a, core.ReceitaLiquida, "f.cocontacontabil")
	ano, anoAnterior, mes := a.Add(p.Ano), a.Add(p.Ano-1), a.Add(p.Mes)

	conds := []string{"f.coexercicio IN (" + ano + ", " + anoAnterior + ")", "f.categoriareceita IS NOT NULL", "f.categoriareceita <> ''"}
	if p.COUG != "" {
		conds = append(conds, "f.coug = "+a.Add(p.COUG))
	}
	if filtro, ok := core.FiltroPorChave(p.Filtro); ok {
		conds = append(conds, filtroCond(a, filtro, "f"))
	}

	inner := `SELECT f.categoriareceita AS cat, c.nocategoriareceita AS nome_cat,
			COALESCE(f.cofontereceita, '') AS fonte, o.nofontereceita AS nome_fonte,
			COALESCE(f.cosubfontereceita, '') AS sub, e.nosubfontereceita AS nome_sub,
			COALESCE(f.coalinea, '') AS alinea, al.noalinea AS nome_alinea,
			` + sumWhen("f.coexercicio = "+ano+" AND "+pil, "f.saldo_contabil") + ` AS previsao_inicial,
			` + sumWhen("f.coexercicio = "+ano+" AND "+pal, "f.saldo_contabil") + ` AS previsao_atualizada,
			` + sumWhen("f.coexercicio = "+ano+" AND f.inmes <= "+mes+" AND "+rlA, "f.saldo_contabil") + ` AS receita_atual,
			` + sumWhen("f.coexercicio = "+anoAnterior+" AND f.inmes <= "+mes+" AND "+rlB, "f.saldo_contabil") + ` AS receita_anterior
		FROM ` + s.table(storage.SchemaSaldos, "fato_saldos") + ` f
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, "categorias") + ` c ON f.categoriareceita = c.cocategoriareceita
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, "origens") + ` o ON f.cofontereceita = o.cofontereceita
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, "especies") + ` e ON f.cosubfontereceita = e.cosubfontereceita
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, "alineas") + ` al ON f.coalinea = al.coalinea
		WHERE ` + and(conds...) + `
		GROUP BY f.categoriareceita, c.nocategoriareceita, COALESCE(f.cofontereceita, ''), o.nofontereceita,
			COALESCE(f.cosubfontereceita, ''), e.nosubfontereceita, COALESCE(f.coalinea, ''), al.noalinea`

	q := `SELECT cat, nome_cat, fonte, nome_fonte, sub, nome_sub, alinea, nome_alinea,
			previsao_inicial, previsao_atualizada, receita_atual, receita_anterior
		FROM (` + inner + `) g
		WHERE ABS(previsao_inicial) + ABS(previsao_atualizada) + ABS(receita_atual) + ABS(receita_anterior) > 0.01
		ORDER BY cat, fonte, sub, alinea`

	rows, err := s.repo.QueryRows(ctx, q, a.Values()...)
	if err != nil {
		return nil, fmt.Errorf("query balanço receita: %w", err)
	}
	defer rows.Close()

	var out []balancoRow
	for rows.Next() {
		var r balancoRow
		if err := rows.Scan(&r.cat, &r.nomeCat, &r.fonte, &r.nomeFonte, &r.sub, &r.nomeSub, &r.alinea, &r.nomeAl,
			&r.PrevisaoInicial, &r.PrevisaoAtualizada, &r.ReceitaAtual, &r.ReceitaAnterior); err != nil {
			return nil, fmt.Errorf("scan balanço receita: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type noBalanco struct {
	linha  Linha
	filhos map[string]*noBalanco
}

func novoNo(l Linha) *noBalanco {
	return &noBalanco{linha: l, filhos: map[string]*noBalanco{}}
}

func (n *noBalanco) filho(chave string, criar func() Linha) *noBalanco {
	f, ok := n.filhos[chave]
	if !ok {
		f = novoNo(criar())
		n.filhos[chave] = f
	}
	return f
}

func montarBalanco(flat []balancoRow, temLancamentos bool) []Linha {
	raiz := novoNo(Linha{})
	for _, r := range flat {
		r := r
		cat := raiz.filho(r.cat, func() Linha {
			return Linha{ID: "cat-" + r.cat, Codigo: r.cat, Descricao: nullString(r.nomeCat, "Categoria "+r.cat), Nivel: 0, Classes: "nivel-0"}
		})
		fonte := cat.filho(r.fonte, func() Linha {
			return Linha{ID: "fonte-" + r.cat + "-" + r.fonte, Codigo: r.fonte, Descricao: nullString(r.nomeFonte, "Fonte "+r.fonte),
				Nivel: 1, Classes: "nivel-1 parent-row", PaiID: "cat-" + r.cat}
		})
		sub := fonte.filho(r.sub, func() Linha {
			return Linha{ID: "sub-" + r.cat + "-" + r.fonte + "-" + r.sub, Codigo: r.sub, Descricao: nullString(r.nomeSub, "Subfonte "+r.sub),
				Nivel: 2, Classes: "nivel-2 parent-row", PaiID: "fonte-" + r.cat + "-" + r.fonte}
		})
		if r.alinea == "" {
			continue
		}
		al := Linha{
			ID:        "ali-" + r.cat + "-" + r.fonte + "-" + r.sub + "-" + r.alinea,
			Codigo:    r.alinea,
			Descricao: r.alinea + " - " + nullString(r.nomeAl, "Alínea "+r.alinea),
			Nivel:     3,
			Classes:   "nivel-3",
			PaiID:     sub.linha.ID,
			Medidas:   r.Medidas,
			TemLancamentos: temLancamentos &&
				(r.ReceitaAtual != 0 || r.ReceitaAnterior != 0),
			ParamsLancamentos: map[string]string{
				"cat_id":      r.cat,
				"fonte_id":    r.fonte,
				"subfonte_id": r.sub,
				"alinea_id":   r.alinea,
			},
		}
		sub.filhos[r.alinea] = novoNo(al)
		sub.linha.Medidas.Add(r.Medidas)
		fonte.linha.Medidas.Add(r.Medidas)
		cat.linha.Medidas.Add(r.Medidas)
	}

	var out []Linha
	var walk func(n *noBalanco)
	walk = func(n *noBalanco) {
		for _, k := range sortedKeys(n.filhos) {
			f := n.filhos[k]
			f.linha.TemFilhos = len(f.filhos) > 0
			f.linha.calcularVariacao()
			out = append(out, f.linha)
			walk(f)
		}
	}
	walk(raiz)

	total := Linha{ID: "total", Descricao: "TOTAL GERAL", Nivel: -1, Classes: "nivel--1"}
	for _, l := range out {
		if l.Nivel == 0 {
			total.Medidas.Add(l.Medidas)
		}
	}
	total.calcularVariacao()
	return append(out, total)
}

func linhaSemDados() Linha {
	return Linha{ID: "total", Descricao: descricaoSemDados, Nivel: -1, Classes: "nivel--1"}
}

// SemDados reports whether a balanço carries only the empty placeholder.
func SemDados(linhas []Linha) bool {
	return len(linhas) == 1 && linhas[0].Descricao == descricaoSemDados
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mustDB(schema string) storage.LogicalDB {
	for _, db := range storage.Catalog() {
		if db.Schema == schema {
			return db
		}
	}
	return storage.LogicalDB{Schema: schema}
}

// ResumoExecutivo summarizes a balanço for the page header.
type ResumoExecutivo struct {
	TotalGeral            ResumoTotal `json:"total_geral"`
	ContagemCategorias    int         `json:"contagem_categorias"`
	ContagemDetalhamentos int         `json:"contagem_detalhamentos"`
	CategoriaPrincipal    *Linha      `json:"categoria_principal,omitempty"`
	MaiorCrescimento      *Linha      `json:"maior_crescimento,omitempty"`
	MaiorQueda            *Linha      `json:"maior_queda,omitempty"`
}

type ResumoTotal struct {
	ReceitaAtual       float64 `json:"receita_atual"`
	ReceitaAnterior    float64 `json:"receita_anterior"`
	VariacaoAbsoluta   float64 `json:"variacao_absoluta"`
	VariacaoPercentual float64 `json:"variacao_percentual"`
}

// GerarResumoExecutivo returns nil when the balanço has no data rows.
func GerarResumoExecutivo(linhas []Linha) *ResumoExecutivo {
	if len(linhas) <= 1 {
		return nil
	}
	r := &ResumoExecutivo{}
	for i := range linhas {
		l := &linhas[i]
		switch l.Nivel {
		case -1:
			r.TotalGeral = ResumoTotal{l.ReceitaAtual, l.ReceitaAnterior, l.VariacaoAbsoluta, l.VariacaoPercentual}
		case 0:
			r.ContagemCategorias++
			if r.CategoriaPrincipal == nil || l.ReceitaAtual > r.CategoriaPrincipal.ReceitaAtual {
				r.CategoriaPrincipal = l
			}
		case 3:
			r.ContagemDetalhamentos++
		}
		if (l.Nivel == 0 || l.Nivel == 1) && l.ReceitaAnterior > 0 {
			if l.VariacaoAbsoluta > 0 && (r.MaiorCrescimento == nil || l.VariacaoAbsoluta > r.MaiorCrescimento.VariacaoAbsoluta) {
				r.MaiorCrescimento = l
			}
			if l.VariacaoAbsoluta < 0 && (r.MaiorQueda == nil || l.VariacaoAbsoluta < r.MaiorQueda.VariacaoAbsoluta) {
				r.MaiorQueda = l
			}
		}
	}
	return r
}
