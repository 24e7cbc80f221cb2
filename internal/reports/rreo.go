package reports

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"orcamento/internal/core"
	"orcamento/internal/dialect"
	"orcamento/internal/storage"
)

// Row types of the RREO annexes. They double as CSS classes.
const (
	TipoPrincipal     = "principal"
	TipoFonteLinha    = "fonte"
	TipoFonteSozinha  = "fonte_sozinha"
	TipoSubfonte      = "subfonte"
	TipoTotalGrupo    = "total_grupo"
	TipoTotalGeral    = "total_geral"
	TipoBranco        = "white"
	TipoBrancoPai     = "white-parent"
	TipoBrancoFilho   = "white-child"
	paiSaldosAnterior = "saldos_parent"
)

// MedidasRREO are the revenue columns of a bimonthly annex.
type MedidasRREO struct {
	PrevisaoInicial      float64 `json:"previsao_inicial"`
	PrevisaoAtualizada   float64 `json:"previsao_atualizada"`
	RealizadoBimestre    float64 `json:"realizado_bimestre"`
	RealizadoAteBimestre float64 `json:"realizado_ate_bimestre"`
}

func (m *MedidasRREO) Add(o MedidasRREO) {
	m.PrevisaoInicial += o.PrevisaoInicial
	m.PrevisaoAtualizada += o.PrevisaoAtualizada
	m.RealizadoBimestre += o.RealizadoBimestre
	m.RealizadoAteBimestre += o.RealizadoAteBimestre
}

// LinhaRREO is one row of the revenue side of an annex.
type LinhaRREO struct {
	Descricao string `json:"descricao"`
	Tipo      string `json:"tipo"`
	Nivel     int    `json:"nivel"`
	PaiID     string `json:"pai_id,omitempty"`
	MedidasRREO
	PctBimestre    float64 `json:"pct_bimestre"`
	PctAteBimestre float64 `json:"pct_ate_bimestre"`
	Saldo          float64 `json:"saldo"`
}

func novaLinhaRREO(m MedidasRREO, descricao, tipo string, nivel int, pai string) LinhaRREO {
	l := LinhaRREO{Descricao: descricao, Tipo: tipo, Nivel: nivel, PaiID: pai, MedidasRREO: m}
	if m.PrevisaoAtualizada != 0 {
		l.PctBimestre = m.RealizadoBimestre / m.PrevisaoAtualizada * 100
		l.PctAteBimestre = m.RealizadoAteBimestre / m.PrevisaoAtualizada * 100
	}
	l.Saldo = m.PrevisaoAtualizada - m.RealizadoAteBimestre
	return l
}

// Anexo2 is the Demonstrativo da Execução Orçamentária da Receita.
type Anexo2 struct {
	Ano                 int         `json:"ano"`
	Bimestre            int         `json:"bimestre"`
	LinhasCorrentes     []LinhaRREO `json:"linhas_correntes"`
	LinhasCapital       []LinhaRREO `json:"linhas_capital"`
	LinhasIntra         []LinhaRREO `json:"linhas_intra"`
	TotalIntra          LinhaRREO   `json:"total_intra"`
	TotalExcetoIntra    LinhaRREO   `json:"total_exceto_intra"`
	TotalReceitas       LinhaRREO   `json:"total_receitas_iii"`
	Deficit             LinhaRREO   `json:"linha_deficit"`
	TotalV              LinhaRREO   `json:"total_v"`
	SaldosAnteriores    LinhaRREO   `json:"saldos_exercicios_anteriores"`
	RPPS                LinhaRREO   `json:"linha_rpps"`
	SuperavitFinanceiro LinhaRREO   `json:"linha_superavit"`
	Resultado           Resultado   `json:"resultado"`
}

// Revenue origin ranges of the annex sections.
var (
	faixaCorrentes = core.Faixa{Inicio: "11", Fim: "19"}
	faixaCapital   = core.Faixa{Inicio: "21", Fim: "29"}
	faixaIntra     = core.Faixa{Inicio: "71", Fim: "79"}
)

const (
	descTotalIntra = "RECEITAS (INTRA-ORÇAMENTÁRIAS) (II)"
)

// Anexo2 builds the revenue execution annex for a bimestre. Forecast and
// accumulated columns cover months 1..2N; the bimestre column covers only
// months 2N-1 and 2N.
func (s *Service) Anexo2(ctx context.Context, ano int, b core.Bimestre) (Anexo2, error) {
	if err := b.Validate(); err != nil {
		return Anexo2{}, err
	}
	out := Anexo2{Ano: ano, Bimestre: int(b)}

	var err error
	if out.LinhasCorrentes, err = s.secaoReceitaRREO(ctx, ano, b, faixaCorrentes, "RECEITAS CORRENTES"); err != nil {
		return Anexo2{}, err
	}
	if out.LinhasCapital, err = s.secaoReceitaRREO(ctx, ano, b, faixaCapital, "RECEITAS DE CAPITAL"); err != nil {
		return Anexo2{}, err
	}
	if out.LinhasIntra, err = s.secaoReceitaRREO(ctx, ano, b, faixaIntra, descTotalIntra); err != nil {
		return Anexo2{}, err
	}

	excetoIntra := totalSecao(out.LinhasCorrentes)
	excetoIntra.Add(totalSecao(out.LinhasCapital))
	out.TotalExcetoIntra = novaLinhaRREO(excetoIntra, "RECEITAS (EXCETO INTRA-ORÇAMENTÁRIAS) (I)", TipoTotalGrupo, 0, "")
	out.TotalIntra = novaLinhaRREO(totalSecao(out.LinhasIntra), descTotalIntra, TipoPrincipal, 0, "")

	receitas := excetoIntra
	receitas.Add(out.TotalIntra.MedidasRREO)
	out.TotalReceitas = novaLinhaRREO(receitas, "TOTAL DAS RECEITAS (III) = (I + II)", TipoTotalGeral, 0, "")

	if out.Resultado, err = s.SuperavitDeficit(ctx, ano, b); err != nil {
		return Anexo2{}, err
	}
	deficit := MedidasRREO{RealizadoAteBimestre: out.Resultado.DeficitValor}
	out.Deficit = novaLinhaRREO(deficit, "DÉFICIT (IV)", TipoBranco, 0, "")

	totalV := receitas
	totalV.Add(deficit)
	out.TotalV = novaLinhaRREO(totalV, "TOTAL (V) = (III + IV)", TipoTotalGeral, 0, "")

	rpps, err := s.saldoRPPS(ctx, ano, b)
	if err != nil {
		return Anexo2{}, err
	}
	out.RPPS = novaLinhaRREO(rpps, "Recursos Arrecadados em Exercícios Anteriores - RPPS", TipoBrancoFilho, 1, paiSaldosAnterior)

	superavit, err := s.superavitFinanceiro(ctx, ano, b)
	if err != nil {
		return Anexo2{}, err
	}
	sf := MedidasRREO{PrevisaoAtualizada: superavit, RealizadoAteBimestre: superavit}
	out.SuperavitFinanceiro = novaLinhaRREO(sf, "Superávit Financeiro Utilizado para Créditos Adicionais", TipoBrancoFilho, 1, paiSaldosAnterior)

	saldos := rpps
	saldos.Add(sf)
	out.SaldosAnteriores = novaLinhaRREO(saldos, "SALDOS DE EXERCÍCIOS ANTERIORES", TipoBrancoPai, 0, paiSaldosAnterior)
	return out, nil
}

// ReceitaIntra is the intra-budget revenue annex.
type ReceitaIntra struct {
	Ano             int         `json:"ano"`
	Bimestre        int         `json:"bimestre"`
	LinhasCorrentes []LinhaRREO `json:"linhas_correntes_intra"`
	Total           LinhaRREO   `json:"total_intra"`
}

// ReceitaIntra builds the intra-budget (origins 71..79) revenue section.
func (s *Service) ReceitaIntra(ctx context.Context, ano int, b core.Bimestre) (ReceitaIntra, error) {
	if err := b.Validate(); err != nil {
		return ReceitaIntra{}, err
	}
	linhas, err := s.secaoReceitaRREO(ctx, ano, b, faixaIntra, "RECEITAS CORRENTES INTRA-ORÇAMENTÁRIAS")
	if err != nil {
		return ReceitaIntra{}, err
	}
	total := novaLinhaRREO(MedidasRREO{}, descTotalIntra, TipoTotalGeral, 0, "")
	if len(linhas) > 0 {
		total = linhas[0]
	}
	return ReceitaIntra{Ano: ano, Bimestre: int(b), LinhasCorrentes: linhas, Total: total}, nil
}

func totalSecao(linhas []LinhaRREO) MedidasRREO {
	if len(linhas) == 0 {
		return MedidasRREO{}
	}
	return linhas[0].MedidasRREO
}

// colunasRREO returns the four revenue column expressions over the months
// of the bimestre.
func colunasRREO(a *dialect.Args, b core.Bimestre, col string) [4]string {
	ate, no := b.MesesAte(), b.Meses()
	inAte := func() string { return "f.inmes IN (" + a.InInts(ate) + ")" }
	return [4]string{
		sumWhen(inAte()+" AND "+faixa(a, core.FaixaPrevisaoInicialRREO, "f.cocontacontabil"), col),
		sumWhen(inAte()+" AND "+faixa(a, core.FaixaPrevisaoAtualizadaRREO, "f.cocontacontabil"), col),
		sumWhen("f.inmes IN ("+a.InInts(no)+") AND "+faixa(a, core.FaixaReceitaRealizada, "f.cocontacontabil"), col),
		sumWhen(inAte()+" AND "+faixa(a, core.FaixaReceitaRealizada, "f.cocontacontabil"), col),
	}
}

type linhaOrigem struct {
	fonte, sub         sql.NullString
	nomeFonte, nomeSub sql.NullString
	MedidasRREO
}

// secaoReceitaRREO returns the section total followed by its fontes and
// subfontes. Empty sections return no rows.
func (s *Service) secaoReceitaRREO(ctx context.Context, ano int, b core.Bimestre, origem core.Faixa, titulo string) ([]LinhaRREO, error) {
	a := s.args()
	cols := colunasRREO(a, b, "f.saldo_contabil")
	inner := `SELECT f.cofontereceita AS cofontereceita, f.cosubfontereceita AS cosubfontereceita,
			` + cols[0] + ` AS previsao_inicial,
			` + cols[1] + ` AS previsao_atualizada,
			` + cols[2] + ` AS realizado_bimestre,
			` + cols[3] + ` AS realizado_ate_bimestre
		FROM ` + s.table(storage.SchemaSaldos, "fato_saldos") + ` f
		WHERE f.coexercicio = ` + a.Add(ano) + ` AND ` + faixa(a, origem, "f.cofontereceita") + `
		GROUP BY f.cofontereceita, f.cosubfontereceita`

	q := `SELECT sa.cofontereceita, sa.cosubfontereceita, ori.nofontereceita, esp.nosubfontereceita,
			sa.previsao_inicial, sa.previsao_atualizada, sa.realizado_bimestre, sa.realizado_ate_bimestre
		FROM (` + inner + `) sa
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, "origens") + ` ori ON sa.cofontereceita = ori.cofontereceita
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, "especies") + ` esp ON sa.cosubfontereceita = esp.cosubfontereceita
		WHERE sa.previsao_atualizada <> 0 OR sa.realizado_ate_bimestre <> 0
		ORDER BY sa.cofontereceita, sa.cosubfontereceita`

	rows, err := s.repo.QueryRows(ctx, q, a.Values()...)
	if err != nil {
		return nil, fmt.Errorf("query rreo %s: %w", strings.ToLower(titulo), err)
	}
	defer rows.Close()

	var flat []linhaOrigem
	for rows.Next() {
		var r linhaOrigem
		if err := rows.Scan(&r.fonte, &r.sub, &r.nomeFonte, &r.nomeSub,
			&r.PrevisaoInicial, &r.PrevisaoAtualizada, &r.RealizadoBimestre, &r.RealizadoAteBimestre); err != nil {
			return nil, fmt.Errorf("scan rreo: %w", err)
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rreo: %w", err)
	}
	return montarSecaoRREO(flat, titulo), nil
}

// montarSecaoRREO expects rows ordered by fonte. A fonte with a single
// subfonte collapses into one "fonte_sozinha" row.
func montarSecaoRREO(flat []linhaOrigem, titulo string) []LinhaRREO {
	if len(flat) == 0 {
		return nil
	}
	var total MedidasRREO
	var out []LinhaRREO
	for i := 0; i < len(flat); {
		j := i
		for j < len(flat) && flat[j].fonte.String == flat[i].fonte.String {
			j++
		}
		grupo := flat[i:j]
		cod := grupo[0].fonte.String

		var soma MedidasRREO
		for _, r := range grupo {
			soma.Add(r.MedidasRREO)
		}
		total.Add(soma)

		nome := strings.ToUpper(nullString(grupo[0].nomeFonte, "Fonte "+cod))
		if len(grupo) == 1 && grupo[0].sub.Valid {
			out = append(out, novaLinhaRREO(soma, nome, TipoFonteSozinha, 1, ""))
		} else {
			out = append(out, novaLinhaRREO(soma, nome, TipoFonteLinha, 1, cod))
			for _, r := range grupo {
				desc := nullString(r.nomeSub, "Subfonte "+r.sub.String)
				out = append(out, novaLinhaRREO(r.MedidasRREO, desc, TipoSubfonte, 2, cod))
			}
		}
		i = j
	}
	return append([]LinhaRREO{novaLinhaRREO(total, titulo, TipoPrincipal, 0, "")}, out...)
}

// saldoRPPS sums the revenue columns over current accounts of the pension
// regime.
func (s *Service) saldoRPPS(ctx context.Context, ano int, b core.Bimestre) (MedidasRREO, error) {
	a := s.args()
	cols := colunasRREO(a, b, "f.saldo_contabil")
	q := `SELECT ` + strings.Join(cols[:], ", ") + `
		FROM ` + s.table(storage.SchemaSaldos, "fato_saldos") + ` f
		WHERE f.coexercicio = ` + a.Add(ano) + ` AND f.cocontacorrente LIKE ` + a.Add(core.PrefixoContaCorrenteRPPS+"%")
	var m MedidasRREO
	if err := s.repo.QueryRow(ctx, q, a.Values()...).Scan(&m.PrevisaoInicial, &m.PrevisaoAtualizada, &m.RealizadoBimestre, &m.RealizadoAteBimestre); err != nil {
		return MedidasRREO{}, fmt.Errorf("query saldo rpps: %w", err)
	}
	return m, nil
}

// superavitFinanceiro is the financial surplus used for additional credits.
func (s *Service) superavitFinanceiro(ctx context.Context, ano int, b core.Bimestre) (float64, error) {
	a := s.args()
	q := `SELECT COALESCE(SUM(f.saldo_contabil), 0)
		FROM ` + s.table(storage.SchemaSaldos, "fato_saldos") + ` f
		WHERE f.coexercicio = ` + a.Add(ano) + `
			AND f.inmes IN (` + a.InInts(b.MesesAte()) + `)
			AND ` + faixa(a, core.FaixaSuperavitFinanceiro, "f.cocontacontabil")
	var v float64
	if err := s.repo.QueryRow(ctx, q, a.Values()...).Scan(&v); err != nil {
		return 0, fmt.Errorf("query superavit financeiro: %w", err)
	}
	return v, nil
}
