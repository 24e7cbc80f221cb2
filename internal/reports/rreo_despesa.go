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

// ModalidadeIntra is the application modality of intra-budget expense.
const ModalidadeIntra = "91"

// MedidasDespesa are the expense columns of a bimonthly annex.
type MedidasDespesa struct {
	DotacaoInicial       float64 `json:"dotacao_inicial"`
	DotacaoAutorizada    float64 `json:"dotacao_autorizada"`
	EmpenhadoBimestre    float64 `json:"empenhado_bimestre"`
	EmpenhadoAteBimestre float64 `json:"empenhado_ate_bimestre"`
	LiquidadoBimestre    float64 `json:"liquidado_bimestre"`
	LiquidadoAteBimestre float64 `json:"liquidado_ate_bimestre"`
	PagoAteBimestre      float64 `json:"pago_ate_bimestre"`
}

func (m *MedidasDespesa) Add(o MedidasDespesa) {
	m.DotacaoInicial += o.DotacaoInicial
	m.DotacaoAutorizada += o.DotacaoAutorizada
	m.EmpenhadoBimestre += o.EmpenhadoBimestre
	m.EmpenhadoAteBimestre += o.EmpenhadoAteBimestre
	m.LiquidadoBimestre += o.LiquidadoBimestre
	m.LiquidadoAteBimestre += o.LiquidadoAteBimestre
	m.PagoAteBimestre += o.PagoAteBimestre
}

func (m *MedidasDespesa) scanArgs() []any {
	return []any{&m.DotacaoInicial, &m.DotacaoAutorizada, &m.EmpenhadoBimestre, &m.EmpenhadoAteBimestre,
		&m.LiquidadoBimestre, &m.LiquidadoAteBimestre, &m.PagoAteBimestre}
}

// LinhaDespesa is one row of an expense annex.
type LinhaDespesa struct {
	Descricao string `json:"descricao"`
	Tipo      string `json:"tipo"`
	Nivel     int    `json:"nivel"`
	PaiID     string `json:"pai_id,omitempty"`
	MedidasDespesa
	SaldoEmpenhado float64 `json:"saldo_empenhado"`
	SaldoLiquidado float64 `json:"saldo_liquidado"`
}

func novaLinhaDespesa(m MedidasDespesa, descricao, tipo string, nivel int, pai string) LinhaDespesa {
	return LinhaDespesa{
		Descricao:      descricao,
		Tipo:           tipo,
		Nivel:          nivel,
		PaiID:          pai,
		MedidasDespesa: m,
		SaldoEmpenhado: m.DotacaoAutorizada - m.EmpenhadoAteBimestre,
		SaldoLiquidado: m.DotacaoAutorizada - m.LiquidadoAteBimestre,
	}
}

var descricoesCategoriaDespesa = map[string]string{
	"1": "PESSOAL E ENCARGOS SOCIAIS",
	"2": "JUROS E ENCARGOS DA DÍVIDA",
	"3": "OUTRAS DESPESAS CORRENTES",
	"4": "INVESTIMENTOS",
	"5": "INVERSÕES FINANCEIRAS",
	"6": "AMORTIZAÇÃO DA DÍVIDA",
}

// colunasDespesa returns the seven expense column expressions.
func colunasDespesa(a *dialect.Args, b core.Bimestre) string {
	ate, no := b.MesesAte(), b.Meses()
	inAte := func() string { return "f.inmes IN (" + a.InInts(ate) + ")" }
	inNo := func() string { return "f.inmes IN (" + a.InInts(no) + ")" }
	conta := "f.cocontacontabil"

	autorizada := make([]string, len(core.FaixasDotacaoAutorizada))
	for i, fx := range core.FaixasDotacaoAutorizada {
		autorizada[i] = faixa(a, fx, conta)
	}
	liquidado := func() string { return conta + " IN (" + a.InStrings(core.ContasLiquidado) + ")" }

	col := "f.saldo_contabil_despesa"
	return strings.Join([]string{
		sumWhen(inAte()+" AND "+faixa(a, core.FaixaDotacaoInicial, conta), col) + " AS dotacao_inicial",
		sumWhen(inAte()+" AND ("+strings.Join(autorizada, " OR ")+")", col) + " AS dotacao_autorizada",
		sumWhen(inNo()+" AND "+faixa(a, core.FaixaEmpenhado, conta), col) + " AS empenhado_bimestre",
		sumWhen(inAte()+" AND "+faixa(a, core.FaixaEmpenhado, conta), col) + " AS empenhado_ate_bimestre",
		sumWhen(inNo()+" AND "+liquidado(), col) + " AS liquidado_bimestre",
		sumWhen(inAte()+" AND "+liquidado(), col) + " AS liquidado_ate_bimestre",
		sumWhen(inAte()+" AND "+conta+" = "+a.Add(core.ContaPago), col) + " AS pago_ate_bimestre",
	}, ",\n\t\t\t")
}

const filtroRuidoDespesa = `ABS(dotacao_inicial) + ABS(dotacao_autorizada) + ABS(empenhado_ate_bimestre) +
			ABS(liquidado_ate_bimestre) + ABS(pago_ate_bimestre) > 0.01`

// DespesaIntra is the intra-budget expense annex by economic category.
type DespesaIntra struct {
	Ano             int            `json:"ano"`
	Bimestre        int            `json:"bimestre"`
	TotalCorrentes  LinhaDespesa   `json:"total_correntes_intra"`
	LinhasCorrentes []LinhaDespesa `json:"linhas_correntes_intra"`
	TotalCapital    LinhaDespesa   `json:"total_capital_intra"`
	LinhasCapital   []LinhaDespesa `json:"linhas_capital_intra"`
	Total           LinhaDespesa   `json:"total_despesas_intra"`
}

// DespesaIntra sums modality 91 expense by category: 1..3 are current
// expense and 4..6 capital expense.
func (s *Service) DespesaIntra(ctx context.Context, ano int, b core.Bimestre) (DespesaIntra, error) {
	if err := b.Validate(); err != nil {
		return DespesaIntra{}, err
	}
	a := s.args()
	q := `SELECT incategoria, dotacao_inicial, dotacao_autorizada, empenhado_bimestre, empenhado_ate_bimestre,
			liquidado_bimestre, liquidado_ate_bimestre, pago_ate_bimestre
		FROM (
			SELECT f.incategoria AS incategoria,
			` + colunasDespesa(a, b) + `
			FROM ` + s.table(storage.SchemaDespesa, "fato_saldo_despesa") + ` f
			WHERE f.coexercicio = ` + a.Add(ano) + ` AND f.comodalidade = ` + a.Add(ModalidadeIntra) + `
			GROUP BY f.incategoria
		) sa
		WHERE ` + filtroRuidoDespesa + `
		ORDER BY incategoria`

	rows, err := s.repo.QueryRows(ctx, q, a.Values()...)
	if err != nil {
		return DespesaIntra{}, fmt.Errorf("query despesa intra: %w", err)
	}
	defer rows.Close()

	porCategoria := map[string]MedidasDespesa{}
	for rows.Next() {
		var cat sql.NullString
		var m MedidasDespesa
		if err := rows.Scan(append([]any{&cat}, m.scanArgs()...)...); err != nil {
			return DespesaIntra{}, fmt.Errorf("scan despesa intra: %w", err)
		}
		porCategoria[cat.String] = m
	}
	if err := rows.Err(); err != nil {
		return DespesaIntra{}, fmt.Errorf("iterate despesa intra: %w", err)
	}
	return montarDespesaIntra(ano, b, porCategoria), nil
}

func montarDespesaIntra(ano int, b core.Bimestre, porCategoria map[string]MedidasDespesa) DespesaIntra {
	grupo := func(cats []string, nome string) (LinhaDespesa, []LinhaDespesa) {
		pai := strings.ToLower(strings.ReplaceAll(nome, " ", "_"))
		var total MedidasDespesa
		linhas := []LinhaDespesa{}
		for _, c := range cats {
			m, ok := porCategoria[c]
			if !ok {
				continue
			}
			linhas = append(linhas, novaLinhaDespesa(m, descricoesCategoriaDespesa[c], TipoSubfonte, 1, pai))
			total.Add(m)
		}
		return novaLinhaDespesa(total, nome, TipoFonteLinha, 0, ""), linhas
	}

	out := DespesaIntra{Ano: ano, Bimestre: int(b)}
	out.TotalCorrentes, out.LinhasCorrentes = grupo([]string{"1", "2", "3"}, "DESPESAS CORRENTES INTRA-ORÇAMENTÁRIAS")
	out.TotalCapital, out.LinhasCapital = grupo([]string{"4", "5", "6"}, "DESPESAS DE CAPITAL INTRA-ORÇAMENTÁRIAS")

	total := out.TotalCorrentes.MedidasDespesa
	total.Add(out.TotalCapital.MedidasDespesa)
	out.Total = novaLinhaDespesa(total, "DESPESAS (INTRA-ORÇAMENTÁRIAS) (IX)", TipoTotalGeral, 0, "")
	return out
}

// DespesaFuncionalIntra is the intra-budget expense annex by function.
type DespesaFuncionalIntra struct {
	Ano      int            `json:"ano"`
	Bimestre int            `json:"bimestre"`
	Linhas   []LinhaDespesa `json:"linhas_intra"`
	Total    LinhaDespesa   `json:"total_intra"`
}

type linhaFuncional struct {
	funcao, subfuncao         string
	nomeFuncao, nomeSubfuncao sql.NullString
	MedidasDespesa
}

// DespesaFuncionalIntra groups modality 91 expense by função then subfunção.
func (s *Service) DespesaFuncionalIntra(ctx context.Context, ano int, b core.Bimestre) (DespesaFuncionalIntra, error) {
	if err := b.Validate(); err != nil {
		return DespesaFuncionalIntra{}, err
	}
	a := s.args()
	q := `SELECT sa.cofuncao, sa.cosubfuncao, fn.nofuncao, sf.nosubfuncao,
			sa.dotacao_inicial, sa.dotacao_autorizada, sa.empenhado_bimestre, sa.empenhado_ate_bimestre,
			sa.liquidado_bimestre, sa.liquidado_ate_bimestre, sa.pago_ate_bimestre
		FROM (
			SELECT COALESCE(f.cofuncao, '') AS cofuncao, COALESCE(f.cosubfuncao, '') AS cosubfuncao,
			` + colunasDespesa(a, b) + `
			FROM ` + s.table(storage.SchemaDespesa, "fato_saldo_despesa") + ` f
			WHERE f.coexercicio = ` + a.Add(ano) + ` AND f.comodalidade = ` + a.Add(ModalidadeIntra) + `
			GROUP BY COALESCE(f.cofuncao, ''), COALESCE(f.cosubfuncao, '')
		) sa
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, "funcoes") + ` fn ON sa.cofuncao = fn.cofuncao
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, "subfuncoes") + ` sf ON sa.cosubfuncao = sf.cosubfuncao
		WHERE ` + strings.ReplaceAll(filtroRuidoDespesa, "ABS(", "ABS(sa.") + `
		ORDER BY sa.cofuncao, sa.cosubfuncao`

	rows, err := s.repo.QueryRows(ctx, q, a.Values()...)
	if err != nil {
		return DespesaFuncionalIntra{}, fmt.Errorf("query despesa funcional intra: %w", err)
	}
	defer rows.Close()

	var flat []linhaFuncional
	for rows.Next() {
		var r linhaFuncional
		dest := append([]any{&r.funcao, &r.subfuncao, &r.nomeFuncao, &r.nomeSubfuncao}, r.MedidasDespesa.scanArgs()...)
		if err := rows.Scan(dest...); err != nil {
			return DespesaFuncionalIntra{}, fmt.Errorf("scan despesa funcional intra: %w", err)
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return DespesaFuncionalIntra{}, fmt.Errorf("iterate despesa funcional intra: %w", err)
	}
	return montarDespesaFuncional(ano, b, flat), nil
}

// montarDespesaFuncional expects rows ordered by função.
func montarDespesaFuncional(ano int, b core.Bimestre, flat []linhaFuncional) DespesaFuncionalIntra {
	out := DespesaFuncionalIntra{Ano: ano, Bimestre: int(b), Linhas: []LinhaDespesa{}}
	var total MedidasDespesa
	for i := 0; i < len(flat); {
		j := i
		var soma MedidasDespesa
		for j < len(flat) && flat[j].funcao == flat[i].funcao {
			soma.Add(flat[j].MedidasDespesa)
			j++
		}
		cod := flat[i].funcao
		out.Linhas = append(out.Linhas, novaLinhaDespesa(soma, cod+" - "+nullString(flat[i].nomeFuncao, "Função "+cod), TipoFonteLinha, 0, ""))
		for _, r := range flat[i:j] {
			desc := r.subfuncao + " - " + nullString(r.nomeSubfuncao, "Subfunção "+r.subfuncao)
			out.Linhas = append(out.Linhas, novaLinhaDespesa(r.MedidasDespesa, desc, TipoSubfonte, 1, cod))
		}
		total.Add(soma)
		i = j
	}
	out.Total = novaLinhaDespesa(total, "DESPESAS (INTRA-ORÇAMENTÁRIAS) (II)", TipoTotalGeral, 0, "")
	return out
}

// BalancoIntra joins the intra-budget revenue and expense annexes.
type BalancoIntra struct {
	Ano      int          `json:"ano"`
	Bimestre int          `json:"bimestre"`
	Receita  ReceitaIntra `json:"receita"`
	Despesa  DespesaIntra `json:"despesa"`
}

func (s *Service) BalancoIntra(ctx context.Context, ano int, b core.Bimestre) (BalancoIntra, error) {
	receita, err := s.ReceitaIntra(ctx, ano, b)
	if err != nil {
		return BalancoIntra{}, err
	}
	despesa, err := s.DespesaIntra(ctx, ano, b)
	if err != nil {
		return BalancoIntra{}, err
	}
	return BalancoIntra{Ano: ano, Bimestre: int(b), Receita: receita, Despesa: despesa}, nil
}
