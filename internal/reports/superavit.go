package reports

import (
	"context"
	"fmt"
	"math"

	"orcamento/internal/core"
	"orcamento/internal/storage"
)

// Resultado compares realized revenue with liquidated expense up to a
// bimestre.
type Resultado struct {
	ReceitasRealizadas float64 `json:"receitas_realizadas"`
	DespesasLiquidadas float64 `json:"despesas_liquidadas"`
	Diferenca          float64 `json:"diferenca"`
	Tipo               string  `json:"tipo"`
	ValorAbsoluto      float64 `json:"valor_absoluto"`
	DeficitValor       float64 `json:"deficit_valor"`
	SuperavitValor     float64 `json:"superavit_valor"`
}

// SuperavitDeficit sums realized revenue and liquidated expense over months
// 1..2N. A zero difference counts as superávit.
func (s *Service) SuperavitDeficit(ctx context.Context, ano int, b core.Bimestre) (Resultado, error) {
	meses := b.MesesAte()

	a := s.args()
	q := `SELECT COALESCE(SUM(f.saldo_contabil), 0)
		FROM ` + s.table(storage.SchemaSaldos, "fato_saldos") + ` f
		WHERE f.coexercicio = ` + a.Add(ano) + `
			AND f.inmes IN (` + a.InInts(meses) + `)
			AND ` + faixa(a, core.FaixaReceitaRealizada, "f.cocontacontabil")
	var receitas float64
	if err := s.repo.QueryRow(ctx, q, a.Values()...).Scan(&receitas); err != nil {
		return Resultado{}, fmt.Errorf("query receitas realizadas: %w", err)
	}

	a = s.args()
	q = `SELECT COALESCE(SUM(f.saldo_contabil_despesa), 0)
		FROM ` + s.table(storage.SchemaDespesa, "fato_saldo_despesa") + ` f
		WHERE f.coexercicio = ` + a.Add(ano) + `
			AND f.inmes IN (` + a.InInts(meses) + `)
			AND f.cocontacontabil IN (` + a.InStrings(core.ContasLiquidado) + `)`
	var despesas float64
	if err := s.repo.QueryRow(ctx, q, a.Values()...).Scan(&despesas); err != nil {
		return Resultado{}, fmt.Errorf("query despesas liquidadas: %w", err)
	}

	return novoResultado(receitas, despesas), nil
}

func novoResultado(receitas, despesas float64) Resultado {
	r := Resultado{
		ReceitasRealizadas: receitas,
		DespesasLiquidadas: despesas,
		Diferenca:          receitas - despesas,
	}
	r.ValorAbsoluto = math.Abs(r.Diferenca)
	if r.Diferenca >= 0 {
		r.Tipo = "superavit"
		r.SuperavitValor = r.ValorAbsoluto
	} else {
		r.Tipo = "deficit"
		r.DeficitValor = r.ValorAbsoluto
	}
	return r
}
