package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"orcamento/internal/core"
	"orcamento/internal/storage"
)

var ErrParametrosLancamentos = errors.New("Ano e mês são obrigatórios")

// FiltroLancamentos selects the ledger entries behind one report row.
// Empty fields are not filtered.
type FiltroLancamentos struct {
	Ano        int
	Mes        int
	COUG       string
	CatID      string
	FonteID    string
	SubfonteID string
	AlineaID   string
	Coalinea   string
	Cofonte    string
}

// Lancamento is one ledger entry.
type Lancamento struct {
	COUG          string  `json:"coug"`
	ContaContabil string  `json:"conta_contabil"`
	Documento     string  `json:"documento"`
	Evento        string  `json:"evento"`
	DC            string  `json:"dc"`
	Valor         float64 `json:"valor"`
}

// ResultadoLancamentos is what the ledger modal shows.
type ResultadoLancamentos struct {
	Lancamentos    []Lancamento `json:"lancamentos"`
	TotalLiquido   float64      `json:"total_liquido"`
	Quantidade     int          `json:"quantidade"`
	ValorRelatorio *float64     `json:"valor_relatorio"`
}

func (r ResultadoLancamentos) TemDados() bool { return len(r.Lancamentos) > 0 }

// Lancamentos lists revenue ledger entries up to the month, restricted to
// the net revenue accounts and to documents numbered in the year. Ordered by
// event then value descending.
func (s *Service) Lancamentos(ctx context.Context, f FiltroLancamentos) (ResultadoLancamentos, error) {
	if f.Ano == 0 || f.Mes == 0 {
		return ResultadoLancamentos{}, ErrParametrosLancamentos
	}
	a := s.args()
	conds := []string{
		"coexercicio = " + a.Add(f.Ano),
		"inmes <= " + a.Add(f.Mes),
		regra(a, core.ReceitaLiquida, "cocontacontabil"),
		"nudocumento LIKE " + a.Add(strconv.Itoa(f.Ano)+"%"),
	}
	for _, eq := range []struct{ col, v string }{
		{"categoriareceita", f.CatID},
		{"cofontereceita", f.FonteID},
		{"cosubfontereceita", f.SubfonteID},
		{"coalinea", f.AlineaID},
		{"coalinea", f.Coalinea},
		{"cofonte", f.Cofonte},
		{"cougcontab", f.COUG},
	} {
		if eq.v != "" {
			conds = append(conds, eq.col+" = "+a.Add(eq.v))
		}
	}
	return s.queryLancamentos(ctx, conds, "coevento, valancamento DESC", a.Values())
}

// LancamentosReceitaFonte lists the entries behind a receita×fonte row. COUG
// and alínea are required.
func (s *Service) LancamentosReceitaFonte(ctx context.Context, f FiltroLancamentos) (ResultadoLancamentos, error) {
	if f.Ano == 0 || f.Mes == 0 || f.COUG == "" || f.Coalinea == "" {
		return ResultadoLancamentos{}, fmt.Errorf("%w: ano, mes, coug e coalinea", ErrParametrosLancamentos)
	}
	a := s.args()
	conds := []string{
		"coexercicio = " + a.Add(f.Ano),
		"inmes <= " + a.Add(f.Mes),
		"cougcontab = " + a.Add(f.COUG),
		"coalinea = " + a.Add(f.Coalinea),
		regra(a, core.ReceitaLiquida, "cocontacontabil"),
	}
	if f.Cofonte != "" {
		conds = append(conds, "cofonte = "+a.Add(f.Cofonte))
	}
	return s.queryLancamentos(ctx, conds, "nudocumento, coevento", a.Values())
}

func (s *Service) queryLancamentos(ctx context.Context, conds []string, orderBy string, args []any) (ResultadoLancamentos, error) {
	q := `SELECT coug, cocontacontabil, nudocumento, coevento, indebitocredito, valancamento
		FROM ` + s.table(storage.SchemaLancamentos, "lancamentos") + `
		WHERE ` + and(conds...) + `
		ORDER BY ` + orderBy

	rows, err := s.repo.QueryRows(ctx, q, args...)
	if err != nil {
		return ResultadoLancamentos{}, fmt.Errorf("query lancamentos: %w", err)
	}
	defer rows.Close()

	res := ResultadoLancamentos{Lancamentos: []Lancamento{}}
	for rows.Next() {
		var coug, conta, doc, evento, dc sql.NullString
		var l Lancamento
		if err := rows.Scan(&coug, &conta, &doc, &evento, &dc, &l.Valor); err != nil {
			return ResultadoLancamentos{}, fmt.Errorf("scan lancamento: %w", err)
		}
		l.COUG, l.ContaContabil, l.Documento, l.Evento, l.DC = coug.String, conta.String, doc.String, evento.String, dc.String
		res.Lancamentos = append(res.Lancamentos, l)
	}
	if err := rows.Err(); err != nil {
		return ResultadoLancamentos{}, fmt.Errorf("iterate lancamentos: %w", err)
	}
	res.Quantidade = len(res.Lancamentos)
	res.TotalLiquido = TotalLiquido(res.Lancamentos)
	return res, nil
}

// TotalLiquido is credits minus debits, summed exactly.
func TotalLiquido(ls []Lancamento) float64 {
	total := decimal.Zero
	for _, l := range ls {
		v := decimal.NewFromFloat(l.Valor)
		switch l.DC {
		case "C":
			total = total.Add(v)
		case "D":
			total = total.Sub(v)
		}
	}
	f, _ := total.Float64()
	return f
}
