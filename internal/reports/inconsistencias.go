package reports

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"orcamento/internal/core"
	"orcamento/internal/storage"
)

const nomeUGNaoEncontrado = "Nome da UG não encontrado"

// Inconsistencia is one balance flagged by an audit check.
type Inconsistencia struct {
	COUG          string  `json:"coug"`
	NomeUG        string  `json:"noug,omitempty"`
	ContaContabil string  `json:"cocontacontabil"`
	ContaCorrente string  `json:"cocontacorrente,omitempty"`
	Fonte         string  `json:"cofonte,omitempty"`
	SaldoTotal    float64 `json:"saldo_total"`
}

// Inconsistencias gathers the audit checks of one fiscal year. Each check
// degrades to an empty list on failure; Erros records what went wrong.
type Inconsistencias struct {
	Exercicio       int              `json:"exercicio"`
	FontesSuperavit []Inconsistencia `json:"fontes_superavit"`
	UGsInvalidas    []Inconsistencia `json:"ugs_invalidas"`
	SaldosNegativos []Inconsistencia `json:"saldos_negativos"`
	Erros           []string         `json:"erros,omitempty"`
}

func (i Inconsistencias) Total() int {
	return len(i.FontesSuperavit) + len(i.UGsInvalidas) + len(i.SaldosNegativos)
}

// ExerciciosDisponiveis lists the fiscal years with balances, newest first.
func (s *Service) ExerciciosDisponiveis(ctx context.Context) ([]int, error) {
	q := "SELECT coexercicio FROM " + s.table(storage.SchemaSaldos, "fato_saldos") + " GROUP BY coexercicio ORDER BY coexercicio DESC"
	rows, err := s.repo.QueryRows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list exercicios: %w", err)
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var ano int
		if err := rows.Scan(&ano); err != nil {
			return nil, fmt.Errorf("scan exercicio: %w", err)
		}
		out = append(out, ano)
	}
	return out, rows.Err()
}

// AnalisarInconsistencias runs every audit check for the year.
func (s *Service) AnalisarInconsistencias(ctx context.Context, exercicio int) Inconsistencias {
	out := Inconsistencias{Exercicio: exercicio}
	checks := []struct {
		nome string
		dst  *[]Inconsistencia
		run  func(context.Context, int) ([]Inconsistencia, error)
	}{
		{"fontes de superávit", &out.FontesSuperavit, s.FontesSuperavit},
		{"UGs inválidas", &out.UGsInvalidas, s.UGsInvalidas},
		{"saldos negativos", &out.SaldosNegativos, s.SaldosNegativos},
	}
	for _, c := range checks {
		res, err := c.run(ctx, exercicio)
		if err != nil {
			s.logger.ErrorContext(ctx, "Inconsistency check failed", "check", c.nome, "exercicio", exercicio, "error", err)
			out.Erros = append(out.Erros, c.nome+": "+err.Error())
			res = nil
		}
		if res == nil {
			res = []Inconsistencia{}
		}
		*c.dst = res
	}
	return out
}

// FontesSuperavit flags non-zero balances on surplus fontes (prefixes 3, 4
// and 8).
func (s *Service) FontesSuperavit(ctx context.Context, exercicio int) ([]Inconsistencia, error) {
	a := s.args()
	prefixos := make([]string, len(core.PrefixosFontesSuperavit))
	for i, p := range core.PrefixosFontesSuperavit {
		prefixos[i] = "f.cofonte LIKE " + a.Add(p+"%")
	}
	q := `SELECT coug, cocontacontabil, cofonte, saldo_total FROM (
			SELECT f.coug AS coug, f.cocontacontabil AS cocontacontabil, f.cofonte AS cofonte,
				COALESCE(SUM(f.saldo_contabil), 0) AS saldo_total
			FROM ` + s.table(storage.SchemaSaldos, "fato_saldos") + ` f
			WHERE f.coexercicio = ` + a.Add(exercicio) + ` AND (` + strings.Join(prefixos, " OR ") + `)
			GROUP BY f.coug, f.cocontacontabil, f.cofonte
		) g
		WHERE saldo_total <> 0
		ORDER BY coug, cocontacontabil, cofonte`

	rows, err := s.repo.QueryRows(ctx, q, a.Values()...)
	if err != nil {
		return nil, fmt.Errorf("query fontes superavit: %w", err)
	}
	defer rows.Close()

	var out []Inconsistencia
	for rows.Next() {
		var coug, conta, fonte sql.NullString
		var i Inconsistencia
		if err := rows.Scan(&coug, &conta, &fonte, &i.SaldoTotal); err != nil {
			return nil, fmt.Errorf("scan fonte superavit: %w", err)
		}
		i.COUG, i.ContaContabil, i.Fonte = coug.String, conta.String, fonte.String
		out = append(out, i)
	}
	return out, rows.Err()
}

// UGsInvalidas flags non-zero administrative balances held by units other
// than the treasury.
func (s *Service) UGsInvalidas(ctx context.Context, exercicio int) ([]Inconsistencia, error) {
	a := s.args()
	cond := "f.coexercicio = " + a.Add(exercicio) + " AND f.intipoadm = 1 AND f.coug <> " + a.Add(core.CougTesouro)
	return s.saldosPorConta(ctx, a.Values(), cond, "saldo_total <> 0", "g.coug, g.cocontacontabil, g.cocontacorrente")
}

// SaldosNegativos flags negative realized revenue balances, most negative
// first.
func (s *Service) SaldosNegativos(ctx context.Context, exercicio int) ([]Inconsistencia, error) {
	a := s.args()
	cond := "f.coexercicio = " + a.Add(exercicio) + " AND f.cocontacontabil = " + a.Add(core.ContaReceitaRealizada)
	return s.saldosPorConta(ctx, a.Values(), cond, "saldo_total < 0", "g.saldo_total, g.coug, g.cocontacontabil, g.cocontacorrente")
}

func (s *Service) saldosPorConta(ctx context.Context, args []any, where, having, orderBy string) ([]Inconsistencia, error) {
	q := `SELECT g.coug, ug.noug, g.cocontacontabil, g.cocontacorrente, g.saldo_total FROM (
			SELECT f.coug AS coug, f.cocontacontabil AS cocontacontabil, f.cocontacorrente AS cocontacorrente,
				COALESCE(SUM(f.saldo_contabil), 0) AS saldo_total
			FROM ` + s.table(storage.SchemaSaldos, "fato_saldos") + ` f
			WHERE ` + where + `
			GROUP BY f.coug, f.cocontacontabil, f.cocontacorrente
		) g
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, "unidades_gestoras") + ` ug ON g.coug = ug.coug
		WHERE ` + having + `
		ORDER BY ` + orderBy

	rows, err := s.repo.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query saldos por conta: %w", err)
	}
	defer rows.Close()

	var out []Inconsistencia
	for rows.Next() {
		var coug, nome, conta, corrente sql.NullString
		var i Inconsistencia
		if err := rows.Scan(&coug, &nome, &conta, &corrente, &i.SaldoTotal); err != nil {
			return nil, fmt.Errorf("scan saldo por conta: %w", err)
		}
		i.COUG, i.ContaContabil, i.ContaCorrente = coug.String, conta.String, corrente.String
		i.NomeUG = nullString(nome, nomeUGNaoEncontrado)
		out = append(out, i)
	}
	return out, rows.Err()
}
