package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"orcamento/internal/core"
	"orcamento/internal/storage"
)

// COUG is a managing unit (unidade gestora) with accounting movement.
type COUG struct {
	Codigo            string `json:"coug"`
	Nome              string `json:"nome"`
	DescricaoCompleta string `json:"descricao_completa"`
}

// OpcaoCOUG is one entry of the unit selector.
type OpcaoCOUG struct {
	Valor    string `json:"valor"`
	Texto    string `json:"texto"`
	Selected bool   `json:"selected"`
}

// ListarCOUGs lists units with movement. Without rules the result is served
// from the cache; with rules only units with non-zero balances on any of
// the rules' accounts are returned.
func (s *Service) ListarCOUGs(ctx context.Context, regras ...core.RegraConta) ([]COUG, error) {
	if len(regras) == 0 {
		return s.cougs.GetOrLoad(ctx, keyCOUGs, func(ctx context.Context) ([]COUG, error) {
			return s.queryCOUGs(ctx, nil)
		})
	}
	return s.queryCOUGs(ctx, regras)
}

func (s *Service) queryCOUGs(ctx context.Context, regras []core.RegraConta) ([]COUG, error) {
	a := s.args()
	d := s.repo.Dialect()
	where := []string{"f.coug IS NOT NULL", "f.coug <> ''"}
	if len(regras) > 0 {
		ors := make([]string, len(regras))
		for i, r := range regras {
			ors[i] = regra(a, r, "f.cocontacontabil")
		}
		where = append(where, "f.saldo_contabil <> 0", "("+strings.Join(ors, " OR ")+")")
	}
	q := `SELECT f.coug, ug.noug
		FROM ` + s.table(storage.SchemaSaldos, "fato_saldos") + ` f
		LEFT JOIN ` + s.table(storage.SchemaDimensoes, "unidades_gestoras") + ` ug ON f.coug = ug.coug
		WHERE ` + strings.Join(where, " AND ") + `
		GROUP BY f.coug, ug.noug
		ORDER BY ` + d.CastInt("f.coug") + `, f.coug`

	rows, err := s.repo.QueryRows(ctx, q, a.Values()...)
	if err != nil {
		return nil, fmt.Errorf("list cougs: %w", err)
	}
	defer rows.Close()

	var out []COUG
	for rows.Next() {
		var codigo string
		var nome sql.NullString
		if err := rows.Scan(&codigo, &nome); err != nil {
			return nil, fmt.Errorf("scan coug: %w", err)
		}
		n := nullString(nome, "UG "+codigo)
		out = append(out, COUG{Codigo: codigo, Nome: n, DescricaoCompleta: codigo + " - " + n})
	}
	return out, rows.Err()
}

// ValidarCOUG reports whether the unit has balances. Empty means consolidated
// and is always valid.
func (s *Service) ValidarCOUG(ctx context.Context, coug string) (bool, error) {
	if coug == "" {
		return true, nil
	}
	a := s.args()
	q := "SELECT COUNT(*) FROM " + s.table(storage.SchemaSaldos, "fato_saldos") + " WHERE coug = " + a.Add(coug)
	var n int64
	if err := s.repo.QueryRow(ctx, q, a.Values()...).Scan(&n); err != nil {
		return false, fmt.Errorf("validate coug: %w", err)
	}
	return n > 0, nil
}

// NomeCOUG returns the unit name, "CONSOLIDADO" for no unit, or "UG X"
// when the unit is not in the dimension table.
func (s *Service) NomeCOUG(ctx context.Context, coug string) string {
	if coug == "" {
		return "CONSOLIDADO"
	}
	a := s.args()
	q := "SELECT noug FROM " + s.table(storage.SchemaDimensoes, "unidades_gestoras") + " WHERE coug = " + a.Add(coug)
	var nome sql.NullString
	if err := s.repo.QueryRow(ctx, q, a.Values()...).Scan(&nome); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.WarnContext(ctx, "COUG name lookup failed", "coug", coug, "error", err)
		}
		return "UG " + coug
	}
	return nullString(nome, "UG "+coug)
}

// TituloCOUG is the report subtitle for a unit selection.
func TituloCOUG(coug, nome string) string {
	if coug == "" {
		return "Dados Consolidados - Todas as Unidades Gestoras"
	}
	return "Dados da " + nome
}

// SufixoArquivoCOUG is appended to export file names.
func SufixoArquivoCOUG(coug string) string {
	if coug == "" {
		return "_consolidado"
	}
	return "_coug_" + core.SanitizeCOUG(coug)
}

// OpcoesCOUG builds the unit selector with the consolidated entry first.
func OpcoesCOUG(cougs []COUG, selecionada string) []OpcaoCOUG {
	out := make([]OpcaoCOUG, 0, len(cougs)+1)
	out = append(out, OpcaoCOUG{Valor: "", Texto: "📊 DADOS CONSOLIDADOS", Selected: selecionada == ""})
	for _, c := range cougs {
		out = append(out, OpcaoCOUG{Valor: c.Codigo, Texto: "🏛️ " + c.DescricaoCompleta, Selected: c.Codigo == selecionada})
	}
	return out
}

// DescricaoCOUG returns the full description of a listed unit.
func DescricaoCOUG(cougs []COUG, coug string) string {
	for _, c := range cougs {
		if c.Codigo == coug {
			return c.DescricaoCompleta
		}
	}
	return ""
}
