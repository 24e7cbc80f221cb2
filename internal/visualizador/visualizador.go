// Package visualizador is the read-only database browser: per-database
// status, table structure, paginated filtered rows, exports and ad-hoc
// SELECT queries.
package visualizador

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"orcamento/internal/dialect"
	"orcamento/internal/log"
	"orcamento/internal/storage"
)

const (
	DefaultPerPage  = 100
	MaxPerPage      = 1000
	maxQueryRows    = 1000
	maxValoresUnico = 100
	maxCamposFiltro = 10
)

var (
	ErrQueryNotAllowed = errors.New("apenas queries SELECT são permitidas")
	ErrQueryVazia      = errors.New("query vazia")
)

// Browser runs the browser queries against a repository.
type Browser struct {
	repo   storage.Repository
	logger *log.Logger
}

func New(repo storage.Repository, logger *log.Logger) *Browser {
	if logger == nil {
		logger = log.Discard()
	}
	return &Browser{repo: repo, logger: logger.WithComponent(log.ComponentVisualizador)}
}

// StatusBanco summarizes one logical database.
type StatusBanco struct {
	Nome      string `json:"nome"`
	Arquivo   string `json:"arquivo"`
	Existe    bool   `json:"existe"`
	Tabelas   int    `json:"tabelas"`
	Registros int64  `json:"registros"`
	Erro      string `json:"erro,omitempty"`
}

// Status reports every database of the catalog. A failing database is
// reported with its error instead of aborting the listing.
func (b *Browser) Status(ctx context.Context) []StatusBanco {
	var out []StatusBanco
	for _, db := range storage.Catalog() {
		st := StatusBanco{Nome: db.Name, Arquivo: db.File}
		tables, err := b.repo.Tables(ctx, db)
		if err != nil {
			b.logger.WarnContext(ctx, "Database status failed", log.FieldBanco, db.Name, log.FieldError, err.Error())
			st.Erro = err.Error()
			out = append(out, st)
			continue
		}
		st.Existe = len(tables) > 0
		st.Tabelas = len(tables)
		for _, t := range tables {
			n, err := b.count(ctx, db, t.Name, "", nil)
			if err == nil {
				st.Registros += n
			}
		}
		out = append(out, st)
	}
	return out
}

// Tabela describes a table and its columns.
type Tabela struct {
	Nome           string               `json:"nome"`
	Tipo           string               `json:"tipo"`
	Colunas        []storage.ColumnInfo `json:"colunas"`
	TotalRegistros int64                `json:"total_registros"`
}

// Estrutura lists tables and views of a logical database.
func (b *Browser) Estrutura(ctx context.Context, banco string) ([]Tabela, error) {
	db, err := storage.LookupDB(banco)
	if err != nil {
		return nil, err
	}
	tables, err := b.repo.Tables(ctx, db)
	if err != nil {
		return nil, err
	}
	out := make([]Tabela, 0, len(tables))
	for _, t := range tables {
		cols, err := b.repo.Columns(ctx, db, t.Name)
		if err != nil {
			return nil, err
		}
		n, err := b.count(ctx, db, t.Name, "", nil)
		if err != nil {
			b.logger.WarnContext(ctx, "Count failed", log.FieldTabela, t.Name, log.FieldError, err.Error())
		}
		out = append(out, Tabela{Nome: t.Name, Tipo: t.Type, Colunas: cols, TotalRegistros: n})
	}
	return out, nil
}

// ParamsDados selects a page of rows. Filtros maps column names to values;
// unknown columns are ignored.
type ParamsDados struct {
	Banco   string
	Tabela  string
	Page    int
	PerPage int
	Filtros map[string]string
}

func (p *ParamsDados) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

// Pagina is one page of rows plus the filter metadata of the table.
type Pagina struct {
	Banco          string              `json:"banco"`
	Tabela         string              `json:"tabela"`
	Colunas        []string            `json:"colunas"`
	Dados          [][]string          `json:"dados"`
	Page           int                 `json:"page"`
	PerPage        int                 `json:"per_page"`
	TotalRegistros int64               `json:"total_registros"`
	TotalPages     int64               `json:"total_pages"`
	CamposFiltro   []string            `json:"campos_filtro"`
	ValoresUnicos  map[string][]string `json:"valores_unicos"`
	FiltrosAtivos  map[string]string   `json:"filtros_ativos"`
}

// Dados returns a page of rows of a catalog table.
func (b *Browser) Dados(ctx context.Context, p ParamsDados) (Pagina, error) {
	p.normalize()
	db, err := storage.LookupDB(p.Banco)
	if err != nil {
		return Pagina{}, err
	}
	ref, err := storage.ResolveTable(ctx, b.repo, db, p.Tabela)
	if err != nil {
		return Pagina{}, err
	}
	cols, err := b.repo.Columns(ctx, db, p.Tabela)
	if err != nil {
		return Pagina{}, err
	}

	a := dialect.NewArgs(b.repo.Dialect())
	where, ativos := b.filtros(a, cols, p.Filtros)

	total, err := b.count(ctx, db, p.Tabela, where, a.Values())
	if err != nil {
		return Pagina{}, err
	}

	q := "SELECT * FROM " + ref + where + " LIMIT " + a.Add(p.PerPage) + " OFFSET " + a.Add((p.Page-1)*p.PerPage)
	nomes, dados, err := b.scanAll(ctx, q, a.Values(), 0)
	if err != nil {
		return Pagina{}, err
	}
	if len(nomes) == 0 {
		for _, c := range cols {
			nomes = append(nomes, c.Name)
		}
	}

	campos := camposFiltro(p.Tabela, cols)
	return Pagina{
		Banco:          p.Banco,
		Tabela:         p.Tabela,
		Colunas:        nomes,
		Dados:          dados,
		Page:           p.Page,
		PerPage:        p.PerPage,
		TotalRegistros: total,
		TotalPages:     (total + int64(p.PerPage) - 1) / int64(p.PerPage),
		CamposFiltro:   campos,
		ValoresUnicos:  b.valoresUnicos(ctx, ref, campos),
		FiltrosAtivos:  ativos,
	}, nil
}

// Exportacao is a full filtered table read for download.
type Exportacao struct {
	Banco   string
	Tabela  string
	Colunas []string
	Dados   [][]string
	Filtros map[string]string
}

// Exportar reads every row of a table matching the filters.
func (b *Browser) Exportar(ctx context.Context, banco, tabela string, filtros map[string]string) (Exportacao, error) {
	db, err := storage.LookupDB(banco)
	if err != nil {
		return Exportacao{}, err
	}
	ref, err := storage.ResolveTable(ctx, b.repo, db, tabela)
	if err != nil {
		return Exportacao{}, err
	}
	cols, err := b.repo.Columns(ctx, db, tabela)
	if err != nil {
		return Exportacao{}, err
	}
	a := dialect.NewArgs(b.repo.Dialect())
	where, ativos := b.filtros(a, cols, filtros)
	nomes, dados, err := b.scanAll(ctx, "SELECT * FROM "+ref+where, a.Values(), 0)
	if err != nil {
		return Exportacao{}, err
	}
	return Exportacao{Banco: banco, Tabela: tabela, Colunas: nomes, Dados: dados, Filtros: ativos}, nil
}

// NomeArquivo is the download name of an export.
func (e Exportacao) NomeArquivo(ext string, em time.Time) string {
	parts := []string{e.Banco, e.Tabela}
	if len(e.Filtros) > 0 {
		parts = append(parts, "filtrado")
	}
	parts = append(parts, em.Format("20060102_150405"))
	return strings.Join(parts, "_") + "." + ext
}

// ResultadoQuery is the output of an ad-hoc query.
type ResultadoQuery struct {
	Query          string     `json:"query"`
	Colunas        []string   `json:"colunas"`
	Dados          [][]string `json:"dados"`
	TotalRegistros int        `json:"total_registros"`
	Truncado       bool       `json:"truncado"`
}

var (
	palavrasProibidas = regexp.MustCompile(`(?i)\b(DROP|DELETE|UPDATE|INSERT|ALTER|CREATE|REPLACE|TRUNCATE|ATTACH|DETACH|PRAGMA|VACUUM|GRANT|REVOKE|COPY)\b`)
	inicioPermitido   = regexp.MustCompile(`(?is)^\s*(SELECT|WITH)\b`)
)

// ValidarQuery accepts a single read-only SELECT statement.
func ValidarQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	q = strings.TrimRight(q, "; \t\r\n")
	if q == "" {
		return "", ErrQueryVazia
	}
	if !inicioPermitido.MatchString(q) {
		return "", ErrQueryNotAllowed
	}
	if strings.Contains(q, ";") {
		return "", fmt.Errorf("%w: múltiplos comandos", ErrQueryNotAllowed)
	}
	if m := palavrasProibidas.FindString(q); m != "" {
		return "", fmt.Errorf("%w: comando proibido %s", ErrQueryNotAllowed, strings.ToUpper(m))
	}
	return q, nil
}

// Query runs a validated SELECT, keeping at most maxQueryRows rows.
func (b *Browser) Query(ctx context.Context, q string) (ResultadoQuery, error) {
	q, err := ValidarQuery(q)
	if err != nil {
		return ResultadoQuery{}, err
	}
	nomes, dados, err := b.scanAll(ctx, q, nil, maxQueryRows+1)
	if err != nil {
		return ResultadoQuery{}, err
	}
	res := ResultadoQuery{Query: q, Colunas: nomes, Dados: dados}
	if len(dados) > maxQueryRows {
		res.Dados = dados[:maxQueryRows]
		res.Truncado = true
	}
	res.TotalRegistros = len(res.Dados)
	b.logger.InfoContext(ctx, "Ad-hoc query executed", log.FieldLinhas, res.TotalRegistros)
	return res, nil
}

// TabelasDisponiveis lists every table of the catalog present in the
// repository, qualified the way queries must reference them.
func (b *Browser) TabelasDisponiveis(ctx context.Context) []string {
	var out []string
	for _, db := range storage.Catalog() {
		tables, err := b.repo.Tables(ctx, db)
		if err != nil {
			continue
		}
		for _, t := range tables {
			out = append(out, b.repo.SchemaQualify(db.Schema, t.Name))
		}
	}
	return out
}

func (b *Browser) filtros(a *dialect.Args, cols []storage.ColumnInfo, filtros map[string]string) (string, map[string]string) {
	ativos := map[string]string{}
	var conds []string
	for _, c := range cols {
		v, ok := lookupFold(filtros, c.Name)
		if !ok || v == "" {
			continue
		}
		conds = append(conds, a.Dialect().CastText(a.Dialect().QuoteIdent(c.Name))+" = "+a.Add(v))
		ativos[c.Name] = v
	}
	if len(conds) == 0 {
		return "", ativos
	}
	return " WHERE " + strings.Join(conds, " AND "), ativos
}

func lookupFold(m map[string]string, key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func (b *Browser) count(ctx context.Context, db storage.LogicalDB, table, where string, args []any) (int64, error) {
	ref := b.repo.SchemaQualify(db.Schema, b.repo.Dialect().QuoteIdent(table))
	var n int64
	if err := b.repo.QueryRow(ctx, "SELECT COUNT(*) FROM "+ref+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (b *Browser) valoresUnicos(ctx context.Context, ref string, campos []string) map[string][]string {
	out := map[string][]string{}
	d := b.repo.Dialect()
	for _, campo := range campos {
		col := d.QuoteIdent(campo)
		q := "SELECT " + d.CastText(col) + " FROM " + ref + " WHERE " + col + " IS NOT NULL GROUP BY " + col + " ORDER BY " + col + " LIMIT " + fmt.Sprint(maxValoresUnico)
		_, dados, err := b.scanAll(ctx, q, nil, 0)
		if err != nil {
			b.logger.DebugContext(ctx, "Distinct values failed", "campo", campo, log.FieldError, err.Error())
			continue
		}
		if len(dados) == 0 {
			continue
		}
		vals := make([]string, len(dados))
		for i, r := range dados {
			vals[i] = r[0]
		}
		out[campo] = vals
	}
	return out
}

// camposFiltro picks the filterable columns of a table: the code and name
// columns for dimensions, the leading columns otherwise.
func camposFiltro(tabela string, cols []storage.ColumnInfo) []string {
	var out []string
	schema, _ := storage.SchemaOfTable(tabela)
	if schema == storage.SchemaDimensoes {
		for _, c := range cols {
			n := strings.ToLower(c.Name)
			if strings.HasPrefix(n, "co") || strings.HasPrefix(n, "no") {
				out = append(out, c.Name)
			}
			if len(out) == 5 {
				break
			}
		}
		return out
	}
	for _, c := range cols {
		if c.Name == "id" {
			continue
		}
		out = append(out, c.Name)
		if len(out) == maxCamposFiltro {
			break
		}
	}
	return out
}

// scanAll reads every row as strings. limit 0 means unlimited.
func (b *Browser) scanAll(ctx context.Context, q string, args []any, limit int) ([]string, [][]string, error) {
	rows, err := b.repo.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	nomes, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	dados := [][]string{}
	for rows.Next() {
		vals := make([]sql.NullString, len(nomes))
		ptrs := make([]any, len(nomes))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan: %w", err)
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = v.String
		}
		dados = append(dados, row)
		if limit > 0 && len(dados) >= limit {
			break
		}
	}
	return nomes, dados, rows.Err()
}
