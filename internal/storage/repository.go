package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"orcamento/internal/dialect"
)

// Schema names of the attached SQLite files. On Postgres they only group
// tables for the database browser.
const (
	SchemaSaldos             = "main"
	SchemaDimensoes          = "dimensoes"
	SchemaLancamentos        = "lancamentos_db"
	SchemaDespesa            = "despesa_db"
	SchemaLancamentosDespesa = "lancamentos_despesa_db"
)

var (
	ErrUnknownDatabase = errors.New("banco de dados não encontrado")
	ErrUnknownTable    = errors.New("tabela não encontrada")
)

// Repository is the only way the application talks to a database. One
// implementation is chosen at startup.
type Repository interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	// SchemaQualify returns the table reference for a table of a schema.
	SchemaQualify(schema, table string) string
	Dialect() dialect.Dialect
	Tables(ctx context.Context, db LogicalDB) ([]TableInfo, error)
	Columns(ctx context.Context, db LogicalDB, table string) ([]ColumnInfo, error)
	Ping(ctx context.Context) error
	Close() error
}

// LogicalDB is one of the data files of the embedded layout.
type LogicalDB struct {
	Name   string
	Schema string
	File   string
	Tables []string
}

type TableInfo struct {
	Name string `json:"nome"`
	Type string `json:"tipo"`
}

type ColumnInfo struct {
	Name string `json:"nome"`
	Type string `json:"tipo"`
}

var catalog = []LogicalDB{
	{Name: "saldos", Schema: SchemaSaldos, File: "banco_saldo_receita.db", Tables: []string{"fato_saldos", "dim_tempo"}},
	{Name: "lancamentos", Schema: SchemaLancamentos, File: "banco_lancamento_receita.db", Tables: []string{"lancamentos"}},
	{Name: "dimensoes", Schema: SchemaDimensoes, File: "banco_dimensoes.db", Tables: []string{
		"categorias", "origens", "especies", "especificacoes", "alineas",
		"fontes", "funcoes", "subfuncoes", "contas", "unidades_gestoras",
	}},
	{Name: "despesa", Schema: SchemaDespesa, File: "banco_saldo_despesa.db", Tables: []string{"fato_saldo_despesa"}},
	{Name: "lancamentos_despesa", Schema: SchemaLancamentosDespesa, File: "banco_lancamento_despesa.db", Tables: []string{"fato_lancamento_despesa"}},
}

// Catalog lists the logical databases in display order.
func Catalog() []LogicalDB {
	out := make([]LogicalDB, len(catalog))
	copy(out, catalog)
	return out
}

// LookupDB finds a logical database by name.
func LookupDB(name string) (LogicalDB, error) {
	for _, db := range catalog {
		if db.Name == name {
			return db, nil
		}
	}
	return LogicalDB{}, fmt.Errorf("%w: %s", ErrUnknownDatabase, name)
}

// SchemaOfTable returns the schema owning a known table.
func SchemaOfTable(table string) (string, bool) {
	for _, db := range catalog {
		for _, t := range db.Tables {
			if t == table {
				return db.Schema, true
			}
		}
	}
	return "", false
}

// TableExists reports whether the table is present in the logical database.
func TableExists(ctx context.Context, r Repository, db LogicalDB, table string) (bool, error) {
	tables, err := r.Tables(ctx, db)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if t.Name == table {
			return true, nil
		}
	}
	return false, nil
}

// ResolveTable validates a user supplied table name against the catalog and
// returns its qualified reference.
func ResolveTable(ctx context.Context, r Repository, db LogicalDB, table string) (string, error) {
	ok, err := TableExists(ctx, r, db, table)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return r.SchemaQualify(db.Schema, r.Dialect().QuoteIdent(table)), nil
}
