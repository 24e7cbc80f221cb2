// Package dialect produces SQL fragments for the two supported backends.
//
// Report queries are written once and ask the dialect for anything that
// differs between SQLite and PostgreSQL: placeholders, casts and
// schema-qualified table names. Values always travel as bound arguments
// collected by Args.
package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	NameSQLite   = "sqlite"
	NamePostgres = "postgres"
)

// Dialect describes the syntax differences the reports depend on.
type Dialect interface {
	Name() string
	// Placeholder returns the marker for the n-th bound argument (1-based).
	// Both backends use numbered markers so clause order never matters.
	Placeholder(n int) string
	CastInt(expr string) string
	CastText(expr string) string
	// Qualify returns a table reference usable from the main connection.
	Qualify(schema, table string) string
	// QuoteIdent quotes an identifier that was validated against the catalog.
	QuoteIdent(name string) string
}

type sqliteDialect struct{}

// SQLite attaches auxiliary database files as schemas of one connection.
func SQLite() Dialect { return sqliteDialect{} }

func (sqliteDialect) Name() string               { return NameSQLite }
func (sqliteDialect) Placeholder(n int) string   { return "?" + strconv.Itoa(n) }
func (sqliteDialect) CastInt(expr string) string { return "CAST(" + expr + " AS INTEGER)" }
func (sqliteDialect) CastText(expr string) string {
	return "CAST(" + expr + " AS TEXT)"
}
func (sqliteDialect) Qualify(schema, table string) string {
	if schema == "" || schema == "main" {
		return table
	}
	return schema + "." + table
}
func (sqliteDialect) QuoteIdent(name string) string { return quoteIdent(name) }

type postgresDialect struct{}

// Postgres keeps every table in the connection's search path.
func Postgres() Dialect { return postgresDialect{} }

func (postgresDialect) Name() string               { return NamePostgres }
func (postgresDialect) Placeholder(n int) string   { return "$" + strconv.Itoa(n) }
func (postgresDialect) CastInt(expr string) string { return "(" + expr + ")::integer" }
func (postgresDialect) CastText(expr string) string {
	return "(" + expr + ")::text"
}
func (postgresDialect) Qualify(_, table string) string { return table }
func (postgresDialect) QuoteIdent(name string) string  { return quoteIdent(name) }

// ForName returns the dialect registered under name.
func ForName(name string) (Dialect, error) {
	switch name {
	case NameSQLite:
		return SQLite(), nil
	case NamePostgres:
		return Postgres(), nil
	}
	return nil, fmt.Errorf("unknown dialect %q", name)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
