// Package storagetest opens throwaway SQLite layouts for package tests.
package storagetest

import (
	"context"
	"sort"
	"strings"
	"testing"

	"orcamento/internal/storage"
)

// NewSQLite returns a migrated repository rooted in a temporary directory.
func NewSQLite(t testing.TB) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("open sqlite repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// Row is one record keyed by column name.
type Row map[string]any

// Insert writes rows into schema.table.
func Insert(t testing.TB, repo storage.Repository, schema, table string, rows ...Row) {
	t.Helper()
	for _, row := range rows {
		cols := make([]string, 0, len(row))
		for c := range row {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		ph := make([]string, len(cols))
		vals := make([]any, len(cols))
		for i, c := range cols {
			ph[i] = repo.Dialect().Placeholder(i + 1)
			vals[i] = row[c]
		}
		q := "INSERT INTO " + repo.SchemaQualify(schema, table) +
			" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(ph, ", ") + ")"
		if _, err := repo.Exec(context.Background(), q, vals...); err != nil {
			t.Fatalf("insert into %s: %v", table, err)
		}
	}
}

// Saldo builds a fato_saldos row for a revenue account.
func Saldo(ano, mes int, conta, coug, contaCorrente string, valor float64) Row {
	r := Row{
		"coexercicio":     ano,
		"inmes":           mes,
		"coug":            coug,
		"cocontacontabil": conta,
		"cocontacorrente": contaCorrente,
		"intipoadm":       2,
		"saldo_contabil":  valor,
	}
	if len(contaCorrente) >= 6 {
		r["categoriareceita"] = contaCorrente[0:1]
		r["cofontereceita"] = contaCorrente[0:2]
		r["cosubfontereceita"] = contaCorrente[0:3]
		r["corubrica"] = contaCorrente[0:4]
		r["coalinea"] = contaCorrente[0:6]
	}
	if len(contaCorrente) >= 17 {
		r["cofonte"] = contaCorrente[8:17]
	}
	return r
}
