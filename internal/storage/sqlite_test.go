package storage_test

import (
	"context"
	"errors"
	"testing"

	"orcamento/internal/storage"
	"orcamento/internal/storage/storagetest"
)

func TestSQLiteRepositoryAttachesLayout(t *testing.T) {
	repo := storagetest.NewSQLite(t)
	ctx := context.Background()

	storagetest.Insert(t, repo, storage.SchemaDimensoes, "categorias",
		storagetest.Row{"cocategoriareceita": "1", "nocategoriareceita": "Receitas Correntes"})

	var nome string
	q := "SELECT nocategoriareceita FROM " + repo.SchemaQualify(storage.SchemaDimensoes, "categorias") + " WHERE cocategoriareceita = ?"
	if err := repo.QueryRow(ctx, q, "1").Scan(&nome); err != nil {
		t.Fatalf("query attached table: %v", err)
	}
	if nome != "Receitas Correntes" {
		t.Fatalf("got %q", nome)
	}

	for _, ldb := range storage.Catalog() {
		tables, err := repo.Tables(ctx, ldb)
		if err != nil {
			t.Fatalf("tables of %s: %v", ldb.Name, err)
		}
		if len(tables) != len(ldb.Tables) {
			t.Errorf("%s: got %d tables %v, want %d", ldb.Name, len(tables), tables, len(ldb.Tables))
		}
	}
}

func TestColumnsAndResolveTable(t *testing.T) {
	repo := storagetest.NewSQLite(t)
	ctx := context.Background()
	db, err := storage.LookupDB("lancamentos")
	if err != nil {
		t.Fatalf("LookupDB: %v", err)
	}

	cols, err := repo.Columns(ctx, db, "lancamentos")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if len(cols) == 0 || cols[0].Name != "coexercicio" || cols[0].Type != "INTEGER" {
		t.Fatalf("unexpected columns: %v", cols)
	}

	ref, err := storage.ResolveTable(ctx, repo, db, "lancamentos")
	if err != nil || ref != `lancamentos_db."lancamentos"` {
		t.Fatalf("ResolveTable = %q, %v", ref, err)
	}
	if _, err := storage.ResolveTable(ctx, repo, db, "lancamentos; DROP TABLE x"); !errors.Is(err, storage.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
	if _, err := storage.LookupDB("outro"); !errors.Is(err, storage.ErrUnknownDatabase) {
		t.Fatalf("expected ErrUnknownDatabase, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(ctx, dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	storagetest.Insert(t, repo, storage.SchemaSaldos, "fato_saldos",
		storagetest.Saldo(2025, 1, "621200000", "130101", "11125001", 10))
	repo.Close()

	repo, err = storage.NewSQLiteRepository(ctx, dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	var n int
	if err := repo.QueryRow(ctx, "SELECT COUNT(*) FROM fato_saldos").Scan(&n); err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestSchemaOfTable(t *testing.T) {
	if s, ok := storage.SchemaOfTable("alineas"); !ok || s != storage.SchemaDimensoes {
		t.Fatalf("SchemaOfTable(alineas) = %q, %v", s, ok)
	}
	if _, ok := storage.SchemaOfTable("nada"); ok {
		t.Fatalf("unexpected schema for unknown table")
	}
}
