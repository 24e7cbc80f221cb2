package etl

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"orcamento/internal/dialect"
	"orcamento/internal/storage"
)

// Destino receives the rows of a load.
type Destino interface {
	Truncar(ctx context.Context, tabela string) error
	Inserir(ctx context.Context, tabela string, colunas []string, linhas [][]any) error
}

// DestinoRepositorio writes through the application repository with one
// prepared INSERT per batch transaction. It serves both backends.
type DestinoRepositorio struct {
	repo storage.Repository
}

func NovoDestinoRepositorio(repo storage.Repository) *DestinoRepositorio {
	return &DestinoRepositorio{repo: repo}
}

func (d *DestinoRepositorio) ref(tabela string) string {
	schema, _ := storage.SchemaOfTable(tabela)
	return d.repo.SchemaQualify(schema, tabela)
}

func (d *DestinoRepositorio) Truncar(ctx context.Context, tabela string) error {
	q := "DELETE FROM " + d.ref(tabela)
	if d.repo.Dialect().Name() == dialect.NamePostgres {
		q = "TRUNCATE TABLE " + d.ref(tabela)
	}
	if _, err := d.repo.Exec(ctx, q); err != nil {
		return fmt.Errorf("truncate %s: %w", tabela, err)
	}
	return nil
}

func (d *DestinoRepositorio) Inserir(ctx context.Context, tabela string, colunas []string, linhas [][]any) error {
	if len(linhas) == 0 {
		return nil
	}
	dl := d.repo.Dialect()
	ph := make([]string, len(colunas))
	for i := range colunas {
		ph[i] = dl.Placeholder(i + 1)
	}
	q := "INSERT INTO " + d.ref(tabela) + " (" + strings.Join(colunas, ", ") + ") VALUES (" + strings.Join(ph, ", ") + ")"

	tx, err := d.repo.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", tabela, err)
	}
	defer stmt.Close()

	for _, l := range linhas {
		if _, err := stmt.ExecContext(ctx, l...); err != nil {
			return fmt.Errorf("insert %s: %w", tabela, err)
		}
	}
	return tx.Commit()
}

// DestinoCopy bulk loads Postgres tables with COPY FROM STDIN.
type DestinoCopy struct {
	db *sql.DB
}

// AbrirDestinoCopy opens a dedicated lib/pq connection pool for COPY.
func AbrirDestinoCopy(ctx context.Context, url string) (*DestinoCopy, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DestinoCopy{db: db}, nil
}

func (d *DestinoCopy) Truncar(ctx context.Context, tabela string) error {
	if _, err := d.db.ExecContext(ctx, "TRUNCATE TABLE "+pq.QuoteIdentifier(tabela)); err != nil {
		return fmt.Errorf("truncate %s: %w", tabela, err)
	}
	return nil
}

func (d *DestinoCopy) Inserir(ctx context.Context, tabela string, colunas []string, linhas [][]any) error {
	if len(linhas) == 0 {
		return nil
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(tabela, colunas...))
	if err != nil {
		return fmt.Errorf("copy %s: %w", tabela, err)
	}
	for _, l := range linhas {
		if _, err := stmt.ExecContext(ctx, l...); err != nil {
			stmt.Close()
			return fmt.Errorf("copy %s: %w", tabela, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("copy flush %s: %w", tabela, err)
	}
	if err := stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DestinoCopy) Close() error { return d.db.Close() }

// criarIndices creates the single or composite indexes of a table.
func criarIndices(ctx context.Context, repo storage.Repository, tabela string, indices [][]string) error {
	schema, _ := storage.SchemaOfTable(tabela)
	for _, cols := range indices {
		nome := "idx_" + tabela + "_" + strings.Join(cols, "_")
		q := "CREATE INDEX IF NOT EXISTS " + repo.SchemaQualify(schema, nome) +
			" ON " + tabela + " (" + strings.Join(cols, ", ") + ")"
		if _, err := repo.Exec(ctx, q); err != nil {
			return fmt.Errorf("create index %s: %w", nome, err)
		}
	}
	return nil
}
