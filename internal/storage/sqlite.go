package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"orcamento/internal/dialect"

	_ "modernc.org/sqlite"
)

// SQLiteRepository opens the balances file and attaches the remaining
// files of the layout as schemas of the same connection.
type SQLiteRepository struct {
	db  *sql.DB
	dir string
}

// NewSQLiteRepository migrates every file under dir and returns a
// repository with all of them attached.
func NewSQLiteRepository(ctx context.Context, dir string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	for _, ldb := range catalog {
		if err := RunSQLiteMigrations(filepath.Join(dir, ldb.File), ldb.Name); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", ldb.File, err)
		}
	}

	mainPath := filepath.Join(dir, catalog[0].File)
	db, err := sql.Open("sqlite", mainPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// ATTACH is scoped to a connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, ldb := range catalog[1:] {
		path := filepath.Join(dir, ldb.File)
		if _, err := db.ExecContext(ctx, "ATTACH DATABASE ? AS "+ldb.Schema, path); err != nil {
			db.Close()
			return nil, fmt.Errorf("attach %s: %w", ldb.File, err)
		}
	}

	slog.InfoContext(ctx, "SQLite repository ready", "dir", dir, "attached", len(catalog)-1)

	return &SQLiteRepository{db: db, dir: dir}, nil
}

func (r *SQLiteRepository) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, query, args...)
}

func (r *SQLiteRepository) QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, query, args...)
}

func (r *SQLiteRepository) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, query, args...)
}

func (r *SQLiteRepository) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, opts)
}

func (r *SQLiteRepository) SchemaQualify(schema, table string) string {
	return dialect.SQLite().Qualify(schema, table)
}

func (r *SQLiteRepository) Dialect() dialect.Dialect {
	return dialect.SQLite()
}

func (r *SQLiteRepository) Tables(ctx context.Context, db LogicalDB) ([]TableInfo, error) {
	q := "SELECT name, type FROM " + db.Schema + ".sqlite_master " +
		"WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' AND name <> 'schema_migrations' ORDER BY name"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables of %s: %w", db.Name, err)
	}
	defer rows.Close()
	var out []TableInfo
	for rows.Next() {
		var t TableInfo
		if err := rows.Scan(&t.Name, &t.Type); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Columns(ctx context.Context, db LogicalDB, table string) ([]ColumnInfo, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?, ?) ORDER BY cid", table, db.Schema)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	defer rows.Close()
	var out []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Dir is the directory holding the database files.
func (r *SQLiteRepository) Dir() string {
	return r.dir
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
