package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"orcamento/internal/dialect"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepository serves every logical database from one Postgres
// schema through the pgx driver.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.InfoContext(ctx, "Postgres repository ready")

	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, query, args...)
}

func (r *PostgresRepository) QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, query, args...)
}

func (r *PostgresRepository) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, query, args...)
}

func (r *PostgresRepository) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, opts)
}

func (r *PostgresRepository) SchemaQualify(schema, table string) string {
	return dialect.Postgres().Qualify(schema, table)
}

func (r *PostgresRepository) Dialect() dialect.Dialect {
	return dialect.Postgres()
}

func (r *PostgresRepository) Tables(ctx context.Context, db LogicalDB) ([]TableInfo, error) {
	a := dialect.NewArgs(dialect.Postgres())
	q := `SELECT table_name, CASE table_type WHEN 'VIEW' THEN 'view' ELSE 'table' END
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name IN (` + a.InStrings(db.Tables) + `)
		ORDER BY table_name`
	rows, err := r.db.QueryContext(ctx, q, a.Values()...)
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

func (r *PostgresRepository) Columns(ctx context.Context, db LogicalDB, table string) ([]ColumnInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
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
		c.Type = strings.ToUpper(c.Type)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
