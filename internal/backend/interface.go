package backend

import (
	"context"

	"orcamento/internal/storage"
)

// Result is an opened repository plus the name of the backend serving it.
type Result struct {
	Repository storage.Repository
	Type       Type
}

// Close releases the repository.
func (r *Result) Close() error {
	if r == nil || r.Repository == nil {
		return nil
	}
	return r.Repository.Close()
}

// Factory opens repositories based on configuration.
type Factory interface {
	Open(ctx context.Context, config Config) (*Result, error)
}

// Config holds what is needed to open either backend.
type Config struct {
	Type Type

	// SQLite: directory holding the per-database files.
	DBDir string

	// Postgres
	DatabaseURL string
}

// Type names a storage backend.
type Type string

const (
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
)

func (t Type) String() string {
	return string(t)
}

// IsValid reports whether t is a known backend.
func (t Type) IsValid() bool {
	switch t {
	case SQLite, Postgres:
		return true
	default:
		return false
	}
}
