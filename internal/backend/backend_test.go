package backend

import (
	"context"
	"testing"

	"orcamento/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		want    Type
		wantErr bool
	}{
		{"nil", nil, "", true},
		{"sqlite", &config.Config{DataBackend: "sqlite", DataDir: "/tmp/x"}, SQLite, false},
		{"postgres", &config.Config{DataBackend: "postgres", DatabaseURL: "postgres://u@h/db"}, Postgres, false},
		{"unknown", &config.Config{DataBackend: "memory"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Type != tt.want {
				t.Errorf("Type = %q, want %q", got.Type, tt.want)
			}
		})
	}
}

func TestFromAppConfigUsesDBDir(t *testing.T) {
	got, err := FromAppConfig(&config.Config{DataBackend: "sqlite", DataDir: "/srv/dados"})
	if err != nil {
		t.Fatal(err)
	}
	if got.DBDir != "/srv/dados/db" {
		t.Errorf("DBDir = %q", got.DBDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite ok", Config{Type: SQLite, DBDir: "db"}, false},
		{"sqlite without dir", Config{Type: SQLite}, true},
		{"postgres ok", Config{Type: Postgres, DatabaseURL: "postgres://x"}, false},
		{"postgres without url", Config{Type: Postgres}, true},
		{"invalid", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	res, err := NewFactory(nil).Open(context.Background(), Config{Type: SQLite, DBDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer res.Close()
	if res.Type != SQLite {
		t.Errorf("Type = %q", res.Type)
	}
	if err := res.Repository.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	if _, err := NewFactory(nil).Open(context.Background(), Config{Type: Postgres}); err == nil {
		t.Error("expected error without database URL")
	}
}
