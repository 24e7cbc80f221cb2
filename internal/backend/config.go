package backend

import (
	"fmt"

	"orcamento/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:        t,
		DBDir:       appConfig.DBDir(),
		DatabaseURL: appConfig.DatabaseURL,
	}, nil
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLite:
		if c.DBDir == "" {
			return fmt.Errorf("database directory is required for sqlite backend")
		}
	case Postgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	}
	return nil
}

// Types returns all valid backend types.
func Types() []Type {
	return []Type{SQLite, Postgres}
}
