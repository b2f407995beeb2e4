package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/reelindex/catalog-trust/internal/registry"
	"github.com/reelindex/catalog-trust/internal/store"
)

// openStore picks the backend from config. SQLite is the default so local
// runs need no setup.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store: database_url is required for the postgres driver")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "", "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "catalog-trust.db"
		}
		return store.NewSQLite(path)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
}

// loadRegistry reads the operator-editable source table, falling back to the
// built-in defaults when no path is configured.
func loadRegistry() (*registry.SourceRegistry, error) {
	if cfg.Registry.Path == "" {
		return registry.Default(), nil
	}
	return registry.Load(cfg.Registry.Path)
}
