package app

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"stagehub/internal/blob"
	"stagehub/internal/config"
	"stagehub/internal/db"
	"stagehub/internal/engine"
	"stagehub/internal/migrate"
)

// Open brings up the full application context for a workspace: database,
// migrations, config, document store, and the seeded engine.
func Open(ctx context.Context, workspace string) (engine.Engine, *sql.DB, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return engine.Engine{}, nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	e := engine.New(conn, cfg)

	docDir := cfg.Documents.Dir
	if docDir == "" {
		docDir = filepath.Join(workspace, ".stagehub", "documents")
	}
	store, err := blob.New(docDir)
	if err != nil {
		conn.Close()
		return engine.Engine{}, nil, err
	}
	e.Blobs = store

	if err := e.SeedCatalog(ctx, cfg.Seed); err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("seed catalog: %w", err)
	}
	return e, conn, nil
}
