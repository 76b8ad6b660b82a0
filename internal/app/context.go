package app

import (
	"context"
	"database/sql"
	"fmt"

	"pulsepact/internal/config"
	"pulsepact/internal/db"
	"pulsepact/internal/engine"
	"pulsepact/internal/migrate"
)

// Workspace bundles the open database, its config and the engine over them.
type Workspace struct {
	Path   string
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
}

// Open loads pulsepact.yml (defaults when absent), opens the workspace
// database and applies pending migrations.
func Open(ctx context.Context, workspace string) (*Workspace, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	conn, err := db.OpenContext(ctx, db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Workspace{
		Path:   workspace,
		DB:     conn,
		Config: cfg,
		Engine: engine.New(conn, cfg),
	}, nil
}

func (w *Workspace) Close() error {
	if w == nil || w.DB == nil {
		return nil
	}
	return w.DB.Close()
}
