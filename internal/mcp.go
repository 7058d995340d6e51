package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/gebo/internal/engine"
	"github.com/starford/gebo/internal/mcpserver"
	"github.com/starford/gebo/internal/outline"
	"github.com/starford/gebo/internal/store"
)

// RunMCP starts the MCP server on stdio. Logs go to stderr so stdout stays
// clean for the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	ws, err := outline.Open(cfg.Workspace.Path, logger)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}

	eng := engine.New(ws, db, db, logger)
	sched := engine.NewScheduler(ctx, eng, db, cfg.Sync.Debounce(), nil, logger)
	defer sched.Stop()

	srv := mcpserver.New(sched, ws, db)
	logger.Info("MCP server starting on stdio",
		slog.String("workspace_path", cfg.Workspace.Path))
	return srv.ServeStdio()
}
