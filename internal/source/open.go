package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zapponejosh/ordo-api/internal/config"
	"github.com/zapponejosh/ordo-api/internal/data"
	"github.com/zapponejosh/ordo-api/internal/database"
	"github.com/zapponejosh/ordo-api/internal/liturgy"
)

// Open builds the fetcher selected by cfg.DataSource. For the sqlite
// source it also returns the opened, migrated database, which the caller
// must close; the other sources return a nil DB.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (liturgy.Fetcher, *database.DB, error) {
	switch cfg.DataSource {
	case config.SourceEmbedded, "":
		return NewFS(data.FS, ""), nil, nil

	case config.SourceDir:
		info, err := os.Stat(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("data dir: %w", err)
		}
		if !info.IsDir() {
			return nil, nil, fmt.Errorf("data dir %s is not a directory", cfg.DataDir)
		}
		return NewFS(os.DirFS(cfg.DataDir), ""), nil, nil

	case config.SourceHTTP:
		h, err := NewHTTP(cfg.DataURL, cfg.FetchTimeout, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("data url: %w", err)
		}
		return h, nil, nil

	case config.SourceSQLite:
		db, err := database.Open(database.DefaultConfig(cfg.DatabasePath), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		if _, err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		return db, db, nil
	}
	return nil, nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
}
