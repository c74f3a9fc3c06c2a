package db

import (
	"context"
	"fmt"

	"github.com/cruiselens/payments-backend/internal/config"
	repo "github.com/cruiselens/payments-backend/internal/repository"
	"github.com/cruiselens/payments-backend/internal/repository/postgres"
	"github.com/cruiselens/payments-backend/internal/repository/sqlite"
)

// OpenStore connects the configured driver and returns its repositories
// with a close func. migrate applies the postgres migrations; the sqlite
// schema is always ensured on open.
func OpenStore(ctx context.Context, cfg config.Config, migrate bool) (repo.Repositories, func(), error) {
	switch cfg.StoreDriver {
	case "sqlite":
		sdb, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return repo.Repositories{}, nil, err
		}
		return sqlite.NewRepositories(sdb), func() { sdb.Close() }, nil
	case "postgres":
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return repo.Repositories{}, nil, fmt.Errorf("db connect: %w", err)
		}
		if migrate {
			if err := RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return repo.Repositories{}, nil, fmt.Errorf("migrations: %w", err)
			}
		}
		return postgres.NewRepositories(pool), pool.Close, nil
	default:
		return repo.Repositories{}, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
