package storage

import (
	"context"
	"fmt"

	"NewsDesk/internal/config"
	"NewsDesk/internal/ports"
)

// NewStore opens the backend named by cfg.Driver and prepares its schema.
func NewStore(ctx context.Context, cfg config.DatabaseConfig) (ports.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo, "":
		store, err := NewMongoStore(ctx, cfg.MongoURI, cfg.Name)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		repo, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close(ctx)
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
