package app

import (
	"context"
	"fmt"

	"dogenews/config"
	"dogenews/internal/subscriber"
	"dogenews/pkg/storage/buntstore"
	"dogenews/pkg/storage/postgres"
	"dogenews/pkg/storage/redisstore"

	"go.uber.org/zap"
)

// OpenStore builds the subscriber store selected by store.driver. The returned
// close function releases the backend's connections and is never nil.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (subscriber.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case config.StoreFile:
		logger.Info("using file subscriber store", zap.String("path", cfg.Store.Path))
		return subscriber.NewFileStore(cfg.Store.Path), noop, nil

	case config.StoreBuntDB:
		db, err := buntstore.Open(cfg.Store.Path)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using buntdb subscriber store", zap.String("path", cfg.Store.Path))
		return db, db.Close, nil

	case config.StoreRedis:
		client, err := redisstore.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using redis subscriber store", zap.String("addr", cfg.Redis.Addr), zap.String("key", cfg.Redis.Key))
		return redisstore.New(client, cfg.Redis.Key), client.Close, nil

	case config.StorePostgres:
		client, err := postgres.InitializeAndMigrate(cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		if !client.IsHealthy(ctx) {
			_ = client.Close()
			return nil, noop, fmt.Errorf("postgres %s:%d is not healthy", cfg.Postgres.Host, cfg.Postgres.Port)
		}
		logger.Info("using postgres subscriber store",
			zap.String("host", cfg.Postgres.Host), zap.String("dbname", cfg.Postgres.DBName))
		return postgres.NewSubscriberStore(client), client.Close, nil
	}

	return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
