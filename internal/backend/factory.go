package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/memory"
	"expensetracker/internal/storage/postgres"
)

const (
	defaultCacheSize = 64
	defaultCacheTTL  = 5 * time.Minute
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the store and its view caches. On error nothing is
// left open.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	views, closeViews, err := f.createViews(ctx, config)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &BackendResult{
		Store: store,
		Views: views,
		Cleanup: func() error {
			return errors.Join(closeViews(), store.Close())
		},
	}, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil

	case PostgresBackend:
		store, err := postgres.Open(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		return store, nil

	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		f.logger.Info("Initialized memory backend", "data_directory", dataDir)
		return memory.NewFromFiles(dataDir), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createViews(ctx context.Context, config Config) (services.Views, func() error, error) {
	size, ttl := config.CacheSize, config.CacheTTL
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	if config.Cache != RedisCache {
		f.logger.Info("Using in-process view cache", "size", size, "ttl", ttl.String())
		return services.NewMemoryViews(size, ttl), func() error { return nil }, nil
	}

	client, err := cache.NewRedisClient(ctx, config.RedisURL)
	if err != nil {
		return services.Views{}, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	f.logger.Info("Using Redis view cache", "ttl", ttl.String())
	return services.NewRedisViews(client, ttl), client.Close, nil
}
