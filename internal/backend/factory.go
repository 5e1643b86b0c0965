package backend

import (
	"context"
	"fmt"

	"dreams/internal/amqp"
	"dreams/internal/cache"
	"dreams/internal/core"
	"dreams/internal/journal"
	"dreams/internal/journal/memory"
	"dreams/internal/journal/remote"
	applog "dreams/internal/log"
	"dreams/internal/metrics"
	"dreams/internal/services"
	"dreams/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *applog.Logger
	metrics *metrics.Metrics
}

// NewFactory creates a new backend factory. m may be nil.
func NewFactory(logger *applog.Logger, m *metrics.Metrics) Factory {
	return &DefaultFactory{
		logger:  logger.WithComponent(applog.ComponentBackend),
		metrics: m,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case RemoteBackend:
		result, err = f.createRemoteBackend(config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.CacheSize > 0 {
		months := cache.NewLRUCache[[]core.DreamRecord](config.CacheSize, config.CacheTTL)
		result.Backend = newCached(result.Backend, months, f.metrics)

		manager := cache.NewManager(f.logger)
		manager.Register(months)
		manager.StartCleanup(config.CacheTTL)
		inner := result.Cleanup
		result.Cleanup = func() error {
			manager.Stop()
			if inner != nil {
				return inner()
			}
			return nil
		}
		f.logger.Info("Month cache enabled", "size", config.CacheSize, "ttl", config.CacheTTL)
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional; the service runs without events when the broker is unreachable
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		} else {
			publisher = client
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		}
	}

	svc := services.NewDreamService(repo, publisher, f.metrics, f.logger)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &BackendResult{Backend: svc, Cleanup: svc.Close}, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	client, err := remote.New(config.RemoteAPIURL, config.RemoteTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote client: %w", err)
	}
	f.logger.Info("Initialized remote backend", "url", config.RemoteAPIURL)
	return &BackendResult{Backend: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile, applog.FieldCount, store.Len())
	return &BackendResult{Backend: store}, nil
}

// cachedBackend keeps Ping reachable through the cache decorator.
type cachedBackend struct {
	*journal.CachedStore
	inner Backend
}

func newCached(inner Backend, months cache.Cache[[]core.DreamRecord], m *metrics.Metrics) Backend {
	return &cachedBackend{CachedStore: journal.NewCachedStore(inner, months, m), inner: inner}
}

func (c *cachedBackend) Ping(ctx context.Context) error {
	if p, ok := c.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
