package redisStore

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var (
	instances = make(map[int]*Store)
	mu        sync.RWMutex
	logger    = logger_i.NewLogger("RedisStore")
	once      sync.Once
)

type Store struct {
	client *redis.Client
	Type   int
}

// GetRedisStore returns the shared store for one Redis database, connecting on first use.
// Returns nil when Redis cannot be reached.
func GetRedisStore(ctx context.Context, cfg config.RedisConfig, dbType int) *Store {
	mu.RLock()
	instance, exists := instances[dbType]
	mu.RUnlock()

	if exists {
		return instance
	}

	mu.Lock()
	defer mu.Unlock()

	if instance, exists = instances[dbType]; exists {
		return instance
	}
	return createNewStore(ctx, cfg, dbType)
}

func closeRedisStores(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Redis Stores")
	mu.Lock()
	defer mu.Unlock()
	for db, store := range instances {
		if err := store.client.Close(); err != nil {
			logger.Error("Error closing redis client", "db", db, "error", err)
		}
		delete(instances, db)
	}
	logger.Info("Redis Store Closed successfully")
}

func createNewStore(ctx context.Context, cfg config.RedisConfig, dbType int) *Store {
	newClient := redis.NewClient(&redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		logger.Error("Redis is offline", "addr", cfg.Addr, "db", dbType, "error", err)
		_ = newClient.Close()
		return nil
	}

	logger.Info("Redis store init successfully", "db", dbType)

	newStore := &Store{
		client: newClient,
		Type:   dbType,
	}

	instances[dbType] = newStore
	once.Do(func() {
		go closeRedisStores(ctx)
	})
	return newStore
}

// NewTestStore wraps an existing client, used by tests against miniredis.
func NewTestStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}
