package store

import (
	"context"
	"errors"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
)

var ErrRedisOffline = errors.New("redis stores are offline")

// NewStores connects the Redis job and result stores. When Redis is unreachable the
// in-memory stores are returned instead if cfg.FallbackInMemory is set.
func NewStores(ctx context.Context, cfg config.RedisConfig) (jobModel.JobStore, jobModel.ResultStore, error) {
	jobs := GetRedisJobStore(ctx, cfg)
	results := GetRedisResultStore(ctx, cfg)
	if jobs != nil && results != nil {
		return jobs, results, nil
	}
	if !cfg.FallbackInMemory {
		return nil, nil, ErrRedisOffline
	}
	inMemLogger.Warn("Redis stores are offline, using in-memory stores")
	retention := cfg.TTL
	if retention <= 0 {
		retention = config.RedisJobStoreTTL
	}
	return NewInMemoryJobStore(retention), InitInMemoryResultStore(), nil
}
