package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/data/redisStore"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

const segmentsKeyPrefix = "segments:"

// RedisResultStore keeps the segments of a job as a Redis list, one JSON record per element.
type RedisResultStore struct {
	store  *redisStore.Store
	ttl    time.Duration
	logger *logger_i.Logger
}

// GetRedisResultStore returns nil when Redis is unreachable.
func GetRedisResultStore(ctx context.Context, cfg config.RedisConfig) *RedisResultStore {
	s := redisStore.GetRedisStore(ctx, cfg, cfg.ResultDB)
	if s == nil {
		return nil
	}
	return &RedisResultStore{
		store:  s,
		ttl:    cfg.TTL,
		logger: logger_i.NewLogger("ResultStore"),
	}
}

func (s *RedisResultStore) SaveSegments(ctx context.Context, jobId string, segments []layoutModel.SegmentBox) error {
	values := make([]interface{}, 0, len(segments))
	for _, segment := range segments {
		data, err := json.Marshal(segment)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	if err := s.store.ReplaceList(ctx, segmentsKeyPrefix+jobId, values, s.ttl); err != nil {
		return err
	}
	s.logger.WithTrace(ctx).Debug("Saved segments", "jobId", jobId, "count", len(segments))
	return nil
}

// GetSegments reports false when the job stored no segments or they expired.
func (s *RedisResultStore) GetSegments(ctx context.Context, jobId string) ([]layoutModel.SegmentBox, bool, error) {
	values, err := s.store.ListGetAll(ctx, segmentsKeyPrefix+jobId)
	if err != nil {
		return nil, false, err
	}
	if len(values) == 0 {
		return nil, false, nil
	}
	segments := make([]layoutModel.SegmentBox, len(values))
	for i, v := range values {
		if err := json.Unmarshal([]byte(v), &segments[i]); err != nil {
			return nil, false, fmt.Errorf("decoding segment %d of job %s: %w", i, jobId, err)
		}
	}
	return segments, true, nil
}

func (s *RedisResultStore) DeleteSegments(ctx context.Context, jobId string) {
	if err := s.store.Del(ctx, segmentsKeyPrefix+jobId); err != nil {
		s.logger.Error("Error deleting segments", "jobId", jobId, "error", err)
	}
}

func TestResultStore(store *redisStore.Store) *RedisResultStore {
	return &RedisResultStore{
		store:  store,
		ttl:    config.RedisResultStoreTTL,
		logger: logger_i.NewLogger("test redis"),
	}
}
