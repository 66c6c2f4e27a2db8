package store

import (
	"context"
	"slices"
	"sync"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

// InMemoryResultStore is used when Redis is offline. Entries live until deleted.
type InMemoryResultStore struct {
	lock    *sync.RWMutex
	results map[string][]layoutModel.SegmentBox
}

func InitInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{
		lock:    new(sync.RWMutex),
		results: make(map[string][]layoutModel.SegmentBox),
	}
}

func (store *InMemoryResultStore) SaveSegments(ctx context.Context, jobId string, segments []layoutModel.SegmentBox) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	if len(segments) == 0 {
		delete(store.results, jobId)
		return nil
	}
	store.results[jobId] = slices.Clone(segments)
	return nil
}

func (store *InMemoryResultStore) GetSegments(ctx context.Context, jobId string) ([]layoutModel.SegmentBox, bool, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	segments, found := store.results[jobId]
	return slices.Clone(segments), found, nil
}

func (store *InMemoryResultStore) DeleteSegments(ctx context.Context, jobId string) {
	store.lock.Lock()
	defer store.lock.Unlock()
	delete(store.results, jobId)
}
