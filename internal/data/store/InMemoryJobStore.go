package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem JobStore")

type storedJob struct {
	job     jobModel.Job
	savedAt time.Time
}

// InMemoryJobStore keeps analysis job records when Redis is offline. Like the Redis store,
// a record expires retention after its last save; expired records are dropped on lookup.
type InMemoryJobStore struct {
	jobMutex  *sync.RWMutex
	jobs      map[string]storedJob
	retention time.Duration
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return NewInMemoryJobStore(config.RedisJobStoreTTL)
}

// NewInMemoryJobStore keeps records for retention. Zero or less keeps them until deleted.
func NewInMemoryJobStore(retention time.Duration) *InMemoryJobStore {
	return &InMemoryJobStore{
		jobMutex:  new(sync.RWMutex),
		jobs:      make(map[string]storedJob),
		retention: retention,
	}
}

func (store *InMemoryJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	store.jobs[job.Id] = storedJob{job: job, savedAt: time.Now()}
	inMemLogger.WithTrace(ctx).Debug("Saved job to store", "jobId", job.Id, "status", job.Status, "step", job.CurrentStep)
	return nil
}

func (store *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	store.jobMutex.RLock()
	entry, found := store.jobs[jobId]
	store.jobMutex.RUnlock()

	if found && store.expired(entry) {
		store.jobMutex.Lock()
		// a concurrent save may have refreshed the record
		if current, ok := store.jobs[jobId]; ok && store.expired(current) {
			delete(store.jobs, jobId)
		}
		store.jobMutex.Unlock()
		inMemLogger.WithTrace(ctx).Debug("Job record expired", "jobId", jobId)
		return jobModel.Job{}, false
	}
	inMemLogger.WithTrace(ctx).Debug("Job lookup", "jobId", jobId, "found", found)
	return entry.job, found
}

func (store *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	delete(store.jobs, jobID)
}

func (store *InMemoryJobStore) expired(entry storedJob) bool {
	return store.retention > 0 && time.Since(entry.savedAt) > store.retention
}
