package job

import (
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
)

// Service is the queue shared by the async analyze handler and the worker pool. Handlers push
// jobs on JobChannel and signal DispatcherChannel; workers record progress in JobStore and the
// finished segments in ResultStore.
type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	ResultStore       jobModel.ResultStore
}

// ServiceConfig wires the analysis job queue: the buffered job and dispatcher channels and the
// stores that job status and segments are written to.
type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	ResultStore       jobModel.ResultStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		ResultStore:       cfg.ResultStore,
	}
}
