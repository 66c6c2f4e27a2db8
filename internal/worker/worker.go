package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/job"
	"github.com/akolanti/LayoutAPI/internal/layout"
	"github.com/akolanti/LayoutAPI/internal/metrics"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

var (
	_jobService        *job.Service
	_layoutService     layout.Service
	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	dispatcherChannel  chan bool
	currentWorkerCount int64
	logger             = logger_i.NewLogger("WorkerPool")
	minWorkerCount     = config.MinWorkerCount
	maxWorkerCount     = config.MaxWorkerCount
	idleWorkerTimeout  = config.IdleWorkerTimeout
	jobTimeout         = config.JobTimeout
)

func InitServices(jobService *job.Service, layoutService layout.Service, cfg config.WorkerConfig) {
	_jobService = jobService
	_layoutService = layoutService
	dispatcherChannel = jobService.DispatcherChannel

	if cfg.Min > 0 {
		atomic.StoreInt64(&minWorkerCount, cfg.Min)
	}
	if cfg.Max > 0 {
		atomic.StoreInt64(&maxWorkerCount, cfg.Max)
	}
	if cfg.IdleTimeout > 0 {
		idleWorkerTimeout = cfg.IdleTimeout
	}
	if cfg.JobTimeout > 0 {
		jobTimeout = cfg.JobTimeout
	}
}

func InitWorkerPool(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	stopWorkerChannel = stopWorkerChan
	workerWaitGroup = waitGroup
	logger = logger_i.NewLogger("WorkerPool")
	logger.Info("Initializing worker pool", "min", minWorkerCount, "max", maxWorkerCount)
	go dispatcher()
}

func dispatcher() {
	createWorker()
	logger.Info("Dispatcher started")
	for range dispatcherChannel {
		if atomic.LoadInt64(&currentWorkerCount) < atomic.LoadInt64(&maxWorkerCount) {
			logger.Info("Creating new worker", "workerCount", atomic.LoadInt64(&currentWorkerCount))
			createWorker()
		}
	}
}

func createWorker() {
	workerWaitGroup.Add(1)
	atomic.AddInt64(&currentWorkerCount, 1)
	go worker()
	metrics.IncrementActiveWorkerCount()
	logger.Debug("Created new worker")
}

func worker() {
	for {
		select {
		case currentJob := <-_jobService.JobChannel:
			metrics.DecrementJobsInQueue()
			executeJob(currentJob)

		case <-stopWorkerChannel:
			removeWorker("Stop worker signal received")
			return

		case <-time.After(idleWorkerTimeout):
			// keep at least minWorkerCount workers around
			if atomic.LoadInt64(&currentWorkerCount) > atomic.LoadInt64(&minWorkerCount) {
				removeWorker("Idle worker timeout")
				return
			}
		}
	}
}
