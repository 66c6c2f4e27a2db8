package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/akolanti/LayoutAPI/internal/job"
	"github.com/akolanti/LayoutAPI/internal/metrics"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service              *job.Service
	requestsPerNewWorker int64
}

func InitJobHandler(jobService *job.Service, workers config.WorkerConfig) {
	once.Do(func() {
		perWorker := workers.RequestsPerNewWorker
		if perWorker < 1 {
			perWorker = config.RequestsPerNewWorkerCount
		}
		handlerInstance = &JobHandler{service: jobService, requestsPerNewWorker: perWorker}

		logJH = logger_i.NewLogger("JobHandler")
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(newJob newJobData) {
	log := logJH.With("traceId", newJob.traceId, "jobId", newJob.id)
	log.Info("To create new job")
	handlerInstance.pushToJobChannel(newJob, log)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// GetJobSegments returns the stored segments of a finished job.
func GetJobSegments(ctx context.Context, id string) ([]layoutModel.SegmentBox, error) {
	if handlerInstance == nil || handlerInstance.service.ResultStore == nil {
		return nil, nil
	}
	segments, _, err := handlerInstance.service.ResultStore.GetSegments(ctx, id)
	return segments, err
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData, log *logger_i.Logger) {
	_job := jobModel.Job{
		Id:          newJob.id,
		TraceId:     newJob.traceId,
		JobType:     jobModel.JobTypeAnalyze,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.AnalyzeInit,
		JobPayload: jobModel.JobPayload{
			FileName:         newJob.form.FileName,
			UploadPath:       newJob.uploadPath,
			XmlFileName:      newJob.form.XmlFileName,
			ExtractionFormat: newJob.form.ExtractionFormat,
			KeepPDF:          newJob.form.KeepPDF,
		},
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, newJob.traceId)
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		log.Error("Failed to save queued job", "error", err)
	}

	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //blocking send so a full buffer slows producers down
	log.Info("Created new job")

	// analysis jobs are heavy, every few requests we ask the dispatcher for another worker
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%h.requestsPerNewWorker == 0 {
		metrics.StartDispatcherSignalCount()
		log.Debug("Requesting new worker", "requestCount", accurateCount)
		select {
		case h.service.DispatcherChannel <- true:
		default:
		}
	}
}
