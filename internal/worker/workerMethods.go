package worker

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/akolanti/LayoutAPI/internal/adapter"
	"github.com/akolanti/LayoutAPI/internal/adapter/utils"
	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/akolanti/LayoutAPI/internal/layout"
	"github.com/akolanti/LayoutAPI/internal/metrics"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

const uploadNotFoundMessage = "Uploaded file not found"

func executeJob(job jobModel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout)
	defer cancel()
	log := logger.With("traceId", job.TraceId, "jobId", job.Id)
	log.Debug("Processing job")

	job.Status = jobModel.JobStatusRunning
	saveJobState(ctx, job, log)

	segments, err := analyze(ctx, &job, log)
	job.EndTime = time.Now()
	if err != nil {
		code, message := adapter.TranslateFailure(err, uploadNotFoundMessage)
		log.Error("Job failed", "error", err, "code", code)
		job.Status = jobModel.JobStatusError
		job.CurrentStep = jobModel.Error
		job.Error = jobModel.JobError{Code: code, Message: message, Retry: false}
		saveJobState(ctx, job, log)
		return
	}

	if err := _jobService.ResultStore.SaveSegments(ctx, job.Id, segments); err != nil {
		log.Error("Failed to save segments", "error", err)
		job.Status = jobModel.JobStatusError
		job.CurrentStep = jobModel.Error
		job.Error = jobModel.JobError{Code: http.StatusInternalServerError, Message: "could not store results", Retry: true}
		saveJobState(ctx, job, log)
		return
	}

	job.JobPayload.SegmentCount = len(segments)
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	saveJobState(ctx, job, log)
	log.Info("Job complete", "segments", len(segments), "elapsed", time.Since(start))
}

// analyze reads the saved upload and runs it through the layout pipeline, recording each stage on the job.
func analyze(ctx context.Context, job *jobModel.Job, log *logger_i.Logger) ([]layoutModel.SegmentBox, error) {
	uploadPath := job.JobPayload.UploadPath
	defer func() {
		if err := utils.RemoveIfExists(uploadPath); err != nil {
			log.Warn("Could not remove upload", "path", uploadPath, "error", err)
			metrics.IncrementCleanupFailures()
		}
	}()

	content, err := os.ReadFile(uploadPath)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	return _layoutService.AnalyzePDF(ctx, layout.Request{
		Content:          content,
		FileName:         job.JobPayload.FileName,
		XmlFileName:      job.JobPayload.XmlFileName,
		ExtractionFormat: job.JobPayload.ExtractionFormat,
		KeepPDF:          job.JobPayload.KeepPDF,
		OnStage: func(stage layout.Stage) {
			job.CurrentStep = jobModel.InternalStatus(stage)
			saveJobState(ctx, *job, log)
		},
	})
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	count := atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker", "reason", reason, "workerCount", count)
	metrics.DecrementActiveWorkerCount()
}

func saveJobState(ctx context.Context, job jobModel.Job, log *logger_i.Logger) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to update job state", "error", err)
	}
}
