package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	AnalyzeInit InternalStatus = "Init"
	Error       InternalStatus = "Error"
	Complete    InternalStatus = "Complete"

	JobTypeAnalyze JobType = "Analyze"
)

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// JobPayload describes one queued analysis. UploadPath is the saved upload the worker reads.
type JobPayload struct {
	FileName         string `json:"file_name"`
	UploadPath       string `json:"upload_path"`
	XmlFileName      string `json:"xml_file_name,omitempty"`
	ExtractionFormat string `json:"extraction_format,omitempty"`
	KeepPDF          bool   `json:"keep_pdf,omitempty"`
	SegmentCount     int    `json:"segment_count"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// ResultStore keeps the segments produced by finished jobs.
type ResultStore interface {
	SaveSegments(ctx context.Context, jobId string, segments []layoutModel.SegmentBox) error
	GetSegments(ctx context.Context, jobId string) ([]layoutModel.SegmentBox, bool, error)
	DeleteSegments(ctx context.Context, jobId string)
}
