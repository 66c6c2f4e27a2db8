package api

import (
	"time"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"422"`
	Message string `json:"message" example:"ModelUnavailable: model unavailable"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type Result struct {
	Status      string                   `json:"status" example:"COMPLETE"`
	CurrentStep string                   `json:"current_step,omitempty" example:"Inference"`
	FileName    string                   `json:"file_name,omitempty" example:"paper.pdf"`
	Segments    []layoutModel.SegmentBox `json:"segments"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type HealthResponse struct {
	Status       string `json:"status" example:"ok"`
	ModelsLoaded bool   `json:"models_loaded"`
	ModelReady   bool   `json:"model_ready"`
}

// requests---------------------

// AnalyzeForm is the multipart form accepted by /analyze and /analyze/async.
type AnalyzeForm struct {
	FileName         string
	XmlFileName      string
	ExtractionFormat string
	KeepPDF          bool
}
