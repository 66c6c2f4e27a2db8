package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/LayoutAPI/internal/api"
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job, segments []layoutModel.SegmentBox) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:      string(job.Status),
		CurrentStep: string(job.CurrentStep),
		FileName:    job.JobPayload.FileName,
	}
	if job.Status == jobModel.JobStatusComplete {
		result.Segments = segments
		if result.Segments == nil {
			result.Segments = []layoutModel.SegmentBox{}
		}
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
