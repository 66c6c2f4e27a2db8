package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/akolanti/LayoutAPI/internal/adapter"
	"github.com/akolanti/LayoutAPI/internal/api"
	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
)

// multipart parts beyond this are spooled to disk
const maxFormMemory = 32 << 20

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// the status is already written
		logRH.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

func traceIdFrom(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.Warn("context error", "traceId", traceIdFrom(ctx), "error", ctx.Err())
		return false
	}
	return true
}

// parseAnalyzeForm reads the multipart upload. On a bad form it writes a 400 and reports false.
func parseAnalyzeForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (api.AnalyzeForm, []byte, bool) {
	var form api.AnalyzeForm
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "", "File too large")
			return form, nil, false
		}
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad multipart form")
		return form, nil, false
	}

	fileReader, fileMetadata, err := r.FormFile(formFile)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return form, nil, false
	}
	defer fileReader.Close()

	content, err := io.ReadAll(fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not read file")
		return form, nil, false
	}

	form.FileName = fileMetadata.Filename
	form.XmlFileName = r.FormValue(formXmlFileName)
	form.ExtractionFormat = r.FormValue(formExtractionFormat)
	if raw := r.FormValue(formKeepPDF); raw != "" {
		keep, err := strconv.ParseBool(raw)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "keep_pdf must be a boolean")
			return form, nil, false
		}
		form.KeepPDF = keep
	}
	return form, content, true
}
