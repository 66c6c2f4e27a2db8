package handlers

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/akolanti/LayoutAPI/internal/adapter"
	"github.com/akolanti/LayoutAPI/internal/adapter/utils"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

const (
	noXmlFileMessage  = "No xml file"
	noSuchFileMessage = "No such file"
)

type errorHandlerFunc func(w http.ResponseWriter, r *http.Request) error

// CatchErrors turns errors and panics of fn into client responses. Details stay in the server log.
func CatchErrors(endpoint string, notFoundMessage string, fn errorHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger_i.NewLogger("FailureTranslator").WithTrace(r.Context()).With("endpoint", endpoint)
		log.Info("Calling endpoint")

		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Handler panicked", "panic", rec, "file", uploadedFileName(r), "key", lookupKey(r), "stack", string(debug.Stack()))
				code, message := adapter.TranslateFailure(fmt.Errorf("panic: %v", rec), notFoundMessage)
				WriteErrorResponse(w, code, "", message)
			}
		}()

		err := fn(w, r)
		if err == nil {
			return
		}
		code, message := adapter.TranslateFailure(err, notFoundMessage)
		log.Error("Request failed", "status", code, "error", err, "file", uploadedFileName(r), "key", lookupKey(r))
		WriteErrorResponse(w, code, "", message)
	}
}

func uploadedFileName(r *http.Request) string {
	if r.MultipartForm == nil {
		return ""
	}
	if files := r.MultipartForm.File[formFile]; len(files) > 0 {
		return files[0].Filename
	}
	return ""
}

func lookupKey(r *http.Request) string {
	if key := utils.GetChiURLParam(r, xmlFileNameParam); key != "" {
		return key
	}
	return utils.GetChiURLParam(r, "id")
}
