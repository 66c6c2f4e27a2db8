package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/LayoutAPI/internal/handlers"
	"github.com/akolanti/LayoutAPI/internal/metrics"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
	id           string
}

var (
	AnalyzeHandler      = Wrap(handlers.AnalyzeHandler)
	AnalyzeAsyncHandler = Wrap(handlers.AnalyzeAsyncHandler)
	GetStatusHandler    = Wrap(handlers.GetStatusHandler)
	GetXmlHandler       = Wrap(handlers.GetXmlHandler)
	HealthHandler       = WrapPublic(handlers.HealthHandler)
)

// Wrap runs CORS, trace injection, auth and rate limiting before next, and records metrics.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, true)
}

// WrapPublic is Wrap without authentication.
func WrapPublic(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, false)
}

func wrap(next http.HandlerFunc, withAuth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		defer func() {
			metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
		}()

		re := processRequest(requestResponseStruct{req: r, writer: rec}, withAuth)
		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		if r.Method == http.MethodOptions {
			rec.WriteHeader(http.StatusNoContent)
			return
		}
		next(rec, re.req)
	}
}

func processRequest(re requestResponseStruct, withAuth bool) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received", "path", re.req.URL.Path)

	re = applyCORS(re)
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	if withAuth && re.req.Method != http.MethodOptions {
		re = authenticate(re)
		if re.badRequest.isBadRequest {
			return re //stop if auth fails
		}
	}
	return rateLimiter(re)
}
