package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of analysis jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var inferenceLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "inference_lock_wait_seconds",
	Help:    "Time a request waited for the inference critical section.",
	Buckets: []float64{.01, .1, .5, 1, 5, 15, 60, 180},
})

var modelCacheBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "model_cache_builds_total",
	Help: "Model builds labelled by result",
}, []string{"result"})

var segmentsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "segments_detected_total",
	Help: "Segments returned to clients labelled by type",
}, []string{"type"})

var artifactCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "artifact_cleanup_failures_total",
	Help: "Temporary images, word grids or PDFs that could not be removed",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CaptureInferenceLockWait(waited time.Duration) {
	inferenceLockWait.Observe(waited.Seconds())
}

// CaptureModelBuild records a model cache build, result is "ok" or "error".
func CaptureModelBuild(result string) {
	modelCacheBuilds.WithLabelValues(result).Inc()
}

func CaptureSegment(segmentType string) {
	segmentsDetected.WithLabelValues(segmentType).Inc()
}

func IncrementCleanupFailures() {
	artifactCleanupFailures.Inc()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent analysing one PDF.",
	Buckets: []float64{.5, 1, 2, 5, 10, 30, 60, 180},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of pipeline stages and external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
