package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/akolanti/LayoutAPI/internal/api"
	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/data/store"
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/akolanti/LayoutAPI/internal/job"
	"github.com/go-chi/chi/v5"
)

func TestAnalyzeAsyncAndStatus(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Uploads = t.TempDir()
	InitAnalyzeHandler(AnalyzeDependencies{Config: cfg})

	jobStore := store.InitInMemoryJobStore()
	resultStore := store.InitInMemoryResultStore()
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 4),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          jobStore,
		ResultStore:       resultStore,
	})
	InitJobHandler(service, config.WorkerConfig{RequestsPerNewWorker: 1})

	router := chi.NewRouter()
	router.Post("/analyze/async", AnalyzeAsyncHandler)
	router.Get("/status/{id}", GetStatusHandler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "/analyze/async", map[string]string{formExtractionFormat: "html"}, []byte("%PDF-1.4")))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var created api.InitJobResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Id == "" || created.StatusURL != "status/"+created.Id {
		t.Fatalf("created = %+v", created)
	}

	queued := <-service.JobChannel
	if queued.Id != created.Id || queued.JobPayload.ExtractionFormat != "html" || queued.JobPayload.FileName != "paper.pdf" {
		t.Errorf("queued job = %+v", queued)
	}
	content, err := os.ReadFile(queued.JobPayload.UploadPath)
	if err != nil || string(content) != "%PDF-1.4" {
		t.Errorf("upload = %q, %v", content, err)
	}
	select {
	case <-service.DispatcherChannel:
	default:
		t.Error("dispatcher was not signalled")
	}

	getStatus := func() api.JobResponse {
		t.Helper()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/"+created.Id, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status code = %d", rec.Code)
		}
		var body api.JobResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		return body
	}

	if body := getStatus(); body.Result.Status != string(jobModel.JobStatusQueued) || body.Result.Segments != nil {
		t.Errorf("queued status = %+v", body.Result)
	}

	queued.Status = jobModel.JobStatusComplete
	queued.CurrentStep = jobModel.Complete
	if err := jobStore.SaveJob(context.Background(), queued); err != nil {
		t.Fatal(err)
	}
	if err := resultStore.SaveSegments(context.Background(), queued.Id, []layoutModel.SegmentBox{{Type: "Table", Text: "<table></table>"}}); err != nil {
		t.Fatal(err)
	}

	body := getStatus()
	if body.Result.Status != string(jobModel.JobStatusComplete) || len(body.Result.Segments) != 1 || body.Result.Segments[0].Type != "Table" {
		t.Errorf("complete status = %+v", body.Result)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown job status = %d, want 404", rec.Code)
	}
}
