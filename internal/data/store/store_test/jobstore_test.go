package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/data/redisStore"
	"github.com/akolanti/LayoutAPI/internal/data/store"
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	internalStore := redisStore.NewTestStore(client)
	jobStore := store.TestJobStore(internalStore)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:     jobID,
		Status: jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			FileName:         "report.pdf",
			ExtractionFormat: "markdown",
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := jobStore.SaveJob(ctx, testJob); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}
		if retrievedJob.JobPayload != testJob.JobPayload {
			t.Errorf("Data mismatch! Got %+v, want %+v", retrievedJob.JobPayload, testJob.JobPayload)
		}
		if ttl := mr.TTL("job:" + jobID); ttl != config.RedisJobStoreTTL {
			t.Errorf("TTL = %v, want %v", ttl, config.RedisJobStoreTTL)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		if _, found := jobStore.GetJob(ctx, "ghost-id"); found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		if mr.Exists("job:" + jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestRedisJobStore_Race(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobStore := store.TestJobStore(redisStore.NewTestStore(client))

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()
}

func TestRedisResultStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	results := store.TestResultStore(redisStore.NewTestStore(client))
	ctx := context.Background()

	segments := []layoutModel.SegmentBox{
		{Left: 1, Top: 2, Width: 3, Height: 4, PageNumber: 1, PageWidth: 612, PageHeight: 792, Text: "Title", Type: "Title", ReadingOrder: 0},
		{Left: 1, Top: 20, Width: 30, Height: 40, PageNumber: 1, PageWidth: 612, PageHeight: 792, Text: "body", Type: "Text", ReadingOrder: 1},
	}

	if err := results.SaveSegments(ctx, "job-1", segments); err != nil {
		t.Fatalf("SaveSegments failed: %v", err)
	}
	// saving again replaces rather than appends
	if err := results.SaveSegments(ctx, "job-1", segments); err != nil {
		t.Fatalf("SaveSegments failed: %v", err)
	}

	got, found, err := results.GetSegments(ctx, "job-1")
	if err != nil || !found {
		t.Fatalf("GetSegments = found %v, err %v", found, err)
	}
	if len(got) != 2 || got[0] != segments[0] || got[1] != segments[1] {
		t.Errorf("segments = %+v", got)
	}
	if mr.TTL("segments:job-1") != config.RedisResultStoreTTL {
		t.Errorf("TTL = %v", mr.TTL("segments:job-1"))
	}

	if _, found, _ := results.GetSegments(ctx, "unknown"); found {
		t.Error("expected no segments for an unknown job")
	}

	results.DeleteSegments(ctx, "job-1")
	if mr.Exists("segments:job-1") {
		t.Error("segments still stored after delete")
	}
}

func TestNewStores_FallsBackToMemory(t *testing.T) {
	cfg := config.RedisConfig{Addr: "127.0.0.1:1", JobDB: 14, ResultDB: 15, FallbackInMemory: true}
	jobs, results, err := store.NewStores(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewStores failed: %v", err)
	}
	if _, ok := jobs.(*store.InMemoryJobStore); !ok {
		t.Errorf("job store is %T", jobs)
	}
	if _, ok := results.(*store.InMemoryResultStore); !ok {
		t.Errorf("result store is %T", results)
	}

	cfg.FallbackInMemory = false
	if _, _, err := store.NewStores(context.Background(), cfg); err == nil {
		t.Error("expected an error without fallback")
	}
}

func TestInMemoryResultStore(t *testing.T) {
	results := store.InitInMemoryResultStore()
	ctx := context.Background()
	if err := results.SaveSegments(ctx, "a", []layoutModel.SegmentBox{{Type: "Text"}}); err != nil {
		t.Fatal(err)
	}
	got, found, _ := results.GetSegments(ctx, "a")
	if !found || len(got) != 1 || got[0].Type != "Text" {
		t.Errorf("got %+v found %v", got, found)
	}
	results.DeleteSegments(ctx, "a")
	if _, found, _ := results.GetSegments(ctx, "a"); found {
		t.Error("segments survived delete")
	}
}

func TestInMemoryJobStore(t *testing.T) {
	ctx := context.Background()
	job := jobModel.Job{Id: "job-1", Status: jobModel.JobStatusRunning, CurrentStep: jobModel.AnalyzeInit}

	t.Run("save get delete", func(t *testing.T) {
		jobs := store.InitInMemoryJobStore()
		if err := jobs.SaveJob(ctx, job); err != nil {
			t.Fatal(err)
		}
		got, found := jobs.GetJob(ctx, "job-1")
		if !found || got.Status != jobModel.JobStatusRunning || got.CurrentStep != jobModel.AnalyzeInit {
			t.Errorf("GetJob = %+v, %v", got, found)
		}
		jobs.DeleteJob(ctx, "job-1")
		if _, found := jobs.GetJob(ctx, "job-1"); found {
			t.Error("job still stored after delete")
		}
	})

	t.Run("records expire after retention", func(t *testing.T) {
		jobs := store.NewInMemoryJobStore(20 * time.Millisecond)
		if err := jobs.SaveJob(ctx, job); err != nil {
			t.Fatal(err)
		}
		if _, found := jobs.GetJob(ctx, "job-1"); !found {
			t.Fatal("fresh job not found")
		}
		time.Sleep(50 * time.Millisecond)
		if _, found := jobs.GetJob(ctx, "job-1"); found {
			t.Error("expired job still returned")
		}
	})

	t.Run("saving refreshes retention", func(t *testing.T) {
		jobs := store.NewInMemoryJobStore(60 * time.Millisecond)
		if err := jobs.SaveJob(ctx, job); err != nil {
			t.Fatal(err)
		}
		time.Sleep(40 * time.Millisecond)
		job.Status = jobModel.JobStatusComplete
		if err := jobs.SaveJob(ctx, job); err != nil {
			t.Fatal(err)
		}
		time.Sleep(40 * time.Millisecond)
		if got, found := jobs.GetJob(ctx, "job-1"); !found || got.Status != jobModel.JobStatusComplete {
			t.Errorf("GetJob = %+v, %v", got, found)
		}
	})
}
