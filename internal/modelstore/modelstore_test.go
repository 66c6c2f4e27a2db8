package modelstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/akolanti/LayoutAPI/internal/config"
)

func testConfig(t *testing.T, serverURL string) *config.Config {
	cfg := config.Default()
	cfg.Paths.Models = t.TempDir()
	cfg.Model.VGTDownloadURL = serverURL + "/vgt"
	cfg.Model.EmbeddingDownloadURL = serverURL + "/embedding/"
	cfg.Model.MaxRetries = 2
	return cfg
}

func TestDownloadModels(t *testing.T) {
	var hits, failures int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		// first weights request fails with a retryable status
		if r.URL.Path == "/vgt/doclaynet_VGT_model.pth" && atomic.AddInt32(&failures, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("payload:" + r.URL.Path))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	if AreModelsDownloaded(cfg) {
		t.Fatal("nothing downloaded yet")
	}

	if err := DownloadModels(context.Background(), cfg); err != nil {
		t.Fatalf("DownloadModels failed: %v", err)
	}
	if !AreModelsDownloaded(cfg) {
		t.Fatal("models should be reported as downloaded")
	}

	data, err := os.ReadFile(VGTModelPath(cfg))
	if err != nil || string(data) != "payload:/vgt/doclaynet_VGT_model.pth" {
		t.Errorf("weights = %q, %v", data, err)
	}
	for _, name := range []string{"model.safetensors", "vocab.txt", "config.json"} {
		if _, err := os.Stat(filepath.Join(EmbeddingDir(cfg), name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	if matches, _ := filepath.Glob(filepath.Join(cfg.Paths.Models, "*.part")); len(matches) != 0 {
		t.Errorf("partial files left: %v", matches)
	}

	t.Run("present files are skipped", func(t *testing.T) {
		before := atomic.LoadInt32(&hits)
		if err := DownloadModels(context.Background(), cfg); err != nil {
			t.Fatalf("second DownloadModels failed: %v", err)
		}
		if atomic.LoadInt32(&hits) != before {
			t.Error("present files were downloaded again")
		}
	})
}

func TestDownloadModels_NotFoundIsNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	if err := DownloadModels(context.Background(), cfg); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}
	if _, err := os.Stat(VGTModelPath(cfg)); err == nil {
		t.Error("no weights file should be created on failure")
	}
}

func TestPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Models = "/models"
	if got := VGTModelPath(cfg); got != "/models/doclaynet_VGT_model.pth" {
		t.Errorf("VGTModelPath = %s", got)
	}
	if got := EmbeddingDir(cfg); got != "/models/layoutlm-base-uncased" {
		t.Errorf("EmbeddingDir = %s", got)
	}
}

func TestAreModelsDownloaded(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, cfg *config.Config)
		want  bool
	}{
		{name: "empty models dir", setup: func(t *testing.T, cfg *config.Config) {}},
		{
			name: "weights path is a directory",
			setup: func(t *testing.T, cfg *config.Config) {
				mkdir(t, VGTModelPath(cfg))
				touch(t, VocabPath(cfg))
			},
		},
		{
			name: "embedding checkpoint missing",
			setup: func(t *testing.T, cfg *config.Config) {
				touch(t, VGTModelPath(cfg))
				mkdir(t, EmbeddingDir(cfg))
			},
		},
		{
			name: "all present",
			setup: func(t *testing.T, cfg *config.Config) {
				touch(t, VGTModelPath(cfg))
				touch(t, VocabPath(cfg))
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "http://unused")
			tt.setup(t, cfg)
			if got := AreModelsDownloaded(cfg); got != tt.want {
				t.Errorf("AreModelsDownloaded = %v, want %v", got, tt.want)
			}
		})
	}
}

func mkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0750); err != nil {
		t.Fatal(err)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	mkdir(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte("x"), 0640); err != nil {
		t.Fatal(err)
	}
}
