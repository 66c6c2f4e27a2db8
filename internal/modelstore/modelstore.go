package modelstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/LayoutAPI/internal/adapter/utils"
	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/customHttpClient"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
	"github.com/avast/retry-go/v4"
)

var logger = logger_i.NewLogger("ModelStore")

// embedding checkpoint files fetched next to the weights
const embeddingConfigFile = "config.json"

// VGTModelPath is <models>/<name>_VGT_model.pth.
func VGTModelPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.Models, cfg.Model.Name+config.VGTModelSuffix)
}

// EmbeddingDir is the directory of the word embedding checkpoint.
func EmbeddingDir(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.Models, cfg.Embedding.CheckpointID)
}

func VocabPath(cfg *config.Config) string {
	return filepath.Join(EmbeddingDir(cfg), cfg.Embedding.VocabFile)
}

// AreModelsDownloaded reports whether the layout weights exist and the embedding dir is non-empty.
func AreModelsDownloaded(cfg *config.Config) bool {
	if !utils.FileExists(VGTModelPath(cfg)) {
		return false
	}
	entries, err := os.ReadDir(EmbeddingDir(cfg))
	return err == nil && len(entries) > 0
}

type download struct {
	url  string
	dest string
}

func plan(cfg *config.Config) []download {
	vgtFile := cfg.Model.Name + config.VGTModelSuffix
	files := []download{{
		url:  joinURL(cfg.Model.VGTDownloadURL, vgtFile),
		dest: VGTModelPath(cfg),
	}}
	for _, name := range []string{cfg.Embedding.CheckpointFile, cfg.Embedding.VocabFile, embeddingConfigFile} {
		files = append(files, download{
			url:  joinURL(cfg.Model.EmbeddingDownloadURL, name),
			dest: filepath.Join(EmbeddingDir(cfg), name),
		})
	}
	return files
}

func joinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + name
}

// DownloadModels fetches the layout weights and the embedding checkpoint. Files already on disk
// are skipped and partial downloads never replace a complete file.
func DownloadModels(ctx context.Context, cfg *config.Config) error {
	client := customHttpClient.GetClient(0)
	for _, d := range plan(cfg) {
		if utils.FileExists(d.dest) {
			logger.Debug("model file present", "path", d.dest)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(d.dest), 0750); err != nil {
			return err
		}

		start := time.Now()
		err := retry.Do(
			func() error {
				return fetch(ctx, client, d.url, d.dest)
			},
			retry.Context(ctx),
			retry.Attempts(cfg.Model.MaxRetries+1),
			retry.Delay(time.Second),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				logger.Warn("model download failed, retrying", "url", d.url, "attempt", n+1, "error", err)
			}),
		)
		if err != nil {
			return fmt.Errorf("downloading %s: %w", d.url, err)
		}
		logger.Info("model file downloaded", "path", d.dest, "took", time.Since(start))
	}
	return nil
}

func fetch(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Unrecoverable(err)
		}
		return err
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(part)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return err
	}
	return os.Rename(part, dest)
}
