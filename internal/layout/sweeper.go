package layout

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/metrics"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

// SweepStaleArtifacts removes regular files older than maxAge from dirs. It covers
// artifacts left behind by a process that died mid request.
func SweepStaleArtifacts(dirs []string, maxAge time.Duration, now time.Time) (int, error) {
	removed := 0
	var errs []error
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) < maxAge {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

// StartSweeper runs SweepStaleArtifacts over the image and word grid directories every
// cfg.Sweep.Interval until ctx is done. A zero interval disables it.
func StartSweeper(ctx context.Context, cfg *config.Config) {
	if cfg.Sweep.Interval <= 0 || cfg.Sweep.MaxAge <= 0 {
		return
	}
	log := logger_i.NewLogger("Sweeper")
	dirs := []string{cfg.Paths.Images, cfg.Paths.WordGrids}

	go func() {
		ticker := time.NewTicker(cfg.Sweep.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				removed, err := SweepStaleArtifacts(dirs, cfg.Sweep.MaxAge, now)
				if err != nil {
					metrics.IncrementCleanupFailures()
					log.Warn("sweep incomplete", "error", err)
				}
				if removed > 0 {
					log.Info("removed stale artifacts", "count", removed)
				}
			}
		}
	}()
}
