package vgt

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/metrics"
	"github.com/akolanti/LayoutAPI/internal/wordgrid"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

// Builder constructs the model and its configuration.
type Builder func(ctx context.Context) (*Model, *Configuration, error)

// ModelCache builds the model once per process. A failed build leaves the cache empty
// so the next Get tries again.
type ModelCache struct {
	build  Builder
	logger *logger_i.Logger

	mu    sync.RWMutex
	model *Model
	conf  *Configuration
}

func NewModelCache(build Builder) *ModelCache {
	return &ModelCache{build: build, logger: logger_i.NewLogger("ModelCache")}
}

func (c *ModelCache) Get(ctx context.Context) (*Model, *Configuration, error) {
	c.mu.RLock()
	model, conf := c.model, c.conf
	c.mu.RUnlock()
	if model != nil {
		return model, conf, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != nil {
		return c.model, c.conf, nil
	}

	c.logger.Info("building layout model")
	model, conf, err := c.build(ctx)
	if err != nil {
		metrics.CaptureModelBuild("error")
		return nil, nil, err
	}
	metrics.CaptureModelBuild("ok")
	c.model, c.conf = model, conf
	c.logger.Info("layout model ready", "weights", model.Weights)
	return model, conf, nil
}

func (c *ModelCache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

// DefaultBuilder resolves the configuration, constructs the model and loads its checkpoint.
func DefaultBuilder(cfg *config.Config) Builder {
	return func(ctx context.Context) (*Model, *Configuration, error) {
		conf, err := GetModelConfiguration(cfg)
		if err != nil {
			return nil, nil, err
		}
		wg := conf.Model.WordGrid
		reconciler := wordgrid.NewReconciler(filepath.Dir(wg.ModelPath), filepath.Base(wg.ModelPath), wg.CheckpointFile, conf.Seed)
		detector := NewHTTPDetector(conf.Serving.URL, conf.Serving.Timeout, conf.Serving.MaxRetries)

		model := BuildModel(conf, reconciler, detector)
		if err := model.LoadCheckpoint(ctx, conf); err != nil {
			return nil, nil, err
		}
		return model, conf, nil
	}
}
