package vgt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/akolanti/LayoutAPI/internal/wordgrid"
)

// Model pairs the in-process word grid embedder with the served detector.
type Model struct {
	Embedder *wordgrid.Embedder
	Detector Detector
	Weights  string
}

func BuildModel(conf *Configuration, loader wordgrid.WeightLoader, detector Detector) *Model {
	wg := conf.Model.WordGrid
	embedder := wordgrid.NewEmbedder(wordgrid.EmbedderConfig{
		VocabSize:         wg.VocabSize,
		HiddenSize:        wg.HiddenSize,
		EmbeddingDim:      wg.EmbeddingDim,
		Stride:            wg.Stride,
		UsePretrainWeight: wg.UsePretrainWeight,
		UseUNKText:        wg.UseUNKText,
		Seed:              conf.Seed,
	}, loader)
	return &Model{Embedder: embedder, Detector: detector}
}

// ResolveCheckpoint resumes from OUTPUT_DIR/last_checkpoint when present, otherwise uses MODEL.WEIGHTS.
func ResolveCheckpoint(conf *Configuration) (string, error) {
	path := conf.Model.Weights
	data, err := os.ReadFile(filepath.Join(conf.OutputDir, config.LastCheckpointFile))
	switch {
	case err == nil:
		if name := strings.TrimSpace(string(data)); name != "" {
			path = name
			if !filepath.IsAbs(path) {
				path = filepath.Join(conf.OutputDir, path)
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", err
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: checkpoint %s: %v", layoutModel.ErrModelUnavailable, path, err)
	}
	return path, nil
}

func (m *Model) LoadCheckpoint(ctx context.Context, conf *Configuration) error {
	path, err := ResolveCheckpoint(conf)
	if err != nil {
		return err
	}
	if err := m.Detector.Load(ctx, path); err != nil {
		return fmt.Errorf("%w: loading %s: %v", layoutModel.ErrModelUnavailable, path, err)
	}
	m.Weights = path
	return nil
}
