package vgt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/akolanti/LayoutAPI/internal/modelstore"
	"gopkg.in/yaml.v3"
)

// Configuration is the resolved model configuration. The YAML layout follows the
// detectron style keys used by the layout model's own config files.
type Configuration struct {
	Model     ModelSection    `yaml:"MODEL"`
	Input     InputSection    `yaml:"INPUT"`
	OutputDir string          `yaml:"OUTPUT_DIR"`
	Datasets  DatasetsSection `yaml:"DATASETS"`
	Serving   ServingSection  `yaml:"SERVING"`
	Seed      uint64          `yaml:"SEED"`
}

type ModelSection struct {
	Weights  string          `yaml:"WEIGHTS"`
	WordGrid WordGridSection `yaml:"WORDGRID"`
	RoiHeads RoiHeadsSection `yaml:"ROI_HEADS"`
}

type WordGridSection struct {
	VocabSize         int    `yaml:"VOCAB_SIZE"`
	HiddenSize        int    `yaml:"HIDDEN_SIZE"`
	EmbeddingDim      int    `yaml:"EMBEDDING_DIM"`
	ModelPath         string `yaml:"MODEL_PATH"`
	CheckpointFile    string `yaml:"CHECKPOINT_FILE"`
	UsePretrainWeight bool   `yaml:"USE_PRETRAIN_WEIGHT"`
	UseUNKText        bool   `yaml:"USE_UNK_TEXT"`
	Stride            int    `yaml:"STRIDE"`
}

type RoiHeadsSection struct {
	ScoreThreshTest float64 `yaml:"SCORE_THRESH_TEST"`
	NumClasses      int     `yaml:"NUM_CLASSES"`
}

type InputSection struct {
	MinSizeTest int `yaml:"MIN_SIZE_TEST"`
	MaxSizeTest int `yaml:"MAX_SIZE_TEST"`
}

type DatasetsSection struct {
	Test []string `yaml:"TEST"`
}

type ServingSection struct {
	URL        string        `yaml:"URL"`
	Timeout    time.Duration `yaml:"TIMEOUT"`
	MaxRetries uint          `yaml:"MAX_RETRIES"`
}

// GetModelConfiguration seeds the configuration from cfg and overlays model.config_file when set.
// Unknown keys in the overlay are rejected.
func GetModelConfiguration(cfg *config.Config) (*Configuration, error) {
	conf := &Configuration{
		Model: ModelSection{
			Weights: modelstore.VGTModelPath(cfg),
			WordGrid: WordGridSection{
				VocabSize:         cfg.Embedding.VocabSize,
				HiddenSize:        cfg.Embedding.HiddenSize,
				EmbeddingDim:      cfg.Embedding.EmbeddingDim,
				ModelPath:         modelstore.EmbeddingDir(cfg),
				CheckpointFile:    cfg.Embedding.CheckpointFile,
				UsePretrainWeight: cfg.Embedding.UsePretrainWeight,
				UseUNKText:        cfg.Embedding.UseUNKText,
				Stride:            cfg.Embedding.Stride,
			},
			RoiHeads: RoiHeadsSection{
				ScoreThreshTest: cfg.Model.ScoreThreshold,
				NumClasses:      len(layoutModel.Labels()),
			},
		},
		Input:     InputSection{MinSizeTest: cfg.Model.MinSizeTest, MaxSizeTest: cfg.Model.MaxSizeTest},
		OutputDir: cfg.Model.OutputDir,
		Datasets:  DatasetsSection{Test: []string{config.PredictDatasetName}},
		Serving: ServingSection{
			URL:        cfg.Model.ServingURL,
			Timeout:    cfg.Model.RequestTimeout,
			MaxRetries: cfg.Model.MaxRetries,
		},
		Seed: cfg.Embedding.Seed,
	}

	if cfg.Model.ConfigFile != "" {
		if err := conf.merge(cfg.Model.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Configuration) merge(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: model config: %v", layoutModel.ErrModelUnavailable, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decoding model config %s: %w", path, err)
	}
	return nil
}

func (c *Configuration) Validate() error {
	wg := c.Model.WordGrid
	switch {
	case c.Model.Weights == "":
		return errors.New("MODEL.WEIGHTS is required")
	case wg.Stride < 1:
		return fmt.Errorf("MODEL.WORDGRID.STRIDE must be >= 1, got %d", wg.Stride)
	case wg.VocabSize < 1 || wg.HiddenSize < 1 || wg.EmbeddingDim < 1:
		return errors.New("MODEL.WORDGRID sizes must be positive")
	case c.Model.RoiHeads.NumClasses != len(layoutModel.Labels()):
		return fmt.Errorf("MODEL.ROI_HEADS.NUM_CLASSES is %d, the label set has %d", c.Model.RoiHeads.NumClasses, len(layoutModel.Labels()))
	case c.Input.MinSizeTest < 1 || c.Input.MaxSizeTest < c.Input.MinSizeTest:
		return fmt.Errorf("INPUT sizes invalid: min %d max %d", c.Input.MinSizeTest, c.Input.MaxSizeTest)
	case c.OutputDir == "":
		return errors.New("OUTPUT_DIR is required")
	case c.Serving.URL == "":
		return errors.New("SERVING.URL is required")
	}
	return nil
}

// PredictionsPath is where Predict writes the COCO results.
func (c *Configuration) PredictionsPath() string {
	return filepath.Join(c.OutputDir, "inference", config.PredictionsFile)
}
