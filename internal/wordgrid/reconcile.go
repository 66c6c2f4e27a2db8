package wordgrid

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/LayoutAPI/internal/checkpoint"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const padScale = 0.02

// Reconciler loads word embeddings from a checkpoint under the models path.
type Reconciler struct {
	ModelsPath     string
	CheckpointID   string
	CheckpointFile string
	src            rand.Source
	logger         *logger_i.Logger
}

func NewReconciler(modelsPath, checkpointID, checkpointFile string, seed uint64) *Reconciler {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Reconciler{
		ModelsPath:     modelsPath,
		CheckpointID:   checkpointID,
		CheckpointFile: checkpointFile,
		src:            rand.NewPCG(seed, seed>>1|1),
		logger:         logger_i.NewLogger("WeightReconciler"),
	}
}

func (r *Reconciler) CheckpointPath() string {
	return filepath.Join(r.ModelsPath, r.CheckpointID, r.CheckpointFile)
}

// EmbeddingKey picks the tensor name from the checkpoint identifier. Order matters:
// an identifier containing both "bert" and "layoutlm" uses the bert naming.
func EmbeddingKey(checkpointID string) (string, error) {
	switch {
	case strings.Contains(checkpointID, "bert"):
		return "bert.embeddings.word_embeddings.weight", nil
	case strings.Contains(checkpointID, "bros"):
		return "embeddings.word_embeddings.weight", nil
	case strings.Contains(checkpointID, "layoutlm"):
		return "layoutlm.embeddings.word_embeddings.weight", nil
	}
	return "", fmt.Errorf("%w: %q", layoutModel.ErrUnsupportedCheckpointFormat, checkpointID)
}

func (r *Reconciler) Load(vocabSize, hiddenSize int) (*mat.Dense, error) {
	key, err := EmbeddingKey(r.CheckpointID)
	if err != nil {
		return nil, err
	}
	path := r.CheckpointPath()
	r.logger.Info("loading word embeddings", "path", path, "key", key)

	f, err := checkpoint.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", layoutModel.ErrModelUnavailable, err)
	}
	weights, err := f.Tensor(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", layoutModel.ErrUnsupportedCheckpointFormat, err)
	}
	if weights.Cols() != hiddenSize {
		return nil, fmt.Errorf("%w: hidden size %d, want %d", layoutModel.ErrUnsupportedCheckpointFormat, weights.Cols(), hiddenSize)
	}

	if weights.Rows() != vocabSize {
		r.logger.Warn("vocab size mismatch", "loaded", weights.Rows(), "expected", vocabSize)
	}
	return Reconcile(weights, vocabSize, r.src), nil
}

// Reconcile returns a new vocabSize x hidden table. Missing rows are padded with
// N(0,1)*0.02 values, extra rows are dropped.
func Reconcile(weights *checkpoint.Tensor, vocabSize int, src rand.Source) *mat.Dense {
	hidden := weights.Cols()
	table := mat.NewDense(vocabSize, hidden, nil)

	keep := min(weights.Rows(), vocabSize)
	copy(table.RawMatrix().Data[:keep*hidden], weights.Data[:keep*hidden])

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	for i := keep; i < vocabSize; i++ {
		row := table.RawRowView(i)
		for j := range row {
			row[j] = normal.Rand() * padScale
		}
	}
	return table
}
