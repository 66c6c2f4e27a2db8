package wordgrid

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/akolanti/LayoutAPI/pkg/logger_i"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

type EmbedderConfig struct {
	VocabSize         int
	HiddenSize        int
	EmbeddingDim      int
	Stride            int
	UsePretrainWeight bool
	UseUNKText        bool
	Seed              uint64
}

// WeightLoader produces the pretrained lookup table, vocabSize x hiddenSize.
type WeightLoader interface {
	Load(vocabSize, hiddenSize int) (*mat.Dense, error)
}

// ImageShape is the [B, C, H, W] shape of the page image batch.
type ImageShape struct {
	Batch    int
	Channels int
	Height   int
	Width    int
}

// Tensor is a dense [B, D, H, W] float32 tensor.
type Tensor struct {
	Shape [4]int
	Data  []float32
}

func (t *Tensor) At(b, d, y, x int) float32 {
	_, D, H, W := t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3]
	return t.Data[((b*D+d)*H+y)*W+x]
}

// Embedder maps word grids to dense feature maps through an id lookup and a bias-free projection.
type Embedder struct {
	cfg    EmbedderConfig
	loader WeightLoader
	logger *logger_i.Logger

	mu            sync.RWMutex
	table         *mat.Dense // vocab x hidden
	proj          *mat.Dense // hidden x dim, the transposed linear weight
	weightsLoaded bool
}

func NewEmbedder(cfg EmbedderConfig, loader WeightLoader) *Embedder {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)

	table := mat.NewDense(cfg.VocabSize, cfg.HiddenSize, nil)
	data := table.RawMatrix().Data
	for i := range data {
		data[i] = rng.NormFloat64()
	}

	// xavier uniform for the projection
	bound := math.Sqrt(6.0 / float64(cfg.HiddenSize+cfg.EmbeddingDim))
	xavier := distuv.Uniform{Min: -bound, Max: bound, Src: src}
	proj := mat.NewDense(cfg.HiddenSize, cfg.EmbeddingDim, nil)
	pdata := proj.RawMatrix().Data
	for i := range pdata {
		pdata[i] = xavier.Rand()
	}

	return &Embedder{
		cfg:    cfg,
		loader: loader,
		logger: logger_i.NewLogger("WordGridEmbedder"),
		table:  table,
		proj:   proj,
	}
}

func (e *Embedder) WeightsLoaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.weightsLoaded
}

// Table returns the current lookup table. It must not be modified.
func (e *Embedder) Table() *mat.Dense {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table
}

// ensureWeights swaps in the pretrained table once. A failed load leaves the flag unset.
func (e *Embedder) ensureWeights() error {
	if !e.cfg.UsePretrainWeight || e.loader == nil {
		return nil
	}
	e.mu.RLock()
	loaded := e.weightsLoaded
	e.mu.RUnlock()
	if loaded {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.weightsLoaded {
		return nil
	}
	table, err := e.loader.Load(e.cfg.VocabSize, e.cfg.HiddenSize)
	if err != nil {
		return fmt.Errorf("loading word embeddings: %w", err)
	}
	if r, c := table.Dims(); r != e.cfg.VocabSize || c != e.cfg.HiddenSize {
		return fmt.Errorf("loaded table is %dx%d, want %dx%d", r, c, e.cfg.VocabSize, e.cfg.HiddenSize)
	}
	e.table = table
	e.weightsLoaded = true
	e.logger.Info("word embeddings loaded", "vocab", e.cfg.VocabSize, "hidden", e.cfg.HiddenSize)
	return nil
}

// Forward builds the word grid for the batch and returns [B, D, H/stride, W/stride] embeddings.
func (e *Embedder) Forward(shape ImageShape, inputs []GridInput) (*Tensor, error) {
	if len(inputs) != shape.Batch {
		return nil, fmt.Errorf("batch of %d images has %d grid inputs", shape.Batch, len(inputs))
	}
	if err := e.ensureWeights(); err != nil {
		return nil, err
	}

	grid := BuildGrid(inputs, shape.Height, shape.Width, e.cfg.Stride, e.cfg.UseUNKText)
	dim := e.cfg.EmbeddingDim
	out := &Tensor{
		Shape: [4]int{grid.Batch, dim, grid.Height, grid.Width},
		Data:  make([]float32, grid.Batch*dim*grid.Height*grid.Width),
	}
	if len(grid.Cells) == 0 {
		return out, nil
	}

	e.mu.RLock()
	table, proj := e.table, e.proj
	e.mu.RUnlock()

	// each distinct id is projected once
	index := make(map[int64]int)
	var ids []int64
	for _, id := range grid.Cells {
		if _, ok := index[id]; ok {
			continue
		}
		if id < 0 || id >= int64(e.cfg.VocabSize) {
			return nil, fmt.Errorf("token id %d outside vocabulary of %d", id, e.cfg.VocabSize)
		}
		index[id] = len(ids)
		ids = append(ids, id)
	}

	gathered := mat.NewDense(len(ids), e.cfg.HiddenSize, nil)
	for i, id := range ids {
		gathered.SetRow(i, table.RawRowView(int(id)))
	}
	var projected mat.Dense
	projected.Mul(gathered, proj)

	plane := grid.Height * grid.Width
	for b := 0; b < grid.Batch; b++ {
		for cell := 0; cell < plane; cell++ {
			row := projected.RawRowView(index[grid.Cells[b*plane+cell]])
			base := b * dim * plane
			for d, v := range row {
				out.Data[base+d*plane+cell] = float32(v)
			}
		}
	}
	return out, nil
}
