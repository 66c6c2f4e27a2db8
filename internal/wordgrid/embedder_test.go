package wordgrid

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"gonum.org/v1/gonum/mat"
)

type MockWeightLoader struct {
	Calls  int32
	OnLoad func(vocabSize, hiddenSize int) (*mat.Dense, error)
}

func (m *MockWeightLoader) Load(vocabSize, hiddenSize int) (*mat.Dense, error) {
	atomic.AddInt32(&m.Calls, 1)
	if m.OnLoad != nil {
		return m.OnLoad(vocabSize, hiddenSize)
	}
	return mat.NewDense(vocabSize, hiddenSize, nil), nil
}

func testConfig() EmbedderConfig {
	return EmbedderConfig{VocabSize: 16, HiddenSize: 6, EmbeddingDim: 3, Stride: 2, Seed: 7}
}

func TestEmbedder_ForwardShapeAndLookup(t *testing.T) {
	e := NewEmbedder(testConfig(), nil)
	inputs := []GridInput{{
		InputIDs: []int64{4, 9},
		Boxes:    []layoutModel.Box{{X0: 0, Y0: 0, X1: 4, Y1: 2}, {X0: 4, Y0: 4, X1: 8, Y1: 8}},
	}}

	out, err := e.Forward(ImageShape{Batch: 1, Channels: 3, Height: 8, Width: 8}, inputs)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if out.Shape != [4]int{1, 3, 4, 4} {
		t.Fatalf("shape = %v, want [1 3 4 4]", out.Shape)
	}
	if len(out.Data) != 1*3*4*4 {
		t.Fatalf("data length = %d", len(out.Data))
	}

	// cells (0,0) and (0,1) share id 4, (2,2) holds id 9
	for d := 0; d < 3; d++ {
		if out.At(0, d, 0, 0) != out.At(0, d, 0, 1) {
			t.Errorf("dim %d: same id produced different embeddings", d)
		}
	}
	same := true
	for d := 0; d < 3; d++ {
		if out.At(0, d, 0, 0) != out.At(0, d, 2, 2) {
			same = false
		}
	}
	if same {
		t.Error("different ids produced identical embeddings")
	}
}

func TestEmbedder_SeedIsDeterministic(t *testing.T) {
	a := NewEmbedder(testConfig(), nil)
	b := NewEmbedder(testConfig(), nil)
	if !mat.Equal(a.Table(), b.Table()) {
		t.Error("same seed produced different tables")
	}
}

func TestEmbedder_ForwardErrors(t *testing.T) {
	e := NewEmbedder(testConfig(), nil)

	t.Run("batch mismatch", func(t *testing.T) {
		_, err := e.Forward(ImageShape{Batch: 2, Height: 8, Width: 8}, []GridInput{{}})
		if err == nil {
			t.Fatal("expected an error for a batch mismatch")
		}
	})

	t.Run("id outside vocabulary", func(t *testing.T) {
		inputs := []GridInput{{InputIDs: []int64{99}, Boxes: []layoutModel.Box{{X0: 0, Y0: 0, X1: 8, Y1: 8}}}}
		_, err := e.Forward(ImageShape{Batch: 1, Height: 8, Width: 8}, inputs)
		if err == nil {
			t.Fatal("expected an error for id 99 with vocabulary 16")
		}
	})
}

func TestEmbedder_LoadsWeightsOnce(t *testing.T) {
	cfg := testConfig()
	cfg.UsePretrainWeight = true
	loader := &MockWeightLoader{}
	e := NewEmbedder(cfg, loader)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Forward(ImageShape{Batch: 1, Height: 8, Width: 8}, []GridInput{{}}); err != nil {
				t.Errorf("Forward failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls := atomic.LoadInt32(&loader.Calls); calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
	if !e.WeightsLoaded() {
		t.Error("weights should be marked loaded")
	}
}

func TestEmbedder_FailedLoadIsRetried(t *testing.T) {
	cfg := testConfig()
	cfg.UsePretrainWeight = true
	fail := true
	loader := &MockWeightLoader{
		OnLoad: func(vocabSize, hiddenSize int) (*mat.Dense, error) {
			if fail {
				return nil, layoutModel.ErrModelUnavailable
			}
			return mat.NewDense(vocabSize, hiddenSize, nil), nil
		},
	}
	e := NewEmbedder(cfg, loader)
	shape := ImageShape{Batch: 1, Height: 8, Width: 8}

	_, err := e.Forward(shape, []GridInput{{}})
	if !errors.Is(err, layoutModel.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if e.WeightsLoaded() {
		t.Fatal("a failed load must leave the weights unloaded")
	}

	fail = false
	if _, err := e.Forward(shape, []GridInput{{}}); err != nil {
		t.Fatalf("second Forward failed: %v", err)
	}
	if !e.WeightsLoaded() || loader.Calls != 2 {
		t.Errorf("loaded=%v calls=%d, want true and 2", e.WeightsLoaded(), loader.Calls)
	}
}

func TestEmbedder_RejectsWrongTableShape(t *testing.T) {
	cfg := testConfig()
	cfg.UsePretrainWeight = true
	loader := &MockWeightLoader{
		OnLoad: func(vocabSize, hiddenSize int) (*mat.Dense, error) {
			return mat.NewDense(vocabSize-1, hiddenSize, nil), nil
		},
	}
	e := NewEmbedder(cfg, loader)
	if _, err := e.Forward(ImageShape{Batch: 1, Height: 8, Width: 8}, []GridInput{{}}); err == nil {
		t.Fatal("expected an error for a short table")
	}
	if e.WeightsLoaded() {
		t.Error("weights should stay unloaded")
	}
}
