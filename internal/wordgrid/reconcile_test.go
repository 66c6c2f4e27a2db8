package wordgrid

import (
	"errors"
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/akolanti/LayoutAPI/internal/checkpoint"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

func TestEmbeddingKey(t *testing.T) {
	tests := []struct {
		id      string
		want    string
		wantErr bool
	}{
		{id: "bert-base-uncased", want: "bert.embeddings.word_embeddings.weight"},
		{id: "bros-base-uncased", want: "embeddings.word_embeddings.weight"},
		{id: "layoutlm-base-uncased", want: "layoutlm.embeddings.word_embeddings.weight"},
		{id: "layoutlm-bert-mix", want: "bert.embeddings.word_embeddings.weight"},
		{id: "roberta-base", want: "bert.embeddings.word_embeddings.weight"},
		{id: "xlm-large", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := EmbeddingKey(tt.id)
			if tt.wantErr {
				if !errors.Is(err, layoutModel.ErrUnsupportedCheckpointFormat) {
					t.Fatalf("expected ErrUnsupportedCheckpointFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}

func sequentialTensor(rows, cols int) *checkpoint.Tensor {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = float64(i + 1)
	}
	return &checkpoint.Tensor{Shape: []int{rows, cols}, Data: data}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		loaded    int
		vocabSize int
	}{
		{name: "exact", loaded: 4, vocabSize: 4},
		{name: "pad", loaded: 3, vocabSize: 6},
		{name: "truncate", loaded: 6, vocabSize: 2},
	}
	const hidden = 3
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weights := sequentialTensor(tt.loaded, hidden)
			table := Reconcile(weights, tt.vocabSize, rand.NewPCG(1, 2))

			rows, cols := table.Dims()
			if rows != tt.vocabSize || cols != hidden {
				t.Fatalf("table = %dx%d, want %dx%d", rows, cols, tt.vocabSize, hidden)
			}
			keep := min(tt.loaded, tt.vocabSize)
			for i := 0; i < keep; i++ {
				for j := 0; j < hidden; j++ {
					if table.At(i, j) != weights.Data[i*hidden+j] {
						t.Errorf("row %d col %d = %v, want %v", i, j, table.At(i, j), weights.Data[i*hidden+j])
					}
				}
			}
			for i := keep; i < rows; i++ {
				for j := 0; j < hidden; j++ {
					// N(0,1)*0.02 stays far below 1 in practice
					if v := table.At(i, j); math.Abs(v) > 0.2 {
						t.Errorf("padded value %v at (%d,%d) is not small", v, i, j)
					}
				}
			}
		})
	}
}

func TestReconcile_DoesNotAliasInput(t *testing.T) {
	weights := sequentialTensor(2, 2)
	table := Reconcile(weights, 2, rand.NewPCG(1, 2))
	table.Set(0, 0, -1)
	if weights.Data[0] != 1 {
		t.Error("modifying the table changed the loaded weights")
	}
}

func TestReconciler_Load(t *testing.T) {
	models := t.TempDir()
	id := "layoutlm-base-uncased"
	path := filepath.Join(models, id, "model.safetensors")
	if err := mkdirFor(path); err != nil {
		t.Fatal(err)
	}
	err := checkpoint.Write(path, map[string]*checkpoint.Tensor{
		"layoutlm.embeddings.word_embeddings.weight": sequentialTensor(5, 4),
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	t.Run("loads and pads", func(t *testing.T) {
		r := NewReconciler(models, id, "model.safetensors", 3)
		table, err := r.Load(8, 4)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if rows, _ := table.Dims(); rows != 8 {
			t.Errorf("rows = %d, want 8", rows)
		}
		if table.At(4, 3) != 20 {
			t.Errorf("last loaded value = %v, want 20", table.At(4, 3))
		}
	})

	t.Run("hidden size mismatch", func(t *testing.T) {
		r := NewReconciler(models, id, "model.safetensors", 3)
		_, err := r.Load(8, 5)
		if !errors.Is(err, layoutModel.ErrUnsupportedCheckpointFormat) {
			t.Fatalf("expected ErrUnsupportedCheckpointFormat, got %v", err)
		}
	})

	t.Run("missing checkpoint", func(t *testing.T) {
		r := NewReconciler(models, "layoutlm-large", "model.safetensors", 3)
		_, err := r.Load(8, 4)
		if !errors.Is(err, layoutModel.ErrModelUnavailable) {
			t.Fatalf("expected ErrModelUnavailable, got %v", err)
		}
	})

	t.Run("key absent from checkpoint", func(t *testing.T) {
		brosDir := filepath.Join(models, "bros-base")
		if err := mkdirFor(filepath.Join(brosDir, "x")); err != nil {
			t.Fatal(err)
		}
		err := checkpoint.Write(filepath.Join(brosDir, "model.safetensors"), map[string]*checkpoint.Tensor{
			"layoutlm.embeddings.word_embeddings.weight": sequentialTensor(2, 4),
		})
		if err != nil {
			t.Fatal(err)
		}
		r := NewReconciler(models, "bros-base", "model.safetensors", 3)
		_, err = r.Load(8, 4)
		if !errors.Is(err, layoutModel.ErrUnsupportedCheckpointFormat) {
			t.Fatalf("expected ErrUnsupportedCheckpointFormat, got %v", err)
		}
	})
}
