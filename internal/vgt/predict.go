package vgt

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/wordgrid"
	"golang.org/x/image/draw"
)

// Prediction is one line of the COCO results file.
type Prediction struct {
	ImageID    int        `json:"image_id"`
	CategoryID int        `json:"category_id"`
	BBox       [4]float64 `json:"bbox"`
	Score      float64    `json:"score"`
}

// TestSize returns the size an image is resized to before inference: the shorter side
// becomes minSize unless that pushes the longer side past maxSize.
func TestSize(width, height, minSize, maxSize int) (int, int) {
	short, long := float64(min(width, height)), float64(max(width, height))
	scale := float64(minSize) / short
	if long*scale > float64(maxSize) {
		scale = float64(maxSize) / long
	}
	return int(math.Round(float64(width) * scale)), int(math.Round(float64(height) * scale))
}

// Predict runs the model over every image of the predict_data dataset and writes the COCO
// results to OUTPUT_DIR/inference.
func Predict(ctx context.Context, model *Model, conf *Configuration, catalog *DatasetCatalog) error {
	spec, err := catalog.Get(config.PredictDatasetName)
	if err != nil {
		return err
	}
	images, err := LoadDataset(spec)
	if err != nil {
		return err
	}

	results := []Prediction{}
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		instances, err := predictImage(ctx, model, conf, img)
		if err != nil {
			return fmt.Errorf("image %d: %w", img.ID, err)
		}
		for _, in := range instances {
			results = append(results, Prediction{ImageID: img.ID, CategoryID: in.CategoryID, BBox: in.BBox, Score: in.Score})
		}
	}

	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	path := conf.PredictionsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0640)
}

func predictImage(ctx context.Context, model *Model, conf *Configuration, img DatasetImage) ([]Instance, error) {
	src, err := decodeImage(img.Path)
	if err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	width, height := TestSize(bounds.Dx(), bounds.Dy(), conf.Input.MinSizeTest, conf.Input.MaxSizeTest)
	resized := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(resized, resized.Bounds(), src, bounds, draw.Src, nil)

	sx := float64(width) / float64(bounds.Dx())
	sy := float64(height) / float64(bounds.Dy())

	grid, err := wordgrid.LoadFile(img.WordGridPath)
	if err != nil {
		return nil, fmt.Errorf("loading word grid: %v", err)
	}
	embedding, err := model.Embedder.Forward(
		wordgrid.ImageShape{Batch: 1, Channels: 3, Height: height, Width: width},
		[]wordgrid.GridInput{grid.GridInput(sx, sy)},
	)
	if err != nil {
		return nil, err
	}

	instances, err := model.Detector.Detect(ctx, DetectRequest{ImageID: img.ID, Image: resized, Grid: embedding})
	if err != nil {
		return nil, err
	}
	// back to the pixels of the rendered page
	for i := range instances {
		b := &instances[i].BBox
		b[0], b[1], b[2], b[3] = b[0]/sx, b[1]/sy, b[2]/sx, b[3]/sy
	}
	return instances, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening page image: %v", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// ReadPredictions loads the results written by Predict.
func ReadPredictions(conf *Configuration) ([]Prediction, error) {
	data, err := os.ReadFile(conf.PredictionsPath())
	if err != nil {
		return nil, fmt.Errorf("reading predictions: %v", err)
	}
	var predictions []Prediction
	if err := json.Unmarshal(data, &predictions); err != nil {
		return nil, fmt.Errorf("decoding predictions: %w", err)
	}
	return predictions, nil
}
