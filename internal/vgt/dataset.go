package vgt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/akolanti/LayoutAPI/internal/wordgrid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DatasetSpec points at a COCO annotation file and the directories holding its images and word grids.
type DatasetSpec struct {
	AnnotationPath string
	ImagesRoot     string
	WordGridsRoot  string
}

// DatasetCatalog is the process-wide registry of named datasets.
type DatasetCatalog struct {
	mu       sync.Mutex
	datasets map[string]DatasetSpec
}

func NewDatasetCatalog() *DatasetCatalog {
	return &DatasetCatalog{datasets: make(map[string]DatasetSpec)}
}

func (c *DatasetCatalog) Register(name string, spec DatasetSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.datasets[name]; ok {
		return fmt.Errorf("dataset %q is already registered", name)
	}
	c.datasets[name] = spec
	return nil
}

func (c *DatasetCatalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.datasets[name]; !ok {
		return fmt.Errorf("%w: %s", layoutModel.ErrNotRegistered, name)
	}
	delete(c.datasets, name)
	return nil
}

func (c *DatasetCatalog) Get(name string) (DatasetSpec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	spec, ok := c.datasets[name]
	if !ok {
		return DatasetSpec{}, fmt.Errorf("%w: %s", layoutModel.ErrNotRegistered, name)
	}
	return spec, nil
}

// RegisterPredictData replaces the predict_data registration. Registering twice leaves one entry.
func RegisterPredictData(catalog *DatasetCatalog, annotationPath, imagesRoot, wordGridsRoot string) error {
	if err := catalog.Remove(config.PredictDatasetName); err != nil && !errors.Is(err, layoutModel.ErrNotRegistered) {
		return err
	}
	return catalog.Register(config.PredictDatasetName, DatasetSpec{
		AnnotationPath: annotationPath,
		ImagesRoot:     imagesRoot,
		WordGridsRoot:  wordGridsRoot,
	})
}

type cocoImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type cocoCategory struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

type cocoAnnotations struct {
	Images      []cocoImage      `json:"images"`
	Categories  []cocoCategory   `json:"categories"`
	Annotations []map[string]any `json:"annotations"`
}

const annotationSchema = `{
  "type": "object",
  "required": ["images", "categories"],
  "properties": {
    "images": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "file_name", "width", "height"],
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "file_name": {"type": "string", "minLength": 1},
          "width": {"type": "integer", "minimum": 1},
          "height": {"type": "integer", "minimum": 1}
        }
      }
    },
    "categories": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "properties": {
          "id": {"type": "integer"},
          "name": {"type": "string"}
        }
      }
    },
    "annotations": {"type": "array"}
  }
}`

var compileAnnotationSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("coco_annotations.json", annotationSchema)
})

// imageIDs numbers page images 1..n in document then page order. Annotations and
// predictions use the same numbering.
func imageIDs(images []layoutModel.PdfImages) map[int]imageRef {
	refs := make(map[int]imageRef)
	id := 0
	for p := range images {
		for i := range images[p].Images {
			id++
			refs[id] = imageRef{pdf: p, image: i}
		}
	}
	return refs
}

type imageRef struct {
	pdf, image int
}

// GetAnnotations writes the COCO annotation file listing every page image.
func GetAnnotations(images []layoutModel.PdfImages, path string) error {
	doc := cocoAnnotations{Annotations: []map[string]any{}, Images: []cocoImage{}}
	refs := imageIDs(images)
	for id := 1; id <= len(refs); id++ {
		ref := refs[id]
		img := images[ref.pdf].Images[ref.image]
		doc.Images = append(doc.Images, cocoImage{
			ID:       id,
			FileName: filepath.Base(img.Path),
			Width:    img.Width,
			Height:   img.Height,
		})
	}
	for _, t := range layoutModel.Labels() {
		doc.Categories = append(doc.Categories, cocoCategory{ID: int(t), Name: t.String(), Supercategory: "layout"})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0640)
}

// DatasetImage is one image of a loaded dataset with its resolved paths.
type DatasetImage struct {
	ID           int
	Path         string
	WordGridPath string
	Width        int
	Height       int
}

// LoadDataset validates the annotation file of spec and resolves its image paths.
func LoadDataset(spec DatasetSpec) ([]DatasetImage, error) {
	data, err := os.ReadFile(spec.AnnotationPath)
	if err != nil {
		return nil, fmt.Errorf("reading annotations: %v", err)
	}

	schema, err := compileAnnotationSchema()
	if err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding annotations: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("annotations do not match schema: %w", err)
	}

	var doc cocoAnnotations
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	out := make([]DatasetImage, 0, len(doc.Images))
	for _, img := range doc.Images {
		out = append(out, DatasetImage{
			ID:           img.ID,
			Path:         filepath.Join(spec.ImagesRoot, img.FileName),
			WordGridPath: wordgrid.PathFor(spec.WordGridsRoot, img.FileName),
			Width:        img.Width,
			Height:       img.Height,
		})
	}
	return out, nil
}
