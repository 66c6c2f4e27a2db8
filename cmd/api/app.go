package main

import (
	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/layout"
	"github.com/akolanti/LayoutAPI/internal/modelstore"
	"github.com/akolanti/LayoutAPI/internal/pdfimages"
	"github.com/akolanti/LayoutAPI/internal/vgt"
	"github.com/akolanti/LayoutAPI/internal/wordgrid"
)

// newLayoutService wires the pipeline stages. The model is built on first use.
func newLayoutService(cfg *config.Config) (layout.Service, *vgt.ModelCache) {
	models := vgt.NewModelCache(vgt.DefaultBuilder(cfg))
	service := layout.NewService(layout.Dependencies{
		Config: cfg,
		Converter: &pdfimages.Converter{
			Extractor: pdfimages.NewPdfExtractor(),
			Renderer:  pdfimages.NewPdftoppmRenderer(),
			ImagesDir: cfg.Paths.Images,
			XmlsDir:   cfg.Paths.Xmls,
		},
		Tokenizer: wordgrid.NewLazyTokenizer(modelstore.VocabPath(cfg)),
		Models:    models,
		Catalog:   vgt.NewDatasetCatalog(),
	})
	return service, models
}
