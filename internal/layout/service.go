package layout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akolanti/LayoutAPI/internal/adapter/utils"
	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/akolanti/LayoutAPI/internal/extraction"
	"github.com/akolanti/LayoutAPI/internal/metrics"
	"github.com/akolanti/LayoutAPI/internal/pdfimages"
	"github.com/akolanti/LayoutAPI/internal/vgt"
	"github.com/akolanti/LayoutAPI/internal/wordgrid"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

// inferenceMutex serialises everything that touches the shared annotation file,
// the predict_data registration and the predictions file.
var inferenceMutex sync.Mutex

type Stage string

const (
	StageSavePdf     Stage = "SavePdf"
	StageFeatures    Stage = "PdfFeatures"
	StageWordGrids   Stage = "WordGrids"
	StageAnnotations Stage = "Annotations"
	StageInference   Stage = "Inference"
	StageCleanup     Stage = "Cleanup"
	StagePostprocess Stage = "Postprocess"
	StageComplete    Stage = "Complete"
)

type Request struct {
	Content          []byte
	FileName         string
	XmlFileName      string
	ExtractionFormat string
	KeepPDF          bool

	// OnStage, if set, is called as each stage starts.
	OnStage func(Stage)
}

type Service interface {
	AnalyzePDF(ctx context.Context, req Request) ([]layoutModel.SegmentBox, error)
}

type Dependencies struct {
	Config    *config.Config
	Converter *pdfimages.Converter
	Tokenizer *wordgrid.LazyTokenizer
	Models    *vgt.ModelCache
	Catalog   *vgt.DatasetCatalog
}

type service struct {
	cfg       *config.Config
	converter *pdfimages.Converter
	tokenizer *wordgrid.LazyTokenizer
	models    *vgt.ModelCache
	catalog   *vgt.DatasetCatalog
	logger    *logger_i.Logger
}

func NewService(deps Dependencies) Service {
	return &service{
		cfg:       deps.Config,
		converter: deps.Converter,
		tokenizer: deps.Tokenizer,
		models:    deps.Models,
		catalog:   deps.Catalog,
		logger:    logger_i.NewLogger("LayoutService"),
	}
}

// AnalyzePDF runs the whole pipeline for one uploaded PDF. Page images and word grids of the
// request are removed on every exit path; the saved PDF too unless KeepPDF is set.
func (s *service) AnalyzePDF(ctx context.Context, req Request) (segments []layoutModel.SegmentBox, err error) {
	log := s.logger.WithTrace(ctx).With("file", req.FileName, "xml_file_name", req.XmlFileName)

	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.CaptureJobMetrics(status, time.Since(start))
	}()

	if req.ExtractionFormat != "" {
		if err := extraction.ValidateFormat(req.ExtractionFormat); err != nil {
			return nil, err
		}
	}
	if len(req.Content) == 0 {
		return nil, layoutModel.MissingInput("pdf upload", errors.New("empty file"))
	}

	item := layoutModel.PdfWorkItem{UUID: utils.GetNewUUID()}
	log = log.With("uuid", item.UUID)

	item.PdfPath, err = s.executeSavePdfStep(log, req, item.UUID)
	if err != nil {
		return nil, stageError(StageSavePdf, err)
	}
	if !req.KeepPDF {
		defer s.removePdf(log, item.PdfPath)
	}

	cleaned := false
	cleanup := func() {
		if !cleaned {
			cleaned = true
			s.executeCleanupStep(log, req, item)
		}
	}
	defer cleanup()

	pdf, err := s.executeFeaturesStep(ctx, log, req, item.PdfPath)
	if err != nil {
		return nil, stageError(StageFeatures, err)
	}
	for _, img := range pdf.Images {
		item.Images = append(item.Images, img.Path)
	}
	pdfs := []layoutModel.PdfImages{pdf}

	item.WordGrids, err = s.executeWordGridStep(log, req, pdfs)
	if err != nil {
		return nil, stageError(StageWordGrids, err)
	}

	predictions, conf, err := s.executeInferenceStep(ctx, log, req, pdfs)
	if err != nil {
		return nil, err
	}
	cleanup()

	predicted, err := s.executePostprocessStep(log, req, pdf, predictions, conf)
	if err != nil {
		return nil, stageError(StagePostprocess, err)
	}

	segments = make([]layoutModel.SegmentBox, 0, len(predicted))
	for _, segment := range predicted {
		metrics.CaptureSegment(segment.Type.String())
		segments = append(segments, layoutModel.ToSegmentBox(segment, pdf.Features.Pages))
	}
	notify(req, StageComplete, log)
	log.Info("pdf analysed", "pages", len(pdf.Images), "segments", len(segments), "elapsed", time.Since(start))
	return segments, nil
}

func stageError(stage Stage, err error) error {
	var se *layoutModel.StageError
	if errors.As(err, &se) {
		return err
	}
	return &layoutModel.StageError{Stage: string(stage), Err: err}
}
