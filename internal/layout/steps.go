package layout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/akolanti/LayoutAPI/internal/adapter/utils"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/akolanti/LayoutAPI/internal/extraction"
	"github.com/akolanti/LayoutAPI/internal/metrics"
	"github.com/akolanti/LayoutAPI/internal/pdfimages"
	"github.com/akolanti/LayoutAPI/internal/readingorder"
	"github.com/akolanti/LayoutAPI/internal/vgt"
	"github.com/akolanti/LayoutAPI/internal/wordgrid"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

func notify(req Request, stage Stage, log *logger_i.Logger) {
	log.Debug("AnalyzePDF", "stage", stage)
	if req.OnStage != nil {
		req.OnStage(stage)
	}
}

func (s *service) executeSavePdfStep(log *logger_i.Logger, req Request, id string) (string, error) {
	notify(req, StageSavePdf, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("save_pdf", time.Since(start)) }()

	if err := os.MkdirAll(s.cfg.Paths.Temp, 0750); err != nil {
		return "", err
	}
	path := filepath.Join(s.cfg.Paths.Temp, id+".pdf")
	if err := os.WriteFile(path, req.Content, 0640); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return path, nil
}

func (s *service) executeFeaturesStep(ctx context.Context, log *logger_i.Logger, req Request, pdfPath string) (layoutModel.PdfImages, error) {
	notify(req, StageFeatures, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("pdf_features", time.Since(start)) }()

	return s.converter.FromPdfPath(ctx, pdfPath, req.XmlFileName)
}

func (s *service) executeWordGridStep(log *logger_i.Logger, req Request, pdfs []layoutModel.PdfImages) ([]string, error) {
	notify(req, StageWordGrids, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("word_grids", time.Since(start)) }()

	tok, err := s.tokenizer.Get()
	if err != nil {
		return nil, err
	}
	return wordgrid.CreateWordGrids(pdfs, s.cfg.Paths.WordGrids, tok)
}

// executeInferenceStep writes the annotation file and runs the model while holding
// inferenceMutex, so concurrent requests never read each other's annotations or predictions.
func (s *service) executeInferenceStep(ctx context.Context, log *logger_i.Logger, req Request, pdfs []layoutModel.PdfImages) ([]vgt.Prediction, *vgt.Configuration, error) {
	waitStart := time.Now()
	inferenceMutex.Lock()
	defer inferenceMutex.Unlock()
	metrics.CaptureInferenceLockWait(time.Since(waitStart))

	notify(req, StageAnnotations, log)
	annotationPath := s.cfg.Paths.AnnotationFile()
	if err := s.executeAnnotationsStep(pdfs, annotationPath); err != nil {
		return nil, nil, stageError(StageAnnotations, err)
	}

	notify(req, StageInference, log)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("inference", time.Since(start)) }()

	if err := vgt.RegisterPredictData(s.catalog, annotationPath, s.cfg.Paths.Images, s.cfg.Paths.WordGrids); err != nil {
		return nil, nil, stageError(StageInference, err)
	}
	model, conf, err := s.models.Get(ctx)
	if err != nil {
		return nil, nil, stageError(StageInference, err)
	}
	if err := vgt.Predict(ctx, model, conf, s.catalog); err != nil {
		return nil, nil, stageError(StageInference, err)
	}
	predictions, err := vgt.ReadPredictions(conf)
	if err != nil {
		return nil, nil, stageError(StageInference, err)
	}
	log.Debug("inference done", "predictions", len(predictions))
	return predictions, conf, nil
}

func (s *service) executeAnnotationsStep(pdfs []layoutModel.PdfImages, path string) error {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("annotations", time.Since(start)) }()

	return vgt.GetAnnotations(pdfs, path)
}

// executeCleanupStep removes the page images and word grids of one request. The tracked
// paths go first; the prefix sweep catches files written before a step failed. Failures are logged.
func (s *service) executeCleanupStep(log *logger_i.Logger, req Request, item layoutModel.PdfWorkItem) {
	notify(req, StageCleanup, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cleanup", time.Since(start)) }()

	for _, path := range slices.Concat(item.Images, item.WordGrids) {
		if err := utils.RemoveIfExists(path); err != nil {
			metrics.IncrementCleanupFailures()
			log.Warn("removing artifact failed", "path", path, "error", err)
		}
	}

	id := item.UUID
	if err := pdfimages.RemoveImages(s.cfg.Paths.Images, id); err != nil {
		metrics.IncrementCleanupFailures()
		log.Warn("removing page images failed", "error", err)
	}
	if err := wordgrid.RemoveWordGrids(s.cfg.Paths.WordGrids, id); err != nil {
		metrics.IncrementCleanupFailures()
		log.Warn("removing word grids failed", "error", err)
	}
}

func (s *service) removePdf(log *logger_i.Logger, path string) {
	if err := utils.RemoveIfExists(path); err != nil {
		metrics.IncrementCleanupFailures()
		log.Warn("removing uploaded pdf failed", "path", path, "error", err)
	}
}

func (s *service) executePostprocessStep(log *logger_i.Logger, req Request, pdf layoutModel.PdfImages, predictions []vgt.Prediction, conf *vgt.Configuration) ([]layoutModel.PredictedSegment, error) {
	notify(req, StagePostprocess, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("postprocess", time.Since(start)) }()

	segments := vgt.GetMostProbablePdfSegments(
		[]layoutModel.PdfImages{pdf},
		predictions,
		conf.Model.RoiHeads.ScoreThreshTest,
		s.cfg.Model.OverlapThreshold,
	)
	segments = readingorder.Order(segments, pdf.Features.Pages)
	segments = extraction.ExtractFormulaFormat(pdf, segments)
	if req.ExtractionFormat == "" {
		return segments, nil
	}
	return extraction.ExtractTableFormat(pdf, segments, req.ExtractionFormat)
}
