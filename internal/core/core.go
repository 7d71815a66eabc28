// Package core assembles the extraction stages from configuration.
package core

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/bills-extractor/internal/billing"
	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/extract"
	"github.com/joseph-ayodele/bills-extractor/internal/layout"
	"github.com/joseph-ayodele/bills-extractor/internal/ocr"
	"github.com/joseph-ayodele/bills-extractor/internal/pipeline"
)

// Stages holds the wired extraction stages.
type Stages struct {
	Clusterer *layout.Clusterer
	OCR       *ocr.Extractor
	Source    extract.FragmentSource
	Engine    *billing.Extractor
	Processor *pipeline.Processor
}

func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Engine:           c.Engine,
		Pdftoppm:         c.Pdftoppm,
		Tesseract:        c.Tesseract,
		TesseractLang:    c.TesseractLang,
		TessdataDir:      c.TessdataDir,
		DPI:              c.DPI,
		MaxPages:         c.MaxPages,
		PSM:              c.PSM,
		Preprocess:       c.Preprocess,
		ArtifactCacheDir: c.ArtifactCacheDir,
		AzureEndpoint:    c.AzureEndpoint,
		AzureKey:         c.AzureKey,
	}
}

func LayoutConfig(c common.ExtractionConfig) layout.Config {
	return layout.Config{
		RowHeightFactor:      c.RowHeightFactor,
		FallbackRowThreshold: c.FallbackRowThreshold,
		DefaultDateAnchorX:   c.DateAnchorX,
	}
}

// NewStages builds OCR -> layout -> bill extraction -> store. store may be nil.
func NewStages(cfg *common.Config, store pipeline.Store, logger *slog.Logger, opts ...ocr.Option) (*Stages, error) {
	if logger == nil {
		logger = slog.Default()
	}
	clusterer := layout.NewClusterer(LayoutConfig(cfg.Extraction))
	ocrx, err := ocr.NewExtractor(OCRConfig(cfg.OCR), logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("ocr extractor: %w", err)
	}
	source := extract.NewOCRAdapter(ocrx, clusterer, logger)
	engine := billing.NewExtractor(logger)
	proc := pipeline.NewProcessor(logger, source, engine, store, pipeline.WithSchemaValidation(cfg.Extraction.ValidateSchema))
	return &Stages{Clusterer: clusterer, OCR: ocrx, Source: source, Engine: engine, Processor: proc}, nil
}

// NewReplayProcessor reads saved OCR dumps instead of running OCR.
func NewReplayProcessor(cfg *common.Config, store pipeline.Store, logger *slog.Logger) *pipeline.Processor {
	clusterer := layout.NewClusterer(LayoutConfig(cfg.Extraction))
	return pipeline.NewProcessor(logger, extract.NewDumpSource(clusterer), billing.NewExtractor(logger), store,
		pipeline.WithSchemaValidation(cfg.Extraction.ValidateSchema))
}
