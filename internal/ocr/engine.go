package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

const (
	EngineTesseract = "tesseract"
	EngineAzure     = "azure"
)

// Engine recognizes one page image and returns positioned text fragments.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string, page int) ([]entity.Fragment, error)
}

// NewEngine builds the engine named by cfg.Engine.
func NewEngine(cfg Config, runner Runner, logger *slog.Logger) (Engine, error) {
	cfg = cfg.withDefaults()
	switch cfg.Engine {
	case EngineTesseract:
		return NewTesseractEngine(cfg, runner), nil
	case EngineAzure:
		if cfg.AzureEndpoint == "" || cfg.AzureKey == "" {
			return nil, fmt.Errorf("azure engine needs AZURE_VISION_ENDPOINT and AZURE_VISION_KEY")
		}
		return NewAzureEngine(cfg.AzureEndpoint, cfg.AzureKey, logger), nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}
