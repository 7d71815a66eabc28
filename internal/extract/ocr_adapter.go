package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/layout"
)

// OCRAdapter runs an OCR source and rebuilds table rows from its fragments.
type OCRAdapter struct {
	source    FragmentSource
	clusterer *layout.Clusterer
	logger    *slog.Logger
}

func NewOCRAdapter(source FragmentSource, clusterer *layout.Clusterer, l *slog.Logger) *OCRAdapter {
	if l == nil {
		l = slog.Default()
	}
	if clusterer == nil {
		clusterer = layout.NewClusterer(layout.DefaultConfig())
	}
	return &OCRAdapter{
		source:    source,
		clusterer: clusterer,
		logger:    l,
	}
}

func (a *OCRAdapter) Extract(ctx context.Context, path string) (entity.OCRResult, error) {
	r, err := a.source.Extract(ctx, path)
	if err != nil {
		return entity.OCRResult{}, err
	}
	r.ItemBlocks = a.clusterer.Blocks(r.Lines)
	a.logger.Debug("layout clustered",
		"path", path,
		"fragments", len(r.Lines),
		"item_blocks", len(r.ItemBlocks),
		"row_threshold", a.clusterer.RowThreshold(r.Lines),
		"date_anchor", a.clusterer.DateAnchor(r.Lines),
	)
	return r, nil
}
