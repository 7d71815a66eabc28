package extract

import (
	"context"

	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

// FragmentSource is Stage 1: file -> positioned fragments and item blocks.
type FragmentSource interface {
	Extract(ctx context.Context, path string) (entity.OCRResult, error)
}

// BillExtractor is Stage 2: fragments -> one bill document.
type BillExtractor interface {
	Extract(res entity.OCRResult) (*entity.BillDocument, error)
}
