package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/extract"
	"github.com/joseph-ayodele/bills-extractor/internal/schema"
)

// Store is the part of the bill repository the processor writes to.
type Store interface {
	Upsert(ctx context.Context, doc *entity.BillDocument) error
}

// Request names one file to process. An empty UploadID gets a random one.
type Request struct {
	Path     string
	UploadID string
}

// Processor coordinates OCR (fragment source), bill extraction and storage.
type Processor struct {
	logger   *slog.Logger
	source   extract.FragmentSource
	engine   extract.BillExtractor
	store    Store
	validate bool
	newID    func() string
}

type Option func(*Processor)

// WithSchemaValidation checks every document against the bill JSON schema before storing it.
func WithSchemaValidation(on bool) Option {
	return func(p *Processor) { p.validate = on }
}

// WithIDGenerator replaces the default random upload id generator.
func WithIDGenerator(gen func() string) Option {
	return func(p *Processor) { p.newID = gen }
}

// NewProcessor wires the stages. store may be nil, in which case documents are only returned.
func NewProcessor(logger *slog.Logger, source extract.FragmentSource, engine extract.BillExtractor, store Store, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger: logger,
		source: source,
		engine: engine,
		store:  store,
		newID:  func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessFile runs the fragment source on req.Path, then extraction and storage.
// When storage fails the extracted document is returned together with the error.
func (p *Processor) ProcessFile(ctx context.Context, req Request) (*entity.BillDocument, error) {
	if req.Path == "" {
		return nil, common.NewAppError("INVALID_REQUEST", "path is required", common.ErrInvalidInput)
	}
	if p.source == nil {
		return nil, common.NewAppError("PIPELINE_ERROR", "no fragment source configured", common.ErrInternal)
	}
	req = p.withUploadID(req)
	ctx = common.WithUploadID(ctx, req.UploadID)

	start := time.Now()
	res, err := p.source.Extract(ctx, req.Path)
	if err != nil {
		p.logger.Error("processor.ocr.failed", "upload_id", req.UploadID, "path", req.Path, "error", err)
		return nil, fmt.Errorf("ocr %s: %w", filepath.Base(req.Path), err)
	}
	p.logger.Debug("processor.ocr.ok",
		"upload_id", req.UploadID,
		"method", res.Method,
		"pages", res.Pages,
		"fragments", len(res.Lines),
		"blocks", len(res.ItemBlocks),
		"confidence", res.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return p.ProcessResult(ctx, req, res)
}

// ProcessResult runs extraction and storage over an OCR result that is already loaded.
func (p *Processor) ProcessResult(ctx context.Context, req Request, res entity.OCRResult) (*entity.BillDocument, error) {
	req = p.withUploadID(req)

	doc, err := p.engine.Extract(res)
	if err != nil {
		p.logger.Error("processor.extract.failed", "upload_id", req.UploadID, "error", err)
		return nil, err
	}
	doc.UploadID = req.UploadID
	if req.Path != "" {
		doc.SourcePDF = filepath.Base(req.Path)
	}
	if doc.PageCount < 1 {
		doc.PageCount = 1
	}

	if p.validate {
		if err := schema.ValidateDocument(doc); err != nil {
			p.logger.Error("processor.validate.failed", "upload_id", doc.UploadID, "error", err)
			return doc, common.NewAppError("SCHEMA_VIOLATION", "extracted bill does not match schema", fmt.Errorf("%w: %w", common.ErrValidation, err))
		}
	}

	p.logger.Info("processor.extract.ok",
		"upload_id", doc.UploadID,
		"source", doc.SourcePDF,
		"status", doc.Status,
		"items", doc.ItemCount(),
		"payments", len(doc.Payments),
		"grand_total", doc.GrandTotal,
	)

	if p.store == nil {
		return doc, nil
	}
	if err := p.store.Upsert(ctx, doc); err != nil {
		p.logger.Error("processor.store.failed", "upload_id", doc.UploadID, "error", err)
		return doc, fmt.Errorf("store bill %s: %w", doc.UploadID, err)
	}
	p.logger.Debug("processor.store.ok", "upload_id", doc.UploadID)
	return doc, nil
}

func (p *Processor) withUploadID(req Request) Request {
	if req.UploadID == "" {
		req.UploadID = p.newID()
	}
	return req
}
