package bills

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/bills-extractor/internal/async"
	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/ingest"
)

// Reader is the query side of the bill repository.
type Reader interface {
	GetByUploadID(ctx context.Context, uploadID string) (*entity.BillDocument, error)
	ListByPatientMRN(ctx context.Context, mrn string) ([]*entity.BillDocument, error)
	ListByPatientName(ctx context.Context, name string) ([]*entity.BillDocument, error)
	Statistics(ctx context.Context) (*entity.BillStatistics, error)
}

type Exporter interface {
	BillXLSX(ctx context.Context, uploadID string) ([]byte, error)
}

// Service handles bill business logic shared by the gRPC and HTTP transports.
// Every error it returns is a gRPC status error.
type Service struct {
	bills    Reader
	exporter Exporter
	queue    async.Queue
	logger   *slog.Logger
}

// NewService creates a new bill service. queue may be nil for read-only deployments.
func NewService(bills Reader, exporter Exporter, queue async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{bills: bills, exporter: exporter, queue: queue, logger: logger}
}

// FindRequest selects bills by patient. MRN wins when both are set.
type FindRequest struct {
	MRN  string
	Name string
}

// IngestResult reports a queued file.
type IngestResult struct {
	UploadID string `json:"upload_id"`
	Path     string `json:"path"`
	HashHex  string `json:"sha256"`
	Queued   bool   `json:"queued"`
}

// DirectoryIngestResult represents directory ingestion results.
type DirectoryIngestResult struct {
	Statistics ingest.DirStats
	Results    []ingest.Upload
	Queued     int
}

func (s *Service) Get(ctx context.Context, uploadID string) (*entity.BillDocument, error) {
	uploadID = strings.TrimSpace(uploadID)
	if uploadID == "" {
		return nil, status.Error(codes.InvalidArgument, "upload_id is required")
	}
	doc, err := s.bills.GetByUploadID(ctx, uploadID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("get bill failed", "upload_id", uploadID, "error", err)
		}
		return nil, common.ToStatus(err)
	}
	return doc, nil
}

func (s *Service) Find(ctx context.Context, req FindRequest) ([]*entity.BillDocument, error) {
	mrn, name := strings.TrimSpace(req.MRN), strings.TrimSpace(req.Name)
	var (
		docs []*entity.BillDocument
		err  error
	)
	switch {
	case mrn != "":
		docs, err = s.bills.ListByPatientMRN(ctx, mrn)
	case name != "":
		docs, err = s.bills.ListByPatientName(ctx, name)
	default:
		return nil, status.Error(codes.InvalidArgument, "mrn or name is required")
	}
	if err != nil {
		s.logger.Error("find bills failed", "mrn", mrn, "name", name, "error", err)
		return nil, common.ToStatus(err)
	}
	s.logger.Debug("find bills", "mrn", mrn, "name", name, "count", len(docs))
	return docs, nil
}

func (s *Service) Stats(ctx context.Context) (*entity.BillStatistics, error) {
	st, err := s.bills.Statistics(ctx)
	if err != nil {
		s.logger.Error("bill statistics failed", "error", err)
		return nil, common.ToStatus(err)
	}
	return st, nil
}

func (s *Service) Export(ctx context.Context, uploadID string) ([]byte, error) {
	uploadID = strings.TrimSpace(uploadID)
	if uploadID == "" {
		return nil, status.Error(codes.InvalidArgument, "upload_id is required")
	}
	if s.exporter == nil {
		return nil, status.Error(codes.Unimplemented, "export is not configured")
	}
	b, err := s.exporter.BillXLSX(ctx, uploadID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("export.xlsx.failed", "upload_id", uploadID, "error", err)
		}
		return nil, common.ToStatus(err)
	}
	return b, nil
}

// IngestFile hashes the file and queues it for extraction under its content-derived upload id.
func (s *Service) IngestFile(ctx context.Context, path string) (IngestResult, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return IngestResult{}, status.Error(codes.InvalidArgument, "path is required")
	}
	if s.queue == nil {
		return IngestResult{}, status.Error(codes.Unavailable, "ingestion is disabled")
	}

	u, err := ingest.PrepareFile(path)
	if err != nil {
		s.logger.Error("ingest prepare failed", "path", path, "error", err)
		return IngestResult{}, status.Errorf(codes.InvalidArgument, "ingest: %v", err)
	}
	if err := s.queue.Enqueue(ctx, async.Job{Path: u.SourcePath, UploadID: u.UploadID, TraceID: common.RequestIDFromContext(ctx)}); err != nil {
		s.logger.Error("enqueue failed for file", "path", u.SourcePath, "upload_id", u.UploadID, "error", err)
		return IngestResult{}, common.ToStatus(err)
	}

	s.logger.Info("file queued for extraction", "path", u.SourcePath, "upload_id", u.UploadID)
	return IngestResult{UploadID: u.UploadID, Path: u.SourcePath, HashHex: u.HashHex, Queued: true}, nil
}

// IngestDirectory walks root and queues every prepared file. Duplicates within one walk are skipped.
func (s *Service) IngestDirectory(ctx context.Context, root string, skipHidden bool) (*DirectoryIngestResult, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, status.Error(codes.InvalidArgument, "root_path is required")
	}
	if s.queue == nil {
		return nil, status.Error(codes.Unavailable, "ingestion is disabled")
	}

	s.logger.Info("starting directory ingest", "root", root, "skip_hidden", skipHidden)
	results, stats, err := ingest.WalkDirectory(ctx, root, skipHidden)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "ingest directory: %v", err)
	}

	out := &DirectoryIngestResult{Statistics: stats, Results: results}
	for _, u := range results {
		if u.Err != "" || u.Deduplicated {
			continue
		}
		if err := s.queue.Enqueue(ctx, async.Job{Path: u.SourcePath, UploadID: u.UploadID}); err != nil {
			s.logger.Error("enqueue failed for file", "path", u.SourcePath, "error", err)
			return out, common.ToStatus(err)
		}
		out.Queued++
	}

	s.logger.Info("directory ingest completed", "root", root, "scanned", stats.Scanned, "matched", stats.Matched, "succeeded", stats.Succeeded, "deduplicated", stats.Deduplicated, "failed", stats.Failed, "queued", out.Queued)
	return out, nil
}
