package server

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/bills-extractor/internal/bills"
)

type BillServer struct {
	svc    *bills.Service
	logger *slog.Logger
}

var _ BillServiceServer = (*BillServer)(nil)

func NewBillServer(svc *bills.Service, logger *slog.Logger) *BillServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillServer{svc: svc, logger: logger}
}

func (s *BillServer) GetBill(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	doc, err := s.svc.Get(ctx, req.GetValue())
	if err != nil {
		return nil, err
	}
	out, err := toStruct(doc)
	if err != nil {
		s.logger.Error("failed to encode bill", "upload_id", doc.UploadID, "error", err)
		return nil, status.Errorf(codes.Internal, "encode bill: %v", err)
	}
	return out, nil
}

func (s *BillServer) FindBills(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	f := req.GetFields()
	docs, err := s.svc.Find(ctx, bills.FindRequest{
		MRN:  f["mrn"].GetStringValue(),
		Name: f["name"].GetStringValue(),
	})
	if err != nil {
		return nil, err
	}
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(docs))}
	for _, d := range docs {
		st, err := toStruct(d)
		if err != nil {
			s.logger.Error("failed to encode bill", "upload_id", d.UploadID, "error", err)
			return nil, status.Errorf(codes.Internal, "encode bill: %v", err)
		}
		out.Values = append(out.Values, structpb.NewStructValue(st))
	}
	return out, nil
}

func (s *BillServer) GetStatistics(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.svc.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out, err := toStruct(st)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode statistics: %v", err)
	}
	return out, nil
}

func (s *BillServer) ExportBill(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	b, err := s.svc.Export(ctx, req.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(b), nil
}

func (s *BillServer) IngestFile(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	res, err := s.svc.IngestFile(ctx, req.GetValue())
	if err != nil {
		return nil, err
	}
	out, err := toStruct(res)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode ingest result: %v", err)
	}
	return out, nil
}
