package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The bill service is declared over protobuf well-known types, so no generated stubs are needed.
const (
	BillServiceName = "bills.v1.BillService"

	BillService_GetBill_FullMethodName       = "/bills.v1.BillService/GetBill"
	BillService_FindBills_FullMethodName     = "/bills.v1.BillService/FindBills"
	BillService_GetStatistics_FullMethodName = "/bills.v1.BillService/GetStatistics"
	BillService_ExportBill_FullMethodName    = "/bills.v1.BillService/ExportBill"
	BillService_IngestFile_FullMethodName    = "/bills.v1.BillService/IngestFile"
)

// BillServiceServer is the server API for the bill service.
type BillServiceServer interface {
	// GetBill takes an upload id and returns the bill document as a JSON object.
	GetBill(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// FindBills takes {"mrn": ...} or {"name": ...}.
	FindBills(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	GetStatistics(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// ExportBill returns XLSX bytes.
	ExportBill(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	// IngestFile takes a server-side path and queues it.
	IngestFile(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func RegisterBillServiceServer(s grpc.ServiceRegistrar, srv BillServiceServer) {
	s.RegisterService(&BillService_ServiceDesc, srv)
}

func _BillService_GetBill_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BillServiceServer).GetBill(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: BillService_GetBill_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BillServiceServer).GetBill(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _BillService_FindBills_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BillServiceServer).FindBills(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: BillService_FindBills_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BillServiceServer).FindBills(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _BillService_GetStatistics_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BillServiceServer).GetStatistics(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: BillService_GetStatistics_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BillServiceServer).GetStatistics(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _BillService_ExportBill_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BillServiceServer).ExportBill(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: BillService_ExportBill_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BillServiceServer).ExportBill(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _BillService_IngestFile_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BillServiceServer).IngestFile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: BillService_IngestFile_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BillServiceServer).IngestFile(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// BillService_ServiceDesc is the grpc.ServiceDesc for the bill service.
var BillService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: BillServiceName,
	HandlerType: (*BillServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBill", Handler: _BillService_GetBill_Handler},
		{MethodName: "FindBills", Handler: _BillService_FindBills_Handler},
		{MethodName: "GetStatistics", Handler: _BillService_GetStatistics_Handler},
		{MethodName: "ExportBill", Handler: _BillService_ExportBill_Handler},
		{MethodName: "IngestFile", Handler: _BillService_IngestFile_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bills/v1/bills.proto",
}

// BillServiceClient is the client API for the bill service.
type BillServiceClient interface {
	GetBill(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	FindBills(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error)
	GetStatistics(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	ExportBill(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	IngestFile(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type billServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBillServiceClient(cc grpc.ClientConnInterface) BillServiceClient {
	return &billServiceClient{cc}
}

func (c *billServiceClient) GetBill(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, BillService_GetBill_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *billServiceClient) FindBills(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, BillService_FindBills_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *billServiceClient) GetStatistics(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, BillService_GetStatistics_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *billServiceClient) ExportBill(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, BillService_ExportBill_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *billServiceClient) IngestFile(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, BillService_IngestFile_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
