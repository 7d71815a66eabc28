package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/bills-extractor/internal/common"
)

const RequestIDHeader = "x-request-id"

// UnaryLoggingInterceptor tags each call with a request id, taken from metadata when the caller sent one.
func UnaryLoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rid := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(RequestIDHeader); len(v) > 0 {
				rid = v[0]
			}
		}
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, rid)

		start := time.Now()
		resp, err := handler(ctx, req)
		attrs := []any{
			"method", info.FullMethod,
			"request_id", rid,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.Warn("grpc.call.failed", append(attrs, "error", err)...)
		} else {
			logger.Debug("grpc.call.ok", attrs...)
		}
		return resp, err
	}
}
