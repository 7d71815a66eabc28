package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyUploadID  contextKey = "upload_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithUploadID tags the context with the bill being processed.
func WithUploadID(ctx context.Context, uploadID string) context.Context {
	return context.WithValue(ctx, ContextKeyUploadID, uploadID)
}

// UploadIDFromContext extracts the upload ID from context
func UploadIDFromContext(ctx context.Context) string {
	if uploadID, ok := ctx.Value(ContextKeyUploadID).(string); ok {
		return uploadID
	}
	return ""
}

// WithTimeout creates a context with the specified timeout.
// A non-positive timeout returns a cancelable child without a deadline.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
