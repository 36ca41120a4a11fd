package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyBatchID  contextKey = "batch_id"
	ContextKeyFilename contextKey = "filename"
)

// WithBatchID adds a batch ID to the context
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, ContextKeyBatchID, batchID)
}

// BatchIDFromContext extracts the batch ID from context
func BatchIDFromContext(ctx context.Context) string {
	if batchID, ok := ctx.Value(ContextKeyBatchID).(string); ok {
		return batchID
	}
	return ""
}

// WithFilename adds the file being processed to the context
func WithFilename(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKeyFilename, name)
}

// FilenameFromContext extracts the file being processed from context
func FilenameFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(ContextKeyFilename).(string); ok {
		return name
	}
	return ""
}
