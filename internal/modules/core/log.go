package core

import (
	"context"

	"go.uber.org/zap"
)

var logger = zap.NewNop()

// SetLogger swaps the package logger. Called once from the composition root.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

func LogError(ctx context.Context, msg string, fields ...zap.Field) {
	logger.Error(msg, withCorrelationID(ctx, fields)...)
}

func LogWarn(ctx context.Context, msg string, fields ...zap.Field) {
	logger.Warn(msg, withCorrelationID(ctx, fields)...)
}

func withCorrelationID(ctx context.Context, fields []zap.Field) []zap.Field {
	if correlationID, ok := ctx.Value(CorrelationIDContextKey).(string); ok && correlationID != "" {
		fields = append(fields, zap.String("correlation_id", correlationID))
	}
	return fields
}
