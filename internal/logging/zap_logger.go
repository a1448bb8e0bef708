package logging

import (
	"context"

	"github.com/dkotelnikov/txgate/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxFieldsKey struct{}

// ZapLogger wraps zap and carries structured fields inside context.Context,
// so that request- and worker-scoped fields survive across layer boundaries.
type ZapLogger struct {
	logger *zap.Logger
}

func NewZapLogger(cfg *config.Config) (*ZapLogger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.Level(cfg.LogLevel))

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	return &ZapLogger{logger: logger}, nil
}

// WithContextFields returns a context that accumulates the given fields on top
// of any fields already attached to ctx.
func (l *ZapLogger) WithContextFields(ctx context.Context, fields ...zap.Field) context.Context {
	existing, _ := ctx.Value(ctxFieldsKey{}).([]zap.Field)

	merged := make([]zap.Field, 0, len(existing)+len(fields))
	merged = append(merged, existing...)
	merged = append(merged, fields...)

	return context.WithValue(ctx, ctxFieldsKey{}, merged)
}

func (l *ZapLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logger.Debug(msg, l.withCtx(ctx, fields)...)
}

func (l *ZapLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logger.Info(msg, l.withCtx(ctx, fields)...)
}

func (l *ZapLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logger.Warn(msg, l.withCtx(ctx, fields)...)
}

func (l *ZapLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logger.Error(msg, l.withCtx(ctx, fields)...)
}

func (l *ZapLogger) withCtx(ctx context.Context, fields []zap.Field) []zap.Field {
	ctxFields, _ := ctx.Value(ctxFieldsKey{}).([]zap.Field)
	if len(ctxFields) == 0 {
		return fields
	}

	merged := make([]zap.Field, 0, len(ctxFields)+len(fields))
	merged = append(merged, ctxFields...)
	merged = append(merged, fields...)

	return merged
}
