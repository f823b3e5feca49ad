// Package extensions provides optional fixture extensions for logging and
// scope diagnostics.
package extensions

import (
	"context"
	"log/slog"
	"time"

	fixture "github.com/fixture-fn/fixture-go"
)

// LoggingExtension logs every fixture computation. Cached reads are not
// logged because the extension chain only wraps cache misses.
type LoggingExtension struct {
	fixture.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a logging extension writing through the given
// slog handler.
func NewLoggingExtension(handler slog.Handler) *LoggingExtension {
	return &LoggingExtension{
		BaseExtension: fixture.NewBaseExtension("logging"),
		logger:        slog.New(handler),
	}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *fixture.Operation) (any, error) {
	switch op.Kind {
	case fixture.OpDefine:
		result, err := next()
		if err != nil {
			e.logger.LogAttrs(ctx, slog.LevelError, "fixture definition rejected",
				slog.Any("error", err),
				slog.String("fixture", op.Name),
				slog.String("scope", op.Scope.Path()))
			return result, err
		}
		e.logger.LogAttrs(ctx, slog.LevelDebug, "fixture defined",
			slog.String("fixture", op.Name),
			slog.String("scope", op.Scope.Path()))
		return result, nil
	case fixture.OpSharedEnter, fixture.OpSharedExit:
		result, err := next()
		e.logger.LogAttrs(ctx, slog.LevelDebug, "shared phase transition",
			slog.String("transition", string(op.Kind)),
			slog.String("phase", op.Name),
			slog.String("scope", op.Scope.Path()))
		return result, err
	}

	start := time.Now()
	result, err := next()
	duration := time.Since(start)

	attrs := []any{
		"fixture", op.Name,
		"scope", op.Scope.Path(),
		"run", op.Run.ID(),
		"duration", duration,
	}
	if name := op.Run.TestName(); name != "" {
		attrs = append(attrs, "test", name)
	}

	if err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "fixture computation failed",
			slog.Any("error", err), slog.Group("op", attrs...))
	} else {
		e.logger.LogAttrs(ctx, slog.LevelDebug, "fixture computed",
			slog.Group("op", attrs...))
	}

	return result, err
}
