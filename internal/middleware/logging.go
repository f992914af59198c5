package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/pipetree/internal/runctx"
)

// Logging returns a factory that logs each invocation at Debug and each
// failure at Warn.
func Logging(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(owner Owner, next Next) Next {
		return func(ctx context.Context, in runctx.Input) (any, error) {
			path := ""
			if f, ok := runctx.FromContext(ctx); ok {
				path = f.Path
			}
			logger.DebugContext(ctx, "invoke", "type", owner.TypeName(), "path", path)

			start := time.Now()
			out, err := next(ctx, in)
			if err != nil {
				logger.WarnContext(ctx, "invoke failed",
					"type", owner.TypeName(),
					"path", path,
					"duration", time.Since(start),
					"error", err,
				)
				return nil, err
			}
			logger.DebugContext(ctx, "invoke done",
				"type", owner.TypeName(),
				"path", path,
				"duration", time.Since(start),
			)
			return out, nil
		}
	}
}
