package middleware

import (
	"context"
	"log/slog"

	"github.com/roach88/pipetree/internal/runctx"
)

// Tracing records the invocation in the active run: a running entry before
// next, done or error after. Errors are returned unchanged. Without an
// active frame the call passes through untraced.
func Tracing(owner Owner, next Next) Next {
	return func(ctx context.Context, in runctx.Input) (any, error) {
		f, ok := runctx.FromContext(ctx)
		if !ok {
			return next(ctx, in)
		}
		if err := f.Run.Begin(f.Path, owner.TypeName(), in); err != nil {
			return nil, err
		}

		out, err := next(ctx, in)
		if err != nil {
			if ferr := f.Run.Fail(f.Path, err); ferr != nil {
				slog.Warn("trace fail not recorded", "path", f.Path, "error", ferr)
			}
			return nil, err
		}

		recorded := out
		if IsSkipped(out) {
			recorded = nil
		}
		if cerr := f.Run.Complete(f.Path, recorded); cerr != nil {
			slog.Warn("trace completion not recorded", "path", f.Path, "error", cerr)
		}
		return out, nil
	}
}
