package middleware

import (
	"context"

	"github.com/roach88/pipetree/internal/runctx"
)

// FlagSkipped marks entries whose run logic did not execute.
const FlagSkipped = "skipped"

type skipped struct{}

// Skipped is returned in place of an output when a step is skipped and no
// previous run recorded one.
var Skipped any = skipped{}

// IsSkipped reports whether v is the Skipped sentinel.
func IsSkipped(v any) bool {
	_, ok := v.(skipped)
	return ok
}

// Skip consults the run's skip plan. Reused steps return the previous
// run's output; skipped steps return Skipped. Both are flagged on the
// entry and never reach next.
func Skip(_ Owner, next Next) Next {
	return func(ctx context.Context, in runctx.Input) (any, error) {
		f, ok := runctx.FromContext(ctx)
		if !ok {
			return next(ctx, in)
		}

		switch d, prev := f.Run.Decide(f.Path); d {
		case runctx.DecideReuse:
			_ = f.Run.Annotate(f.Path, FlagSkipped)
			return prev, nil
		case runctx.DecideSkip:
			_ = f.Run.Annotate(f.Path, FlagSkipped)
			return Skipped, nil
		}

		out, err := next(ctx, in)
		if err == nil {
			f.Run.Finished(f.Path)
		}
		return out, err
	}
}
