package compose

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/pipetree/internal/runctx"
)

// FanOut invokes the child under edge once per input on up to workers
// goroutines and returns the outputs in input order.
//
// Each call runs on its own clone of owner, so overrides and versions are
// never shared between workers. Paths edge, edge[1], ... are reserved in
// input order before any call starts; each call records into a forked view
// of the run that is merged back when it returns. The first error cancels
// the context of calls still running and is returned.
func FanOut(ctx context.Context, owner *Composable, edge string, inputs []runctx.Input, workers int) ([]any, error) {
	if _, err := owner.Node(edge); err != nil {
		return nil, err
	}

	clones := make([]*Composable, len(inputs))
	children := make([]*Composable, len(inputs))
	for i := range inputs {
		clones[i] = owner.Clone()
		child, err := clones[i].Node(edge)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	frame, traced := runctx.FromContext(ctx)
	var paths []string
	if traced {
		paths = frame.Run.Reserve(frame.Path, edge, len(inputs))
	}

	results := make([]any, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range inputs {
		g.Go(func() error {
			callCtx := withActive(gctx, clones[i])
			if traced {
				view := frame.Run.Fork()
				defer frame.Run.Merge(view)
				callCtx = runctx.WithFrame(callCtx, view, paths[i])
			}
			out, err := children[i].execute(callCtx, inputs[i], &invocation{})
			if err != nil {
				return fmt.Errorf("fan-out %s[%d]: %w", edge, i, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
