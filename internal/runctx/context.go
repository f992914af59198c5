package runctx

import "context"

type frameKey struct{}

// Frame is the active position of a call stack within a run.
type Frame struct {
	Run  *Run
	Path string
}

// WithFrame returns a context whose active frame is (run, path).
func WithFrame(ctx context.Context, run *Run, path string) context.Context {
	return context.WithValue(ctx, frameKey{}, Frame{Run: run, Path: path})
}

// FromContext returns the active frame, if any.
func FromContext(ctx context.Context) (Frame, bool) {
	f, ok := ctx.Value(frameKey{}).(Frame)
	return f, ok && f.Run != nil
}
