package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/pipetree/internal/runctx"
)

const tracerName = "github.com/roach88/pipetree/middleware"

// Span returns a factory that opens an OpenTelemetry span per invocation.
// A nil tracer uses the global provider.
func Span(tracer trace.Tracer) Factory {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return func(owner Owner, next Next) Next {
		return func(ctx context.Context, in runctx.Input) (any, error) {
			attrs := []attribute.KeyValue{
				attribute.String("pipetree.type", owner.TypeName()),
				attribute.Int("pipetree.args", len(in.Args)),
			}
			if f, ok := runctx.FromContext(ctx); ok {
				attrs = append(attrs,
					attribute.String("pipetree.path", f.Path),
					attribute.String("pipetree.run_id", f.Run.ID),
				)
			}
			ctx, span := tracer.Start(ctx, owner.TypeName(), trace.WithAttributes(attrs...))
			defer span.End()

			out, err := next(ctx, in)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			span.SetAttributes(attribute.Bool("pipetree.skipped", IsSkipped(out)))
			return out, nil
		}
	}
}
