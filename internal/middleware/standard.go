package middleware

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/pipetree/internal/cache"
)

// Built-in middleware names.
const (
	NameTracing = "tracing"
	NameCaching = "caching"
	NameSkip    = "skip"
	NameLogging = "logging"
	NameMetrics = "metrics"
	NameSpan    = "span"
)

// Built-in section names.
const (
	SectionDefault  = "default"
	SectionCached   = "cached"
	SectionObserved = "observed"
	SectionBare     = "bare"
)

// DefaultSections returns the built-in sections.
func DefaultSections() map[string][]string {
	return map[string][]string{
		SectionDefault:  {NameTracing, NameSkip},
		SectionCached:   {NameTracing, NameCaching, NameSkip},
		SectionObserved: {NameSpan, NameMetrics, NameLogging, NameTracing, NameCaching, NameSkip},
		SectionBare:     {},
	}
}

// Deps are the collaborators of the built-in middleware. Zero fields get
// working defaults: a memory cache, the default logger, metrics on a
// private registry and the global tracer.
type Deps struct {
	Cache   cache.Store
	Logger  *slog.Logger
	Metrics *Metrics
	Tracer  trace.Tracer
}

// Standard returns a registry with every built-in middleware and the
// default sections.
func Standard(deps Deps) *Registry {
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(prometheusRegistry())
	}

	r := NewRegistry()
	r.Register(NameTracing, Tracing)
	r.Register(NameSkip, Skip)
	r.Register(NameCaching, Caching(deps.Cache))
	r.Register(NameLogging, Logging(deps.Logger))
	r.Register(NameMetrics, deps.Metrics.Middleware())
	r.Register(NameSpan, Span(deps.Tracer))
	for name, members := range DefaultSections() {
		r.SetSection(name, members)
	}
	return r
}
