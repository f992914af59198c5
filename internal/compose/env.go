package compose

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/pipetree/internal/middleware"
	"github.com/roach88/pipetree/internal/runctx"
)

// Persister saves finished runs. *store.Store implements it.
type Persister interface {
	PersistRun(ctx context.Context, run *runctx.Run, definition any) error
}

// Env holds the process-level collaborators of a tree: the run store,
// the middleware registry and an optional trace persister.
type Env struct {
	Runs       *runctx.Store
	Middleware *middleware.Registry
	Persister  Persister
	Logger     *slog.Logger
}

var defaultEnv = sync.OnceValue(func() *Env {
	return &Env{
		Runs:       runctx.Default(),
		Middleware: middleware.Standard(middleware.Deps{}),
	}
})

// DefaultEnv returns the process-wide environment used by instances
// without one.
func DefaultEnv() *Env {
	return defaultEnv()
}

// NewEnv returns an environment with a private run store and the standard
// middleware. Fields may be replaced before use.
func NewEnv(deps middleware.Deps) *Env {
	return &Env{
		Runs:       runctx.NewStore(),
		Middleware: middleware.Standard(deps),
		Logger:     deps.Logger,
	}
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
