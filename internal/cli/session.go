package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/pipetree/internal/cache"
	"github.com/roach88/pipetree/internal/compose"
	"github.com/roach88/pipetree/internal/logging"
	"github.com/roach88/pipetree/internal/middleware"
	"github.com/roach88/pipetree/internal/runctx"
	"github.com/roach88/pipetree/internal/store"
)

// session is the environment one command runs in: the configured cache,
// middleware sections and, when a database is given, trace persistence.
type session struct {
	env     *compose.Env
	traces  *store.Store
	closers []io.Closer
}

func openSession(opts *RootOptions, database string, ids runctx.IDGenerator) (*session, error) {
	s := &session{}

	cacheStore, closer, err := cache.Open(opts.Settings.CacheConfig())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open cache", err)
	}
	s.closers = append(s.closers, closer)

	s.env = compose.NewEnv(middleware.Deps{
		Cache:  cacheStore,
		Logger: logging.New("middleware"),
	})
	s.env.Logger = logging.New("compose")
	opts.Settings.ApplySections(s.env.Middleware)
	if ids != nil {
		s.env.Runs = runctx.NewStore(runctx.WithIDGenerator(ids))
	}

	if database == "" {
		database = opts.Settings.Trace.Database
	}
	if database != "" {
		st, err := store.Open(database)
		if err != nil {
			s.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		s.traces = st
		s.env.Persister = st
		s.closers = append(s.closers, st)
	}
	return s, nil
}

// Close releases everything the session opened, newest first.
func (s *session) Close() {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Error("error closing session", "error", err)
	}
}
