// Package cache provides the key-value stores behind the caching
// middleware.
//
// Backends:
//   - memory: process-local map, values returned as stored
//   - sqlite: the cache table of the trace database
//   - badger: an embedded BadgerDB directory, or an in-memory instance
//
// Persistent backends encode values as YAML. Integers come back as int,
// floats as float64, lists as []any and maps as map[string]any; struct
// values come back as maps.
package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/pipetree/internal/store"
)

// Store is the contract the caching middleware relies on.
type Store interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Clearer is implemented by stores that can drop every entry.
type Clearer interface {
	Clear(ctx context.Context) (int64, error)
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Path    string
	Logger  *slog.Logger
}

// Open builds the configured store. The returned closer releases any
// resources the backend opened and is never nil.
func Open(cfg Config) (Store, io.Closer, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(), nopCloser{}, nil
	case BackendSQLite:
		if cfg.Path == "" {
			return nil, nil, fmt.Errorf("open cache: sqlite backend requires a path")
		}
		db, err := store.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		return NewSQLite(db), db, nil
	case BackendBadger:
		bcfg := DefaultBadgerConfig()
		if cfg.Path == "" {
			bcfg = InMemoryBadgerConfig()
		}
		bcfg.Path = cfg.Path
		bcfg.Logger = cfg.Logger
		b, err := OpenBadger(bcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		return b, b, nil
	}
	return nil, nil, fmt.Errorf("open cache: unknown backend %q", cfg.Backend)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
