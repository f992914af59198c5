package cache

import (
	"context"

	"github.com/roach88/pipetree/internal/store"
)

// SQLite stores values in the cache table of a trace database.
type SQLite struct {
	db *store.Store
}

// NewSQLite wraps an open store. The caller keeps ownership of db.
func NewSQLite(db *store.Store) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Get(ctx context.Context, key string) (any, bool, error) {
	data, ok, err := s.db.CacheGet(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value any) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	return s.db.CacheSet(ctx, key, data)
}

func (s *SQLite) Clear(ctx context.Context) (int64, error) {
	return s.db.CacheClear(ctx)
}
