package middleware

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/pipetree/internal/cache"
	"github.com/roach88/pipetree/internal/ir"
	"github.com/roach88/pipetree/internal/runctx"
)

// FlagCached marks entries answered from the cache store.
const FlagCached = "cached"

// Caching returns a factory that short-circuits invocations whose
// fingerprint (type, definition, input) is already in store. Concurrent
// misses on the same key run the body once. Invocations that cannot be
// fingerprinted bypass the cache.
func Caching(store cache.Store) Factory {
	var group singleflight.Group

	return func(owner Owner, next Next) Next {
		return func(ctx context.Context, in runctx.Input) (any, error) {
			key, err := cacheKey(owner, in)
			if err != nil {
				slog.Debug("cache bypassed", "type", owner.TypeName(), "reason", err)
				return next(ctx, in)
			}

			if v, ok, err := store.Get(ctx, key); err != nil {
				slog.Warn("cache get failed", "type", owner.TypeName(), "key", key, "error", err)
			} else if ok {
				markCached(ctx)
				return v, nil
			}

			v, err, shared := group.Do(key, func() (any, error) {
				out, err := next(ctx, in)
				if err != nil {
					return nil, err
				}
				if IsSkipped(out) {
					return out, nil
				}
				if err := store.Set(ctx, key, out); err != nil {
					slog.Warn("cache set failed", "type", owner.TypeName(), "key", key, "error", err)
				}
				return out, nil
			})
			if err != nil {
				return nil, err
			}
			if shared {
				slog.Debug("cache result shared", "type", owner.TypeName(), "key", key)
			}
			return v, nil
		}
	}
}

func cacheKey(owner Owner, in runctx.Input) (string, error) {
	def, err := owner.Fingerprint()
	if err != nil {
		return "", err
	}
	return ir.CacheKey(owner.TypeName(), def, map[string]any{
		"args":   in.Args,
		"kwargs": in.Kwargs,
	})
}

func markCached(ctx context.Context) {
	if f, ok := runctx.FromContext(ctx); ok {
		_ = f.Run.Annotate(f.Path, FlagCached)
	}
}
