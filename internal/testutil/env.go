package testutil

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/roach88/pipetree/internal/cache"
	"github.com/roach88/pipetree/internal/compose"
	"github.com/roach88/pipetree/internal/middleware"
	"github.com/roach88/pipetree/internal/runctx"
)

// SequentialIDs generates run ids prefix-1, prefix-2, ...
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix uses "run".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Env is a compose environment with deterministic run ids and entry
// stamps, and a memory cache the test can inspect.
type Env struct {
	*compose.Env
	Clock *DeterministicClock
	IDs   *SequentialIDs
	Cache *cache.Memory
}

// NewEnv returns a fresh deterministic environment with the standard
// middleware.
func NewEnv(t testing.TB) *Env {
	t.Helper()
	mem := cache.NewMemory()
	e := &Env{
		Env:   compose.NewEnv(middleware.Deps{Cache: mem}),
		Clock: NewDeterministicClock(),
		IDs:   NewSequentialIDs("run"),
		Cache: mem,
	}
	e.Runs = runctx.NewStore(runctx.WithClock(e.Clock), runctx.WithIDGenerator(e.IDs))
	return e
}

// FormatTrace renders a run as one tab-separated line per entry in Seq
// order: path, type, status, output or error, and flags in brackets.
func FormatTrace(run *runctx.Run) string {
	var b strings.Builder
	entries := run.Entries()
	for _, p := range run.Paths() {
		e := entries[p]
		fmt.Fprintf(&b, "%s\t%s\t%s", e.Path, e.Type, e.Status)
		switch e.Status {
		case runctx.StatusDone:
			fmt.Fprintf(&b, "\t%v", e.Output)
		case runctx.StatusError:
			b.WriteString("\t" + e.Error)
		}
		if len(e.Flags) > 0 {
			b.WriteString("\t[" + strings.Join(e.Flags, ",") + "]")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
