package runctx

import (
	"slices"
	"sync"
)

// Store is the registry of every run recorded in a process.
type Store struct {
	mu    sync.Mutex
	runs  map[string]*Run
	order []string
	gen   IDGenerator
	clock Sequencer
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator sets the run id generator. Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) StoreOption {
	return func(s *Store) {
		s.gen = g
	}
}

// WithClock sets the logical clock used to stamp entries.
func WithClock(c Sequencer) StoreOption {
	return func(s *Store) {
		s.clock = c
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		runs:  make(map[string]*Run),
		gen:   UUIDv7Generator{},
		clock: NewClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultStore = NewStore()

// Default returns the process-wide store.
func Default() *Store {
	return defaultStore
}

// Begin opens a new run for the type-qualified name.
func (s *Store) Begin(name string) *Run {
	r := newRun(s.gen.Generate(), name, s.clock)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.Key()] = r
	s.order = append(s.order, r.Key())
	return r
}

// Restore registers a run rebuilt from persisted entries.
func (s *Store) Restore(id, name string, entries []Entry) *Run {
	r := newRun(id, name, s.clock)
	r.restore(entries)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.Key()]; !ok {
		s.order = append(s.order, r.Key())
	}
	s.runs[r.Key()] = r
	return r
}

// Run returns the run stored under key ("name|id").
func (s *Store) Run(key string) (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[key]
	return r, ok
}

// Runs returns every run in the order they began.
func (s *Store) Runs() []*Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Run, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.runs[k])
	}
	return out
}

// AllContexts returns every run's entries keyed by "name|id", then path.
func (s *Store) AllContexts() map[string]map[string]Entry {
	out := make(map[string]map[string]Entry)
	for _, r := range s.Runs() {
		out[r.Key()] = r.Entries()
	}
	return out
}

// AllContextKeys lists "name|id" for every run followed by its
// "name|id|path" sub-keys in entry order.
func (s *Store) AllContextKeys() []string {
	var keys []string
	for _, r := range s.Runs() {
		keys = append(keys, r.Key())
		for _, p := range r.Paths() {
			keys = append(keys, r.Key()+"|"+p)
		}
	}
	return keys
}

// Len returns the number of stored runs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Reset forgets every run.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = make(map[string]*Run)
	s.order = slices.Delete(s.order, 0, len(s.order))
}
