// Package config loads pipetree settings from YAML or CUE files.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pipetree/internal/cache"
	"github.com/roach88/pipetree/internal/logging"
	"github.com/roach88/pipetree/internal/middleware"
)

// Settings is the full configuration.
type Settings struct {
	Middleware MiddlewareSettings `json:"middleware" yaml:"middleware"`
	Cache      CacheSettings      `json:"cache" yaml:"cache"`
	Trace      TraceSettings      `json:"trace" yaml:"trace"`
	Log        LogSettings        `json:"log" yaml:"log"`
}

// MiddlewareSettings adds or replaces middleware sections.
type MiddlewareSettings struct {
	Sections map[string][]string `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// CacheSettings selects the store behind the caching middleware.
type CacheSettings struct {
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// TraceSettings configures run persistence. An empty database disables it.
type TraceSettings struct {
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
}

// LogSettings configures the default logger.
type LogSettings struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Default returns the built-in settings: the standard sections, an
// in-memory cache, no trace persistence and info-level text logs.
func Default() Settings {
	return Settings{
		Middleware: MiddlewareSettings{Sections: middleware.DefaultSections()},
		Cache:      CacheSettings{Backend: cache.BackendMemory},
		Log:        LogSettings{Level: "info", Format: "text"},
	}
}

// Load reads a .yaml, .yml or .cue file and layers it over Default.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var file Settings
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		file, err = decodeYAML(data)
	case ".cue":
		file, err = decodeCUE(path, data)
	default:
		return Settings{}, fmt.Errorf("read settings: unsupported extension %q", ext)
	}
	if err != nil {
		return Settings{}, err
	}

	s := Default().merge(file)
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

func decodeYAML(data []byte) (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode yaml settings: %w", err)
	}
	return s, nil
}

func decodeCUE(path string, data []byte) (Settings, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return Settings{}, fmt.Errorf("compile %s: %w", path, err)
	}
	if err := v.Validate(); err != nil {
		return Settings{}, fmt.Errorf("validate %s: %w", path, err)
	}
	var s Settings
	if err := v.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, nil
}

// merge layers non-empty fields of over onto s. Sections are merged by
// name.
func (s Settings) merge(over Settings) Settings {
	out := s
	out.Middleware.Sections = maps.Clone(s.Middleware.Sections)
	if out.Middleware.Sections == nil {
		out.Middleware.Sections = make(map[string][]string)
	}
	maps.Copy(out.Middleware.Sections, over.Middleware.Sections)

	if over.Cache.Backend != "" {
		out.Cache.Backend = over.Cache.Backend
	}
	if over.Cache.Path != "" {
		out.Cache.Path = over.Cache.Path
	}
	if over.Trace.Database != "" {
		out.Trace.Database = over.Trace.Database
	}
	if over.Log.Level != "" {
		out.Log.Level = over.Log.Level
	}
	if over.Log.Format != "" {
		out.Log.Format = over.Log.Format
	}
	return out
}

var knownMiddleware = []string{
	middleware.NameTracing, middleware.NameCaching, middleware.NameSkip,
	middleware.NameLogging, middleware.NameMetrics, middleware.NameSpan,
}

// Validate checks backend, format, level and section member names.
func (s Settings) Validate() error {
	var errs []error
	switch s.Cache.Backend {
	case cache.BackendMemory, cache.BackendSQLite, cache.BackendBadger:
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", s.Cache.Backend))
	}
	if s.Cache.Backend == cache.BackendSQLite && s.Cache.Path == "" {
		errs = append(errs, errors.New("sqlite cache requires a path"))
	}
	if s.Log.Format != "text" && s.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", s.Log.Format))
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	for _, name := range slices.Sorted(maps.Keys(s.Middleware.Sections)) {
		for _, m := range s.Middleware.Sections[name] {
			if !slices.Contains(knownMiddleware, m) {
				errs = append(errs, fmt.Errorf("section %s: unknown middleware %q", name, m))
			}
		}
	}
	return errors.Join(errs...)
}

// CacheConfig returns the cache.Open configuration.
func (s Settings) CacheConfig() cache.Config {
	return cache.Config{
		Backend: s.Cache.Backend,
		Path:    s.Cache.Path,
		Logger:  logging.New("cache"),
	}
}

// ApplySections installs the configured sections into reg.
func (s Settings) ApplySections(reg *middleware.Registry) {
	for name, members := range s.Middleware.Sections {
		reg.SetSection(name, members)
	}
}
