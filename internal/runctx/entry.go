package runctx

import (
	"errors"
	"maps"
	"slices"
)

// Status is the lifecycle state of a trace entry.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Input is the recorded call input of a node.
type Input struct {
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// Clone returns a copy with its own slice and map.
func (in Input) Clone() Input {
	out := Input{Args: slices.Clone(in.Args), Kwargs: maps.Clone(in.Kwargs)}
	if out.Args == nil {
		out.Args = []any{}
	}
	if out.Kwargs == nil {
		out.Kwargs = map[string]any{}
	}
	return out
}

// Entry is one node's record within a run.
type Entry struct {
	Path   string `json:"path"`
	Type   string `json:"type,omitempty"`
	Status Status `json:"status"`
	Input  Input  `json:"input"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`

	// Seq orders entries by the moment they began.
	Seq int64 `json:"seq"`

	// Flags carry middleware annotations such as "cached" or "skipped".
	Flags []string `json:"flags,omitempty"`
}

// HasFlag reports whether the entry carries flag.
func (e Entry) HasFlag(flag string) bool {
	return slices.Contains(e.Flags, flag)
}

// Errors returned by Run entry transitions.
var (
	ErrUnknownEntry   = errors.New("no trace entry at path")
	ErrEntryExists    = errors.New("trace entry already exists")
	ErrEntryFinalized = errors.New("trace entry already finalized")
)
