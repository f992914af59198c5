package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/pipetree/internal/ir"
	"github.com/roach88/pipetree/internal/runctx"
)

// RunRecord is the persisted summary of one run.
type RunRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	Definition     any    `json:"definition"`
	DefinitionHash string `json:"definition_hash"`
}

// WriteRun inserts a run and its entries in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency: persisting the same run
// twice keeps the first copy.
//
// The definition is the root's structural dump. It is stored as JSON and
// hashed with ir.DefinitionHash; a dump that cannot be hashed is stored
// with an empty hash.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord, entries []runctx.Entry) error {
	if rec.DefinitionHash == "" && rec.Definition != nil {
		h, err := ir.DefinitionHash(rec.Definition)
		if err != nil {
			slog.Debug("definition not hashable", "run", rec.ID, "error", err)
		}
		rec.DefinitionHash = h
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, name, status, definition, definition_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.Name, rec.Status, marshalValue(rec.Definition), rec.DefinitionHash)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	for _, e := range entries {
		if err := writeEntry(ctx, tx, rec.ID, e); err != nil {
			return fmt.Errorf("write run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func writeEntry(ctx context.Context, tx *sql.Tx, runID string, e runctx.Entry) error {
	flags, err := json.Marshal(e.Flags)
	if err != nil {
		return fmt.Errorf("entry %s: %w", e.Path, err)
	}
	if e.Flags == nil {
		flags = []byte("[]")
	}

	var output, errText any
	if e.Status == runctx.StatusDone {
		output = marshalValue(e.Output)
	}
	if e.Error != "" {
		errText = e.Error
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (run_id, path, type, status, input, output, error, flags, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, path) DO NOTHING
	`, runID, e.Path, e.Type, string(e.Status), marshalValue(e.Input), output, errText, string(flags), e.Seq)
	if err != nil {
		return fmt.Errorf("entry %s: %w", e.Path, err)
	}
	return nil
}

// PersistRun writes a finished run with its root definition.
func (s *Store) PersistRun(ctx context.Context, run *runctx.Run, definition any) error {
	rec := RunRecord{
		ID:         run.ID,
		Name:       run.Name,
		Status:     string(run.Status()),
		Definition: definition,
	}
	entries := run.Entries()
	ordered := make([]runctx.Entry, 0, len(entries))
	for _, p := range run.Paths() {
		ordered = append(ordered, entries[p])
	}
	return s.WriteRun(ctx, rec, ordered)
}

// PruneRuns deletes every run except the keep most recent, with their
// entries, and returns how many runs were removed.
func (s *Store) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE rowid NOT IN (
			SELECT rowid FROM runs ORDER BY rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
