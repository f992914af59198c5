package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/pipetree/internal/runctx"
)

// ReadRun returns a run and its entries ordered by seq, then path.
// Returns ErrNotFound if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, []runctx.Entry, error) {
	var (
		rec        RunRecord
		definition string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, definition, definition_hash
		FROM runs
		WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Name, &rec.Status, &definition, &rec.DefinitionHash)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, nil, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return RunRecord{}, nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if rec.Definition, err = unmarshalValue(definition); err != nil {
		return RunRecord{}, nil, fmt.Errorf("read run %s: %w", id, err)
	}

	entries, err := s.readEntries(ctx, id)
	if err != nil {
		return RunRecord{}, nil, err
	}
	return rec, entries, nil
}

func (s *Store) readEntries(ctx context.Context, runID string) ([]runctx.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, type, status, input, output, error, flags, seq
		FROM entries
		WHERE run_id = ?
		ORDER BY seq ASC, path COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []runctx.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (runctx.Entry, error) {
	var (
		e                   runctx.Entry
		status, input, flag string
		output, errText     sql.NullString
	)
	if err := rows.Scan(&e.Path, &e.Type, &status, &input, &output, &errText, &flag, &e.Seq); err != nil {
		return runctx.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Status = runctx.Status(status)
	e.Error = errText.String

	raw, err := unmarshalValue(input)
	if err != nil {
		return runctx.Entry{}, fmt.Errorf("entry %s input: %w", e.Path, err)
	}
	if m, ok := raw.(map[string]any); ok {
		e.Input.Args, _ = m["args"].([]any)
		e.Input.Kwargs, _ = m["kwargs"].(map[string]any)
	}
	if output.Valid {
		v, err := unmarshalValue(output.String)
		if err != nil {
			return runctx.Entry{}, fmt.Errorf("entry %s output: %w", e.Path, err)
		}
		e.Output = v
	}
	if err := json.Unmarshal([]byte(flag), &e.Flags); err != nil {
		return runctx.Entry{}, fmt.Errorf("entry %s flags: %w", e.Path, err)
	}
	if len(e.Flags) == 0 {
		e.Flags = nil
	}
	return e, nil
}

// ListRuns returns run summaries, most recent first. An empty name lists
// every run; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, name string, limit int) ([]RunRecord, error) {
	query := `SELECT id, name, status, definition_hash FROM runs`
	var args []any
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Status, &r.DefinitionHash); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LoadRun reads a persisted run into a runctx store so it can serve as a
// previous run for skipping.
func (s *Store) LoadRun(ctx context.Context, id string, into *runctx.Store) (*runctx.Run, error) {
	rec, entries, err := s.ReadRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return into.Restore(rec.ID, rec.Name, entries), nil
}
