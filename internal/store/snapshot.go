package store

import (
	"context"
	"fmt"
	"strings"
)

// Snapshot is a verbatim capture of one or more view tables, taken before
// an optimistic mutation. Restoring a snapshot puts the captured views
// back exactly as they were, including rows the mutation never touched.
type Snapshot struct {
	tables []tableSnapshot
}

type tableSnapshot struct {
	name    string
	columns []string
	rows    [][]any
}

// Snapshot captures the current rows of the given views. With no views it
// captures all of them.
func (s *Store) Snapshot(ctx context.Context, views ...View) (*Snapshot, error) {
	if len(views) == 0 {
		views = AllViews
	}

	snap := &Snapshot{}
	for _, view := range views {
		table, err := view.table()
		if err != nil {
			return nil, err
		}
		ts, err := s.captureTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", view, err)
		}
		snap.tables = append(snap.tables, ts)
	}
	return snap, nil
}

// Restore replays a snapshot: each captured view is cleared and its rows
// reinserted in a single transaction. State the snapshot did not capture
// is left alone.
func (s *Store) Restore(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	defer tx.Rollback()

	for _, ts := range snap.tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+ts.name); err != nil {
			return fmt.Errorf("restore %s: %w", ts.name, err)
		}
		if len(ts.rows) == 0 {
			continue
		}

		placeholders := strings.Repeat("?, ", len(ts.columns))
		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			ts.name,
			strings.Join(ts.columns, ", "),
			strings.TrimSuffix(placeholders, ", "))
		for _, row := range ts.rows {
			if _, err := tx.ExecContext(ctx, insert, row...); err != nil {
				return fmt.Errorf("restore %s: %w", ts.name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	return nil
}

func (s *Store) captureTable(ctx context.Context, table string) (tableSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return tableSnapshot{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return tableSnapshot{}, err
	}

	ts := tableSnapshot{name: table, columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return tableSnapshot{}, err
		}
		// []byte scan results alias driver memory; copy before the next row.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
		}
		ts.rows = append(ts.rows, values)
	}
	return ts, rows.Err()
}
