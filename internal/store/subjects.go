package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taskmate/taskmate/internal/model"
)

// timeLayout is the column encoding for timestamps.
const timeLayout = time.RFC3339Nano

// UpsertSubject inserts or replaces the cached row for a subject.
func (s *Store) UpsertSubject(ctx context.Context, subj *model.Subject) error {
	var calendar sql.NullString
	if subj.Calendar != nil {
		raw, err := json.Marshal(subj.Calendar)
		if err != nil {
			return fmt.Errorf("marshal calendar: %w", err)
		}
		calendar = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO subjects (id, kind, owner, title, status, calendar, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, subj.ID, string(subj.Kind), subj.Owner, subj.Title, string(subj.Status),
		calendar, subj.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upsert subject %s: %w", subj.ID, err)
	}
	return nil
}

// GetSubject returns the cached subject, or a NOT_FOUND error.
func (s *Store) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, owner, title, status, calendar, created_at
		FROM subjects WHERE id = ?
	`, id)

	subj, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("subject %s not in cache", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get subject %s: %w", id, err)
	}
	return subj, nil
}

// ListSubjects returns all cached subjects ordered by creation time, then id.
func (s *Store) ListSubjects(ctx context.Context) ([]*model.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, owner, title, status, calendar, created_at
		FROM subjects ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var out []*model.Subject
	for rows.Next() {
		subj, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("list subjects: %w", err)
		}
		out = append(out, subj)
	}
	return out, rows.Err()
}

// DeleteSubject removes a subject row from the cache. Missing rows are not
// an error: invalidation may race with a refresh that already dropped it.
func (s *Store) DeleteSubject(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subject %s: %w", id, err)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSubject(sc scanner) (*model.Subject, error) {
	var (
		subj      model.Subject
		kind      string
		status    string
		calendar  sql.NullString
		createdAt string
	)
	if err := sc.Scan(&subj.ID, &kind, &subj.Owner, &subj.Title, &status, &calendar, &createdAt); err != nil {
		return nil, err
	}

	subj.Kind = model.SubjectKind(kind)
	subj.Status = model.SubjectStatus(status)

	if calendar.Valid {
		var cal model.Calendar
		if err := json.Unmarshal([]byte(calendar.String), &cal); err != nil {
			return nil, fmt.Errorf("unmarshal calendar: %w", err)
		}
		subj.Calendar = &cal
	}

	at, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	subj.CreatedAt = at

	return &subj, nil
}
