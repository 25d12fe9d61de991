package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskmate/taskmate/internal/model"
)

// UpsertEngagement inserts or replaces the cached row for an engagement.
func (s *Store) UpsertEngagement(ctx context.Context, eng *model.Engagement) error {
	var (
		slotDay   sql.NullString
		slotStart sql.NullInt64
		slotEnd   sql.NullInt64
	)
	if eng.Slot != nil {
		slotDay = sql.NullString{String: eng.Slot.Day.String(), Valid: true}
		slotStart = sql.NullInt64{Int64: int64(eng.Slot.Slot.Start), Valid: true}
		slotEnd = sql.NullInt64{Int64: int64(eng.Slot.Slot.End), Valid: true}
	}
	var completedAt sql.NullString
	if eng.CompletedAt != nil {
		completedAt = sql.NullString{String: eng.CompletedAt.UTC().Format(timeLayout), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO engagements
			(id, subject_id, actor, status, slot_day, slot_start, slot_end, note, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, eng.ID, eng.SubjectID, eng.Actor, string(eng.Status),
		slotDay, slotStart, slotEnd, eng.Note,
		eng.CreatedAt.UTC().Format(timeLayout), completedAt)
	if err != nil {
		return fmt.Errorf("upsert engagement %s: %w", eng.ID, err)
	}
	return nil
}

// GetEngagement returns the cached engagement, or a NOT_FOUND error.
func (s *Store) GetEngagement(ctx context.Context, id string) (*model.Engagement, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, actor, status, slot_day, slot_start, slot_end, note, created_at, completed_at
		FROM engagements WHERE id = ?
	`, id)

	eng, err := scanEngagement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("engagement %s not in cache", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get engagement %s: %w", id, err)
	}
	return eng, nil
}

// ListEngagements returns cached engagements ordered by creation time, then
// id. A non-empty subjectID restricts the result to that subject.
func (s *Store) ListEngagements(ctx context.Context, subjectID string) ([]*model.Engagement, error) {
	query := `
		SELECT id, subject_id, actor, status, slot_day, slot_start, slot_end, note, created_at, completed_at
		FROM engagements`
	var args []any
	if subjectID != "" {
		query += ` WHERE subject_id = ?`
		args = append(args, subjectID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list engagements: %w", err)
	}
	defer rows.Close()

	var out []*model.Engagement
	for rows.Next() {
		eng, err := scanEngagement(rows)
		if err != nil {
			return nil, fmt.Errorf("list engagements: %w", err)
		}
		out = append(out, eng)
	}
	return out, rows.Err()
}

func scanEngagement(sc scanner) (*model.Engagement, error) {
	var (
		eng         model.Engagement
		status      string
		slotDay     sql.NullString
		slotStart   sql.NullInt64
		slotEnd     sql.NullInt64
		createdAt   string
		completedAt sql.NullString
	)
	if err := sc.Scan(&eng.ID, &eng.SubjectID, &eng.Actor, &status,
		&slotDay, &slotStart, &slotEnd, &eng.Note, &createdAt, &completedAt); err != nil {
		return nil, err
	}

	eng.Status = model.EngagementStatus(status)

	if slotDay.Valid {
		day, err := model.ParseDay(slotDay.String)
		if err != nil {
			return nil, fmt.Errorf("parse slot_day: %w", err)
		}
		eng.Slot = &model.SlotRef{
			Day:  day,
			Slot: model.Slot{Start: int(slotStart.Int64), End: int(slotEnd.Int64)},
		}
	}

	at, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	eng.CreatedAt = at

	if completedAt.Valid {
		done, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		eng.CompletedAt = &done
	}

	return &eng, nil
}
