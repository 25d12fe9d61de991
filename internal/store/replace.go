package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/taskmate/taskmate/internal/model"
)

// ReplaceSubjects swaps the subjects view for the authoritative rows in
// one transaction. Used by view refresh; per-row edits go through the
// upsert methods.
func (s *Store) ReplaceSubjects(ctx context.Context, subjects []*model.Subject) error {
	return s.replace(ctx, "subjects", len(subjects), func(tx *sql.Tx, i int) error {
		subj := subjects[i]
		var calendar sql.NullString
		if subj.Calendar != nil {
			raw, err := json.Marshal(subj.Calendar)
			if err != nil {
				return fmt.Errorf("marshal calendar: %w", err)
			}
			calendar = sql.NullString{String: string(raw), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO subjects (id, kind, owner, title, status, calendar, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, subj.ID, string(subj.Kind), subj.Owner, subj.Title, string(subj.Status),
			calendar, subj.CreatedAt.UTC().Format(timeLayout))
		return err
	})
}

// ReplaceEngagements swaps the engagements view for the authoritative rows.
func (s *Store) ReplaceEngagements(ctx context.Context, engagements []*model.Engagement) error {
	return s.replace(ctx, "engagements", len(engagements), func(tx *sql.Tx, i int) error {
		eng := engagements[i]
		var (
			slotDay     sql.NullString
			slotStart   sql.NullInt64
			slotEnd     sql.NullInt64
			completedAt sql.NullString
		)
		if eng.Slot != nil {
			slotDay = sql.NullString{String: eng.Slot.Day.String(), Valid: true}
			slotStart = sql.NullInt64{Int64: int64(eng.Slot.Slot.Start), Valid: true}
			slotEnd = sql.NullInt64{Int64: int64(eng.Slot.Slot.End), Valid: true}
		}
		if eng.CompletedAt != nil {
			completedAt = sql.NullString{String: eng.CompletedAt.UTC().Format(timeLayout), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO engagements
				(id, subject_id, actor, status, slot_day, slot_start, slot_end, note, created_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, eng.ID, eng.SubjectID, eng.Actor, string(eng.Status),
			slotDay, slotStart, slotEnd, eng.Note,
			eng.CreatedAt.UTC().Format(timeLayout), completedAt)
		return err
	})
}

// ReplaceNotifications swaps the notifications view for the authoritative rows.
func (s *Store) ReplaceNotifications(ctx context.Context, notifications []*model.Notification) error {
	return s.replace(ctx, "notifications", len(notifications), func(tx *sql.Tx, i int) error {
		n := notifications[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notifications (id, kind, recipient, subject_id, actor_ref, is_read, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, n.ID, string(n.Kind), n.Recipient, n.SubjectID, n.ActorRef,
			boolToInt(n.IsRead), n.CreatedAt.UTC().Format(timeLayout))
		return err
	})
}

func (s *Store) replace(ctx context.Context, table string, n int, insert func(*sql.Tx, int) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("replace %s: %w", table, err)
	}
	for i := 0; i < n; i++ {
		if err := insert(tx, i); err != nil {
			return fmt.Errorf("replace %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace %s: %w", table, err)
	}
	return nil
}
