package store

import (
	"context"
	"fmt"
	"time"

	"github.com/taskmate/taskmate/internal/model"
)

// UpsertNotification inserts or replaces the cached row for a notification.
func (s *Store) UpsertNotification(ctx context.Context, n *model.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO notifications (id, kind, recipient, subject_id, actor_ref, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, string(n.Kind), n.Recipient, n.SubjectID, n.ActorRef,
		boolToInt(n.IsRead), n.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upsert notification %s: %w", n.ID, err)
	}
	return nil
}

// ListNotifications returns cached notifications ordered newest first.
func (s *Store) ListNotifications(ctx context.Context) ([]*model.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, recipient, subject_id, actor_ref, is_read, created_at
		FROM notifications ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("list notifications: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flips the cached read flag for one notification.
// Only that row changes; the operation never touches its neighbours.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	if affected == 0 {
		return model.NewNotFoundError("notification %s not in cache", id)
	}
	return nil
}

// DeleteNotification removes a notification row from the cache. Missing
// rows are not an error: a refresh may already have dropped it.
func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete notification %s: %w", id, err)
	}
	return nil
}

func scanNotification(sc scanner) (*model.Notification, error) {
	var (
		n         model.Notification
		kind      string
		isRead    int
		createdAt string
	)
	if err := sc.Scan(&n.ID, &kind, &n.Recipient, &n.SubjectID, &n.ActorRef, &isRead, &createdAt); err != nil {
		return nil, err
	}

	n.Kind = model.NotificationKind(kind)
	n.IsRead = isRead != 0

	at, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	n.CreatedAt = at

	return &n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
