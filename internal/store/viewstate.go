package store

import (
	"context"
	"fmt"
)

// View names a cached dataset that is refreshed and invalidated as a unit.
type View string

const (
	ViewSubjects      View = "subjects"
	ViewEngagements   View = "engagements"
	ViewNotifications View = "notifications"
)

// AllViews lists every view in a fixed order.
var AllViews = []View{ViewSubjects, ViewEngagements, ViewNotifications}

// table maps a view to its backing table name.
func (v View) table() (string, error) {
	switch v {
	case ViewSubjects, ViewEngagements, ViewNotifications:
		return string(v), nil
	default:
		return "", fmt.Errorf("unknown view %q", v)
	}
}

// Generation returns the refresh generation recorded for a view.
// Views never refreshed report generation zero.
func (s *Store) Generation(ctx context.Context, view View) (int64, error) {
	var gen int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT generation FROM view_state WHERE view = ?), 0)`,
		string(view)).Scan(&gen)
	if err != nil {
		return 0, fmt.Errorf("generation for %s: %w", view, err)
	}
	return gen, nil
}

// BumpGeneration advances a view's generation and returns the new value.
// The coordinator stamps each refresh request with the value current when
// the request was issued; responses carrying an older stamp are stale.
func (s *Store) BumpGeneration(ctx context.Context, view View) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO view_state (view, generation) VALUES (?, 1)
		ON CONFLICT(view) DO UPDATE SET generation = generation + 1
	`, string(view))
	if err != nil {
		return 0, fmt.Errorf("bump generation for %s: %w", view, err)
	}
	return s.Generation(ctx, view)
}
