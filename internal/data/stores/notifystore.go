// Package stores holds the SQLite-backed implementations of the core store
// interfaces.
package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/data/db"
)

// NotifyStore implements notify.Store using SQLite.
type NotifyStore struct {
	db *db.DB
}

var _ notify.Store = (*NotifyStore)(nil)

// NewNotifyStore creates a new SQLite-backed notification store.
func NewNotifyStore(db *db.DB) *NotifyStore {
	return &NotifyStore{db: db}
}

// Save persists a notification record. Saving the same ID twice keeps the
// first copy.
func (s *NotifyStore) Save(ctx context.Context, r notify.Record) error {
	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT OR IGNORE INTO notifications (id, title, message, level, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Message, string(r.Level), r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns notifications newest first. A limit <= 0 returns everything.
func (s *NotifyStore) List(ctx context.Context, limit int) ([]notify.Record, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, title, message, level, created_at FROM notifications
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := []notify.Record{}
	for rows.Next() {
		var (
			r       notify.Record
			level   string
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Message, &level, &created); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		r.Level = notify.Level(level)
		r.CreatedAt = time.Unix(0, created)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return result, nil
}

// Clear deletes all notifications.
func (s *NotifyStore) Clear(ctx context.Context) error {
	if _, err := s.db.Conn().ExecContext(ctx, `DELETE FROM notifications`); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

// Count returns the total number of notifications.
func (s *NotifyStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}
