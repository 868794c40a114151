package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/loglens/loglens/pkg/types"
)

// GetThreshold returns the persisted threshold for name. The second return
// value reports whether a row exists — absence is not an error, callers apply
// their own default.
func (s *Store) GetThreshold(name string) (types.Threshold, bool, error) {
	var t types.Threshold
	var ms int64
	err := s.db.QueryRow(`SELECT name, value, updated_at_ms FROM thresholds WHERE name = ?`,
		name).Scan(&t.Name, &t.Value, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Threshold{}, false, nil
	}
	if err != nil {
		return types.Threshold{}, false, fmt.Errorf("get threshold %q: %w", name, err)
	}
	t.UpdatedAt = fromMillis(ms)
	return t, true, nil
}

// SetThreshold upserts the threshold for name in a single statement, so a
// concurrent reader never observes a missing row mid-update.
func (s *Store) SetThreshold(name string, value float64) (types.Threshold, error) {
	now := s.now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO thresholds (name, value, updated_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at_ms = excluded.updated_at_ms`,
		name, value, toMillis(now))
	if err != nil {
		return types.Threshold{}, fmt.Errorf("set threshold %q: %w", name, err)
	}
	return types.Threshold{Name: name, Value: value, UpdatedAt: now}, nil
}
