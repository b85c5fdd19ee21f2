package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"sandwach/internal/models"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

// SaveCacheEntry replaces the single persisted forecast cache row so the
// last good snapshot survives a process restart.
func (s *Store) SaveCacheEntry(e models.CacheEntry) error {
	if e.Snapshot == nil {
		return fmt.Errorf("save cache entry: nil snapshot")
	}
	data, err := json.Marshal(e.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO forecast_cache (id, fetched_at, expires_at, snapshot_json)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at,
			snapshot_json = excluded.snapshot_json
	`, e.Snapshot.FetchedAt, e.ExpiresAt, string(data))
	return err
}

// LoadCacheEntry returns the persisted cache entry, or nil if no fetch has
// ever succeeded.
func (s *Store) LoadCacheEntry() (*models.CacheEntry, error) {
	row := s.db.QueryRow(`SELECT expires_at, snapshot_json FROM forecast_cache WHERE id = 1`)

	var expiresAt time.Time
	var data string
	err := row.Scan(&expiresAt, &data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap models.ForecastSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &models.CacheEntry{Snapshot: &snap, ExpiresAt: expiresAt}, nil
}

// TryRecord inserts a notification record unless one already exists for the
// (window, day_key) pair. The insert itself is the dedupe; there is no prior
// read. Returns true if the caller should deliver.
func (s *Store) TryRecord(w models.Window, dayKey, content string) (bool, error) {
	res, err := s.db.Exec(`
		INSERT INTO notifications (window, day_key, content, sent_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(window, day_key) DO NOTHING
	`, string(w), dayKey, content, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) GetNotification(w models.Window, dayKey string) (*models.NotificationRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, window, day_key, content, sent_at
		FROM notifications
		WHERE window = ? AND day_key = ?
	`, string(w), dayKey)

	var rec models.NotificationRecord
	err := row.Scan(&rec.ID, &rec.Window, &rec.DayKey, &rec.Content, &rec.SentAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) RecentNotifications(limit int) ([]models.NotificationRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, window, day_key, content, sent_at
		FROM notifications
		ORDER BY sent_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		var rec models.NotificationRecord
		if err := rows.Scan(&rec.ID, &rec.Window, &rec.DayKey, &rec.Content, &rec.SentAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
