package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ApplyRunMetric records the outcome of one batch apply.
type ApplyRunMetric struct {
	Platform         string
	Created          int
	Skipped          int
	Failed           int
	CaptionLatencyMS int64
	RanAt            time.Time
}

// Store handles persistence of apply-run metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ApplyRunMetric) error {
	ts := m.RanAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO apply_runs (platform, created, skipped, failed, caption_latency_ms, ran_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.Platform, m.Created, m.Skipped, m.Failed, m.CaptionLatencyMS, ts)
	if err != nil {
		return fmt.Errorf("failed to record apply run: %w", err)
	}
	return nil
}

// Recent retrieves the last N apply runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]ApplyRunMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, created, skipped, failed, caption_latency_ms, ran_at
		FROM apply_runs ORDER BY ran_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query apply runs: %w", err)
	}
	defer rows.Close()

	var out []ApplyRunMetric
	for rows.Next() {
		var m ApplyRunMetric
		if err := rows.Scan(&m.Platform, &m.Created, &m.Skipped, &m.Failed, &m.CaptionLatencyMS, &m.RanAt); err != nil {
			return nil, fmt.Errorf("failed to scan apply run: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Cleanup removes runs older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) error {
	threshold := time.Now().AddDate(0, 0, -olderThanDays)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM apply_runs WHERE ran_at < ?`, threshold); err != nil {
		return fmt.Errorf("failed to clean up apply runs: %w", err)
	}
	return nil
}
