package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository is a database-backed record store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository over an open database connection.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether a record is stored under key.
func (r *Repository) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check record %q: %w", key, err)
	}
	return true, nil
}

// Get retrieves the record stored under key.
func (r *Repository) Get(ctx context.Context, key string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT key, date, platform, posting_time, body, image_url, caption, manual_time, created_at, updated_at
		FROM posts WHERE key = ?`, key)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %q: %w", key, err)
	}
	return rec, nil
}

// Write inserts or replaces the record under its key.
func (r *Repository) Write(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (key, date, platform, posting_time, body, image_url, caption, manual_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			date = excluded.date,
			platform = excluded.platform,
			posting_time = excluded.posting_time,
			body = excluded.body,
			image_url = excluded.image_url,
			caption = excluded.caption,
			manual_time = excluded.manual_time,
			updated_at = excluded.updated_at`,
		rec.Key, rec.Date, rec.Platform, rec.PostingTime, rec.Body, rec.ImageURL,
		rec.Caption, boolToInt(rec.ManualTime), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to write record %q: %w", rec.Key, err)
	}
	return nil
}

// Delete removes the record under key. Deleting a missing key is not an
// error.
func (r *Repository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete record %q: %w", key, err)
	}
	return nil
}

// List returns every stored record in date order.
func (r *Repository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, date, platform, posting_time, body, image_url, caption, manual_time, created_at, updated_at
		FROM posts ORDER BY date, platform`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Move writes rec under its new key and deletes oldKey in one transaction.
func (r *Repository) Move(ctx context.Context, oldKey string, rec Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin move transaction: %w", err)
	}
	defer tx.Rollback()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE key = ?`, oldKey); err != nil {
		return fmt.Errorf("failed to delete old record %q: %w", oldKey, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO posts (key, date, platform, posting_time, body, image_url, caption, manual_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			date = excluded.date,
			platform = excluded.platform,
			posting_time = excluded.posting_time,
			body = excluded.body,
			image_url = excluded.image_url,
			caption = excluded.caption,
			manual_time = excluded.manual_time,
			updated_at = excluded.updated_at`,
		rec.Key, rec.Date, rec.Platform, rec.PostingTime, rec.Body, rec.ImageURL,
		rec.Caption, boolToInt(rec.ManualTime), rec.CreatedAt, rec.UpdatedAt); err != nil {
		return fmt.Errorf("failed to write moved record %q: %w", rec.Key, err)
	}

	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var manual int
	if err := s.Scan(&rec.Key, &rec.Date, &rec.Platform, &rec.PostingTime, &rec.Body,
		&rec.ImageURL, &rec.Caption, &manual, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.ManualTime = manual != 0
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
