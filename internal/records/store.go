package records

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record key has no stored record.
var ErrNotFound = errors.New("record not found")

// Record is one committed post, stored under its date+platform key.
type Record struct {
	Key         string    `json:"key"`
	Date        time.Time `json:"date"`
	Platform    string    `json:"platform"`
	PostingTime string    `json:"posting_time"`
	Body        string    `json:"body"`
	ImageURL    string    `json:"image_url,omitempty"`
	Caption     string    `json:"caption,omitempty"`
	ManualTime  bool      `json:"manual_time"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is the persistence collaborator: one record per (date, platform)
// key, with an atomic create-and-delete used for moves.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*Record, error)
	Write(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Record, error)

	// Move writes rec under its new key and deletes oldKey in one step, so
	// a relocation can never leave both or neither record behind.
	Move(ctx context.Context, oldKey string, rec Record) error
}
