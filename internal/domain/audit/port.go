package audit

import (
	"context"
	"time"
)

// Repository port for the audits table.
type Repository interface {
	// Create inserts a and sets a.ID.
	Create(ctx context.Context, a *Audit) error
	// Get returns ErrNotFound when id does not exist.
	Get(ctx context.Context, id ID) (*Audit, error)
	// Update overwrites the mutable columns; ErrNotFound when id does not exist.
	Update(ctx context.Context, a *Audit) error
	MarkCompleted(ctx context.Context, id ID, at time.Time) error
	Recent(ctx context.Context, limit int) ([]*Audit, error)
	// DeleteIncompleteBefore removes abandoned sessions and returns how many rows went away.
	DeleteIncompleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
