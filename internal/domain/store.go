package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
}

// PositionStore persists positions. Implementations are interchangeable: the
// default is PostgreSQL, with a local JSON file store as fallback when no
// database is configured.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	GetByID(ctx context.Context, id string) (Position, error)
	ListByOwner(ctx context.Context, owner string, opts ListOpts) ([]Position, error)
	ListAll(ctx context.Context) ([]Position, error)
	Delete(ctx context.Context, id string) error
}
