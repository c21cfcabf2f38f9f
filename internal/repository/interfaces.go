package repository

import (
	"context"
	"time"

	"github.com/amirulm/aidlog/internal/domain/activity"
)

// ActivityRepository manages activity record persistence.
type ActivityRepository interface {
	Insert(ctx context.Context, rec *activity.Record) error
	Update(ctx context.Context, rec *activity.Record) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*activity.Record, error)
	// ResolveID expands a full ID or unique prefix to the full ID.
	// Returns ErrNotFound for no match and ErrAmbiguousID when more
	// than one record shares the prefix.
	ResolveID(ctx context.Context, idOrPrefix string) (string, error)
	// ListRecent returns records ordered by occurred_at descending.
	ListRecent(ctx context.Context, limit, offset int) ([]activity.Record, error)
	// ListBetween returns records with occurred_at in [from, to),
	// ordered ascending, for recap aggregation.
	ListBetween(ctx context.Context, from, to time.Time) ([]activity.Record, error)
}
