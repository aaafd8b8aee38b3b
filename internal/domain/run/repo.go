package run

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("run not found")

type Repository interface {
	Create(ctx context.Context, r *Run) error
	// GetByID returns ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)
	List(ctx context.Context, limit, offset int) ([]*Run, int, error)
	InsertRows(ctx context.Context, runID uuid.UUID, rows []*Row) (int64, error)
	ListRows(ctx context.Context, runID uuid.UUID, limit, offset int) ([]*Row, int, error)
}
