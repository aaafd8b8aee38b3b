package episode

import "context"

type Repository interface {
	// ListByCohort returns the cohort's episodes ordered by subject and
	// episode index.
	ListByCohort(ctx context.Context, cohort string) ([]*Episode, error)
	// CreateBatch bulk-loads episodes into cohort and returns the number of
	// rows copied.
	CreateBatch(ctx context.Context, cohort string, eps []*Episode) (int64, error)
	DeleteCohort(ctx context.Context, cohort string) (int64, error)
}
