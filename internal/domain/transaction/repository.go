package transaction

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the persistence operations the pipeline and the
// dashboard collaborator rely on.
type Store interface {
	// Upsert applies a record with at-most-one-row-per-natural-key
	// semantics. It reports true only when a new row was created.
	// Records without a natural key always insert a new row.
	Upsert(ctx context.Context, rec *Record) (bool, error)

	// SetUserCategory overwrites the user override unconditionally.
	SetUserCategory(ctx context.Context, id uuid.UUID, category string) error

	// Rule pass
	RuleTargets(ctx context.Context) ([]RuleTarget, error)
	SetCategoryIfBlank(ctx context.Context, id uuid.UUID, category string) (bool, error)

	// Statistical pass
	TrainingSet(ctx context.Context) ([]TrainingRow, error)
	PredictTargets(ctx context.Context) ([]PredictTarget, error)
	SetAICategoryIfBlank(ctx context.Context, id uuid.UUID, category string) (bool, error)

	// Aggregation reads for the dashboard collaborator
	CategoryTotals(ctx context.Context) ([]CategoryTotal, error)
	DailyTrend(ctx context.Context) ([]TrendPoint, error)
	Recent(ctx context.Context, limit int) ([]Record, error)
	Count(ctx context.Context) (int64, error)
}
