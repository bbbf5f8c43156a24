package contract

import (
	"context"

	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/repository/specification"

	"github.com/google/uuid"
)

type IngestionTaskRepository interface {
	Create(ctx context.Context, task *entity.IngestionTask) error
	Update(ctx context.Context, task *entity.IngestionTask) error

	// MarkProcessing claims a queued (or stale processing) task for a worker.
	// Returns false when the task is already terminal, so a requeue racing a
	// late delivery cannot resurrect a failed task.
	MarkProcessing(ctx context.Context, id uuid.UUID) (claimed bool, err error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	// IncrementRetry records a transient failure and returns the updated count.
	IncrementRetry(ctx context.Context, id uuid.UUID, lastError string) (retryCount int, err error)

	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.IngestionTask, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IngestionTask, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
