// Package queue is the asynq glue between upload handling and the ingestion
// workers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"knowledge-base-be/internal/entity"

	"github.com/hibiken/asynq"
)

const (
	// IngestDocumentTask drives one document through the whole pipeline.
	IngestDocumentTask = "document:ingest"
)

// Queue names in priority order; asynq weights below make high drain ~5x
// faster than low under contention.
const (
	QueueHigh    = "high"
	QueueDefault = "default"
	QueueLow     = "low"
)

// Priorities returns the asynq queue weight map for the worker server.
func Priorities() map[string]int {
	return map[string]int{
		QueueHigh:    5,
		QueueDefault: 3,
		QueueLow:     1,
	}
}

func queueFor(priority entity.TaskPriority) string {
	switch priority {
	case entity.TaskPriorityHigh:
		return QueueHigh
	case entity.TaskPriorityLow:
		return QueueLow
	default:
		return QueueDefault
	}
}

// Enqueuer is the client-side handle services schedule ingestion through.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueIngest(ctx context.Context, task *entity.IngestionTask) error {
	return EnqueueIngest(ctx, e.client, task)
}

// IngestPayload tells the worker which task row and document to process.
type IngestPayload struct {
	TaskId     string `json:"task_id"`
	DocumentId string `json:"document_id"`
}

// EnqueueIngest schedules an ingestion run. Retries are capped at the task's
// budget; the durable retry accounting itself lives on the ingestion_tasks
// row, not in Redis.
func EnqueueIngest(ctx context.Context, client *asynq.Client, task *entity.IngestionTask) error {
	payload := IngestPayload{
		TaskId:     task.Id.String(),
		DocumentId: task.DocumentId.String(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	t := asynq.NewTask(IngestDocumentTask, data)
	_, err = client.EnqueueContext(ctx, t,
		asynq.Queue(queueFor(task.Priority)),
		asynq.MaxRetry(task.MaxRetries),
	)
	if err != nil {
		return fmt.Errorf("enqueue ingest task: %w", err)
	}
	return nil
}
