package entity

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

type TaskPriority string

const (
	TaskPriorityHigh    TaskPriority = "high"
	TaskPriorityDefault TaskPriority = "default"
	TaskPriorityLow     TaskPriority = "low"
)

type IngestionTask struct {
	Id          uuid.UUID
	DocumentId  uuid.UUID
	Priority    TaskPriority
	Status      TaskStatus
	RetryCount  int
	MaxRetries  int
	LastError   string
	QueuedAt    time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}
