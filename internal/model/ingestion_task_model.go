package model

import (
	"time"

	"github.com/google/uuid"
)

type IngestionTask struct {
	Id          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId  uuid.UUID  `gorm:"type:uuid;not null;index"`
	Priority    string     `gorm:"type:varchar(16);not null;default:'default'"`
	Status      string     `gorm:"type:varchar(16);not null;default:'queued';index"`
	RetryCount  int        `gorm:"not null;default:0"`
	MaxRetries  int        `gorm:"not null;default:3"`
	LastError   string     `gorm:"type:text"`
	QueuedAt    time.Time  `gorm:"autoCreateTime"`
	StartedAt   *time.Time
	CompletedAt *time.Time
}

func (IngestionTask) TableName() string {
	return "ingestion_tasks"
}
