package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Chunk struct {
	Id           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_chunks_doc_seq,priority:1"`
	SeqIndex     int             `gorm:"not null;uniqueIndex:idx_chunks_doc_seq,priority:2"`
	Text         string          `gorm:"type:text;not null"`
	CharLength   int             `gorm:"not null"`
	StartOffset  int             `gorm:"not null"`
	EndOffset    int             `gorm:"not null"`
	Embedding    pgvector.Vector `gorm:"type:vector"` // dimension enforced by cmd/migrate from EMBEDDING_DIM
	ModelVersion string          `gorm:"type:varchar(128);not null"`
	Metadata     datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt    time.Time       `gorm:"autoCreateTime"`
	DeletedAt    gorm.DeletedAt  `gorm:"index"`
}

func (Chunk) TableName() string {
	return "chunks"
}
