package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChunkMetadata holds the structural attributes the extractor recovered for a
// chunk, plus an opaque extension map for anything format specific.
type ChunkMetadata struct {
	Page    int               `json:"page,omitempty"`
	Section string            `json:"section,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

type Chunk struct {
	Id           uuid.UUID
	DocumentId   uuid.UUID
	SeqIndex     int // 0-based, unique per document
	Text         string
	CharLength   int
	StartOffset  int // rune offset into the extracted text
	EndOffset    int
	Embedding    []float32
	ModelVersion string
	Metadata     ChunkMetadata
	CreatedAt    time.Time
}
