package contract

import (
	"context"

	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/repository/specification"

	"github.com/google/uuid"
)

// AccessFilter is the visibility predicate pushed down into search SQL so
// unauthorized chunks never occupy top-k slots. It mirrors pkg/access and is
// rebuilt from the caller's identity on every query.
type AccessFilter struct {
	Department string
	Admin      bool
}

// ScoredChunk wraps a chunk with its retrieval score. For vector search the
// score is cosine similarity; for keyword search it is the lexical rank.
type ScoredChunk struct {
	Chunk *entity.Chunk
	Score float64
}

type ChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.Chunk) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	// ReplaceEmbedding swaps a chunk's vector without touching text or offsets.
	// Used by the explicit model-upgrade re-embedding run.
	ReplaceEmbedding(ctx context.Context, id uuid.UUID, embedding []float32, modelVersion string) error

	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chunk, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilarWithScore runs cosine KNN over ready documents only, with
	// the access predicate applied at the storage layer.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, access AccessFilter) ([]*ScoredChunk, error)
	// SearchKeywordWithScore runs Postgres full-text ranking under the same
	// visibility and readiness constraints.
	SearchKeywordWithScore(ctx context.Context, query string, limit int, access AccessFilter) ([]*ScoredChunk, error)
}
