package implementation

import (
	"context"
	"encoding/json"
	"errors"

	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/mapper"
	"knowledge-base-be/internal/model"
	"knowledge-base-be/internal/repository/contract"
	"knowledge-base-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkMapper
}

func NewChunkRepository(db *gorm.DB) contract.ChunkRepository {
	return &ChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkMapper(),
	}
}

func (r *ChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ChunkRepositoryImpl) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	// Hard delete: chunks carry no audit value of their own and keeping stale
	// vectors around would poison ANN recall.
	return r.db.WithContext(ctx).Unscoped().
		Where("document_id = ?", documentId).
		Delete(&model.Chunk{}).Error
}

func (r *ChunkRepositoryImpl) ReplaceEmbedding(ctx context.Context, id uuid.UUID, embedding []float32, modelVersion string) error {
	return r.db.WithContext(ctx).Model(&model.Chunk{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"embedding":     pgvector.NewVector(embedding),
			"model_version": modelVersion,
		}).Error
}

func (r *ChunkRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chunk, error) {
	var m model.Chunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error) {
	var models []*model.Chunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Chunk{}).Count(&count).Error
	return count, err
}

// visibilityScope narrows any chunk query to ready, live documents the caller
// may see. Admin capability short-circuits the department check.
func (r *ChunkRepositoryImpl) visibilityScope(db *gorm.DB, access contract.AccessFilter) *gorm.DB {
	db = db.
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Where("chunks.deleted_at IS NULL").
		Where("documents.deleted_at IS NULL").
		Where("documents.status = ?", string(entity.DocumentStatusReady))

	if access.Admin {
		return db
	}
	return db.Where(
		"documents.company_wide OR documents.allowed_departments @> ?::jsonb",
		departmentJSON(access.Department),
	)
}

func departmentJSON(department string) string {
	// jsonb containment wants a single-element array on the right-hand side.
	b, _ := json.Marshal([]string{department})
	return string(b)
}

func (r *ChunkRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, access contract.AccessFilter) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 10
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so the similarity
	// surfaced to the ranker is 1 - (embedding <=> query).
	type result struct {
		model.Chunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.visibilityScope(
		r.db.WithContext(ctx).
			Table("chunks").
			Select("chunks.*, 1 - (chunks.embedding <=> ?) AS similarity", queryVector),
		access,
	).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunk{
			Chunk: r.mapper.ToEntity(&res.Chunk),
			Score: res.Similarity,
		}
	}
	return scored, nil
}

func (r *ChunkRepositoryImpl) SearchKeywordWithScore(ctx context.Context, query string, limit int, access contract.AccessFilter) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 10
	}

	// 'simple' config keeps ranking language-agnostic; the corpus mixes
	// languages and the query language is not known up front.
	type result struct {
		model.Chunk
		Rank float64
	}
	var results []result

	err := r.visibilityScope(
		r.db.WithContext(ctx).
			Table("chunks").
			Select(
				"chunks.*, ts_rank(to_tsvector('simple', chunks.text), websearch_to_tsquery('simple', ?)) AS rank",
				query,
			),
		access,
	).
		Where("to_tsvector('simple', chunks.text) @@ websearch_to_tsquery('simple', ?)", query).
		Order("rank DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunk{
			Chunk: r.mapper.ToEntity(&res.Chunk),
			Score: res.Rank,
		}
	}
	return scored, nil
}
