package mapper

import (
	"encoding/json"

	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ChunkMapper struct{}

func NewChunkMapper() *ChunkMapper {
	return &ChunkMapper{}
}

func (m *ChunkMapper) ToEntity(c *model.Chunk) *entity.Chunk {
	if c == nil {
		return nil
	}

	var meta entity.ChunkMetadata
	if len(c.Metadata) > 0 {
		_ = json.Unmarshal(c.Metadata, &meta)
	}

	return &entity.Chunk{
		Id:           c.Id,
		DocumentId:   c.DocumentId,
		SeqIndex:     c.SeqIndex,
		Text:         c.Text,
		CharLength:   c.CharLength,
		StartOffset:  c.StartOffset,
		EndOffset:    c.EndOffset,
		Embedding:    c.Embedding.Slice(),
		ModelVersion: c.ModelVersion,
		Metadata:     meta,
		CreatedAt:    c.CreatedAt,
	}
}

func (m *ChunkMapper) ToModel(c *entity.Chunk) *model.Chunk {
	if c == nil {
		return nil
	}

	raw, _ := json.Marshal(c.Metadata)

	return &model.Chunk{
		Id:           c.Id,
		DocumentId:   c.DocumentId,
		SeqIndex:     c.SeqIndex,
		Text:         c.Text,
		CharLength:   c.CharLength,
		StartOffset:  c.StartOffset,
		EndOffset:    c.EndOffset,
		Embedding:    pgvector.NewVector(c.Embedding),
		ModelVersion: c.ModelVersion,
		Metadata:     datatypes.JSON(raw),
		CreatedAt:    c.CreatedAt,
	}
}

func (m *ChunkMapper) ToEntities(chunks []*model.Chunk) []*entity.Chunk {
	entities := make([]*entity.Chunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ChunkMapper) ToModels(chunks []*entity.Chunk) []*model.Chunk {
	models := make([]*model.Chunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
