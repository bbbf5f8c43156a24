package mapper

import (
	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/model"
)

type IngestionTaskMapper struct{}

func NewIngestionTaskMapper() *IngestionTaskMapper {
	return &IngestionTaskMapper{}
}

func (m *IngestionTaskMapper) ToEntity(t *model.IngestionTask) *entity.IngestionTask {
	if t == nil {
		return nil
	}
	return &entity.IngestionTask{
		Id:          t.Id,
		DocumentId:  t.DocumentId,
		Priority:    entity.TaskPriority(t.Priority),
		Status:      entity.TaskStatus(t.Status),
		RetryCount:  t.RetryCount,
		MaxRetries:  t.MaxRetries,
		LastError:   t.LastError,
		QueuedAt:    t.QueuedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

func (m *IngestionTaskMapper) ToModel(t *entity.IngestionTask) *model.IngestionTask {
	if t == nil {
		return nil
	}
	return &model.IngestionTask{
		Id:          t.Id,
		DocumentId:  t.DocumentId,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		RetryCount:  t.RetryCount,
		MaxRetries:  t.MaxRetries,
		LastError:   t.LastError,
		QueuedAt:    t.QueuedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}
