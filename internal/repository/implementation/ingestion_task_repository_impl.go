package implementation

import (
	"context"
	"errors"
	"time"

	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/mapper"
	"knowledge-base-be/internal/model"
	"knowledge-base-be/internal/repository/contract"
	"knowledge-base-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IngestionTaskRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.IngestionTaskMapper
}

func NewIngestionTaskRepository(db *gorm.DB) contract.IngestionTaskRepository {
	return &IngestionTaskRepositoryImpl{
		db:     db,
		mapper: mapper.NewIngestionTaskMapper(),
	}
}

func (r *IngestionTaskRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *IngestionTaskRepositoryImpl) Create(ctx context.Context, task *entity.IngestionTask) error {
	m := r.mapper.ToModel(task)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*task = *r.mapper.ToEntity(m)
	return nil
}

func (r *IngestionTaskRepositoryImpl) Update(ctx context.Context, task *entity.IngestionTask) error {
	m := r.mapper.ToModel(task)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*task = *r.mapper.ToEntity(m)
	return nil
}

func (r *IngestionTaskRepositoryImpl) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now()
	// Guarded transition: terminal tasks stay terminal. A redelivered task that
	// is already processing is re-claimed (crashed worker takeover).
	res := r.db.WithContext(ctx).Model(&model.IngestionTask{}).
		Where("id = ? AND status IN ?", id, []string{
			string(entity.TaskStatusQueued),
			string(entity.TaskStatusProcessing),
		}).
		Updates(map[string]interface{}{
			"status":     string(entity.TaskStatusProcessing),
			"started_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *IngestionTaskRepositoryImpl) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.IngestionTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       string(entity.TaskStatusCompleted),
			"completed_at": now,
		}).Error
}

func (r *IngestionTaskRepositoryImpl) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.IngestionTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       string(entity.TaskStatusFailed),
			"last_error":   lastError,
			"completed_at": now,
		}).Error
}

func (r *IngestionTaskRepositoryImpl) IncrementRetry(ctx context.Context, id uuid.UUID, lastError string) (int, error) {
	err := r.db.WithContext(ctx).Model(&model.IngestionTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  lastError,
			"status":      string(entity.TaskStatusQueued),
		}).Error
	if err != nil {
		return 0, err
	}

	task, err := r.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return 0, err
	}
	if task == nil {
		return 0, errors.New("ingestion task vanished during retry accounting")
	}
	return task.RetryCount, nil
}

func (r *IngestionTaskRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.IngestionTask, error) {
	var m model.IngestionTask
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *IngestionTaskRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IngestionTask, error) {
	var models []*model.IngestionTask
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.IngestionTask, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *IngestionTaskRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.IngestionTask{}).Count(&count).Error
	return count, err
}
