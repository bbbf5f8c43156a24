package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/mapper"
	"knowledge-base-be/internal/model"
	"knowledge-base-be/internal/repository/contract"
	"knowledge-base-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentRepositoryImpl) CreateIfAbsent(ctx context.Context, doc *entity.Document) (bool, *entity.Document, error) {
	m := r.mapper.ToModel(doc)
	err := r.db.WithContext(ctx).Create(m).Error
	if err == nil {
		*doc = *r.mapper.ToEntity(m)
		return true, doc, nil
	}

	// The partial unique index on fingerprint is the atomic dedupe check.
	// Losing the insert race (or re-uploading known content) both land here.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, ferr := r.FindOne(ctx, specification.ByFingerprint{Fingerprint: doc.Fingerprint})
		if ferr != nil {
			return false, nil, ferr
		}
		if existing == nil {
			// The winner was deleted between our insert and lookup; surface the
			// original conflict so the caller can retry the upload.
			return false, nil, err
		}
		return false, existing, nil
	}

	return false, nil, err
}

func (r *DocumentRepositoryImpl) Update(ctx context.Context, doc *entity.Document) error {
	m := r.mapper.ToModel(doc)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.DocumentStatus, failureReason string) error {
	return r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         string(status),
			"failure_reason": failureReason,
			"updated_at":     time.Now(),
		}).Error
}

func (r *DocumentRepositoryImpl) SetReady(ctx context.Context, id uuid.UUID, language string, chunkCount int) error {
	return r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         string(entity.DocumentStatusReady),
			"failure_reason": "",
			"language":       language,
			"chunk_count":    chunkCount,
			"updated_at":     time.Now(),
		}).Error
}

func (r *DocumentRepositoryImpl) UpdateVisibility(ctx context.Context, id uuid.UUID, companyWide bool, departments []string) error {
	if departments == nil {
		departments = []string{}
	}
	raw, err := json.Marshal(departments)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"company_wide":        companyWide,
			"allowed_departments": datatypes.JSON(raw),
			"updated_at":          time.Now(),
		}).Error
}

func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Document{}, id).Error
}

func (r *DocumentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	var m model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	var models []*model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Document{}).Count(&count).Error
	return count, err
}
