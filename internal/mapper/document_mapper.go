package mapper

import (
	"encoding/json"
	"time"

	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/model"

	"gorm.io/datatypes"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	var departments []string
	if len(d.AllowedDepartments) > 0 {
		// Malformed JSON here would mean a corrupted row; treat as empty set.
		_ = json.Unmarshal(d.AllowedDepartments, &departments)
	}

	return &entity.Document{
		Id:                 d.Id,
		Fingerprint:        d.Fingerprint,
		Filename:           d.Filename,
		MimeType:           d.MimeType,
		ByteSize:           d.ByteSize,
		Language:           d.Language,
		CompanyWide:        d.CompanyWide,
		AllowedDepartments: departments,
		Status:             entity.DocumentStatus(d.Status),
		FailureReason:      d.FailureReason,
		ChunkCount:         d.ChunkCount,
		UploaderId:         d.UploaderId,
		ObjectKey:          d.ObjectKey,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          updatedAt,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	departments := d.AllowedDepartments
	if departments == nil {
		departments = []string{}
	}
	raw, _ := json.Marshal(departments)

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	return &model.Document{
		Id:                 d.Id,
		Fingerprint:        d.Fingerprint,
		Filename:           d.Filename,
		MimeType:           d.MimeType,
		ByteSize:           d.ByteSize,
		Language:           d.Language,
		CompanyWide:        d.CompanyWide,
		AllowedDepartments: datatypes.JSON(raw),
		Status:             string(d.Status),
		FailureReason:      d.FailureReason,
		ChunkCount:         d.ChunkCount,
		UploaderId:         d.UploaderId,
		ObjectKey:          d.ObjectKey,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          updatedAt,
	}
}

func (m *DocumentMapper) ToEntities(docs []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
