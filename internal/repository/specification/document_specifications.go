package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByFingerprint filters documents by content fingerprint.
type ByFingerprint struct {
	Fingerprint string
}

func (s ByFingerprint) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("fingerprint = ?", s.Fingerprint)
}

// ByDocumentID filters chunks or tasks by their owning document.
type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

// ByStatus filters by lifecycle status.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// ByModelVersion filters chunks by the embedding model that produced them.
type ByModelVersion struct {
	Version string
}

func (s ByModelVersion) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("model_version = ?", s.Version)
}

// NotModelVersion selects chunks embedded by any other model generation,
// including ones whose vector was cleared by a dimension change. Used by the
// re-embedding run after a model upgrade.
type NotModelVersion struct {
	Version string
}

func (s NotModelVersion) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("model_version <> ? OR embedding IS NULL", s.Version)
}
