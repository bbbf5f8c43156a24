package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Document struct {
	Id                 uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Fingerprint        string         `gorm:"type:char(64);not null;uniqueIndex:idx_documents_fingerprint,where:deleted_at IS NULL"`
	Filename           string         `gorm:"type:varchar(512);not null"`
	MimeType           string         `gorm:"type:varchar(128);not null"`
	ByteSize           int64          `gorm:"not null"`
	Language           string         `gorm:"type:varchar(8)"`
	CompanyWide        bool           `gorm:"not null;default:false"`
	AllowedDepartments datatypes.JSON `gorm:"type:jsonb"`
	Status             string         `gorm:"type:varchar(16);not null;default:'queued';index"`
	FailureReason      string         `gorm:"type:text"`
	ChunkCount         int            `gorm:"not null;default:0"`
	UploaderId         uuid.UUID      `gorm:"type:uuid;index"`
	ObjectKey          string         `gorm:"type:varchar(256)"`
	CreatedAt          time.Time      `gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime"`
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
