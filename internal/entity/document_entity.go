package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusQueued     DocumentStatus = "queued"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

type Document struct {
	Id          uuid.UUID
	Fingerprint string // hex SHA-256 of raw bytes, unique across live documents
	Filename    string
	MimeType    string
	ByteSize    int64
	Language    string
	CompanyWide bool
	// AllowedDepartments is ignored when CompanyWide is set.
	AllowedDepartments []string
	Status             DocumentStatus
	FailureReason      string
	ChunkCount         int
	UploaderId         uuid.UUID
	ObjectKey          string
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}
