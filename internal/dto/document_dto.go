package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadDocumentRequest struct {
	Filename           string   `json:"filename" validate:"required"`
	MimeType           string   `json:"mime_type,omitempty"` // declared type, sniffed when absent
	CompanyWide        bool     `json:"company_wide"`
	AllowedDepartments []string `json:"allowed_departments,omitempty"`
	Priority           string   `json:"priority,omitempty"` // high | default | low
}

type UploadDocumentResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
	Status     string    `json:"status"`
	// Reused is set when the content fingerprint matched an existing document;
	// DocumentId then points at that document and no re-processing happens.
	Reused bool `json:"reused"`
}

type ShowDocumentResponse struct {
	Id                 uuid.UUID  `json:"id"`
	Filename           string     `json:"filename"`
	MimeType           string     `json:"mime_type"`
	ByteSize           int64      `json:"byte_size"`
	Language           string     `json:"language,omitempty"`
	CompanyWide        bool       `json:"company_wide"`
	AllowedDepartments []string   `json:"allowed_departments,omitempty"`
	Status             string     `json:"status"`
	FailureReason      string     `json:"failure_reason,omitempty"`
	ChunkCount         int        `json:"chunk_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

type UpdateVisibilityRequest struct {
	CompanyWide        bool     `json:"company_wide"`
	AllowedDepartments []string `json:"allowed_departments,omitempty"`
}

type RequeueDocumentResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
	TaskId     uuid.UUID `json:"task_id"`
	Status     string    `json:"status"`
}
