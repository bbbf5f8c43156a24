package contract

import (
	"context"

	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	// CreateIfAbsent inserts the document unless another live document already
	// carries the same fingerprint. The check-and-insert is atomic: it leans on
	// the fingerprint uniqueness constraint, so two concurrent uploads of
	// identical content can never both create a row. On a fingerprint hit the
	// existing document is returned and created is false.
	CreateIfAbsent(ctx context.Context, doc *entity.Document) (created bool, existing *entity.Document, err error)

	Update(ctx context.Context, doc *entity.Document) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.DocumentStatus, failureReason string) error
	SetReady(ctx context.Context, id uuid.UUID, language string, chunkCount int) error
	UpdateVisibility(ctx context.Context, id uuid.UUID, companyWide bool, departments []string) error
	Delete(ctx context.Context, id uuid.UUID) error

	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
