package unitofwork

import (
	"context"

	"knowledge-base-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	ChunkRepository() contract.ChunkRepository
	IngestionTaskRepository() contract.IngestionTaskRepository
}
