package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"knowledge-base-be/internal/config"
	"knowledge-base-be/internal/dto"
	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/pkg/logger"
	"knowledge-base-be/internal/repository/specification"
	"knowledge-base-be/internal/repository/unitofwork"
	"knowledge-base-be/pkg/access"
	"knowledge-base-be/pkg/events"
	"knowledge-base-be/pkg/extract"
	"knowledge-base-be/pkg/fingerprint"

	"github.com/google/uuid"
)

// RawObjectStore is the slice of blob storage the ingestion flow needs.
type RawObjectStore interface {
	UploadRaw(ctx context.Context, objectKey string, data []byte, contentType string) error
	Remove(ctx context.Context, objectKey string) error
}

// TaskQueue hands ingestion tasks to the worker pool.
type TaskQueue interface {
	EnqueueIngest(ctx context.Context, task *entity.IngestionTask) error
}

type IIngestionService interface {
	Upload(ctx context.Context, identity entity.Identity, req *dto.UploadDocumentRequest, data []byte) (*dto.UploadDocumentResponse, error)
	Show(ctx context.Context, identity entity.Identity, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	UpdateVisibility(ctx context.Context, identity entity.Identity, id uuid.UUID, req *dto.UpdateVisibilityRequest) error
	Requeue(ctx context.Context, identity entity.Identity, id uuid.UUID) (*dto.RequeueDocumentResponse, error)
	Delete(ctx context.Context, identity entity.Identity, id uuid.UUID) error
}

type ingestionService struct {
	uowFactory       unitofwork.RepositoryFactory
	store            RawObjectStore
	taskQueue        TaskQueue
	publisherService IPublisherService
	queueCfg         config.QueueConfig
	log              logger.ILogger
}

func NewIngestionService(
	uowFactory unitofwork.RepositoryFactory,
	store RawObjectStore,
	taskQueue TaskQueue,
	publisherService IPublisherService,
	queueCfg config.QueueConfig,
	log logger.ILogger,
) IIngestionService {
	return &ingestionService{
		uowFactory:       uowFactory,
		store:            store,
		taskQueue:        taskQueue,
		publisherService: publisherService,
		queueCfg:         queueCfg,
		log:              log,
	}
}

func (c *ingestionService) Upload(ctx context.Context, identity entity.Identity, req *dto.UploadDocumentRequest, data []byte) (*dto.UploadDocumentResponse, error) {
	mimeType := extract.ResolveMime(req.MimeType, req.Filename, data)

	fp := fingerprint.Compute(data)
	objectKey := fp + filepath.Ext(req.Filename)

	doc := &entity.Document{
		Id:                 uuid.New(),
		Fingerprint:        fp,
		Filename:           req.Filename,
		MimeType:           mimeType,
		ByteSize:           int64(len(data)),
		CompanyWide:        req.CompanyWide,
		AllowedDepartments: req.AllowedDepartments,
		Status:             entity.DocumentStatusQueued,
		UploaderId:         identity.UserId,
		ObjectKey:          objectKey,
		CreatedAt:          time.Now(),
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	created, existing, err := uow.DocumentRepository().CreateIfAbsent(ctx, doc)
	if err != nil {
		return nil, err
	}
	if !created {
		// Same bytes already known: hand back the existing document and skip
		// the whole pipeline.
		c.publishEvent(ctx, events.DocumentReused, map[string]interface{}{
			"document_id": existing.Id,
			"fingerprint": fp,
			"uploader_id": identity.UserId,
		})
		return &dto.UploadDocumentResponse{
			DocumentId: existing.Id,
			Status:     string(existing.Status),
			Reused:     true,
		}, nil
	}

	if err := c.store.UploadRaw(ctx, objectKey, data, mimeType); err != nil {
		c.failAcceptedUpload(ctx, uow, doc.Id, "raw upload failed")
		return nil, fmt.Errorf("store raw document: %w", err)
	}

	task := &entity.IngestionTask{
		Id:         uuid.New(),
		DocumentId: doc.Id,
		Priority:   parsePriority(req.Priority),
		Status:     entity.TaskStatusQueued,
		MaxRetries: c.queueCfg.MaxRetries,
		QueuedAt:   time.Now(),
	}
	// Past this point the document row exists, so any failure must settle it
	// as failed: a row stuck in queued with no task behind it could never be
	// requeued and its fingerprint would block re-uploads forever.
	if err := uow.IngestionTaskRepository().Create(ctx, task); err != nil {
		c.failAcceptedUpload(ctx, uow, doc.Id, "task creation failed")
		return nil, fmt.Errorf("create ingestion task: %w", err)
	}
	if err := c.taskQueue.EnqueueIngest(ctx, task); err != nil {
		c.failAcceptedUpload(ctx, uow, doc.Id, "enqueue failed")
		return nil, fmt.Errorf("enqueue ingestion task: %w", err)
	}

	c.publishEvent(ctx, events.DocumentUploaded, map[string]interface{}{
		"document_id": doc.Id,
		"filename":    doc.Filename,
		"byte_size":   doc.ByteSize,
		"uploader_id": identity.UserId,
	})
	c.log.Info("ingestion", "Document accepted", map[string]interface{}{
		"document_id": doc.Id,
		"task_id":     task.Id,
		"filename":    doc.Filename,
	})

	return &dto.UploadDocumentResponse{
		DocumentId: doc.Id,
		Status:     string(doc.Status),
	}, nil
}

func (c *ingestionService) Show(ctx context.Context, identity entity.Identity, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	// Invisible documents are reported as absent, not forbidden.
	if doc == nil || !canView(identity, doc) {
		return nil, dto.ErrNotFound
	}

	return &dto.ShowDocumentResponse{
		Id:                 doc.Id,
		Filename:           doc.Filename,
		MimeType:           doc.MimeType,
		ByteSize:           doc.ByteSize,
		Language:           doc.Language,
		CompanyWide:        doc.CompanyWide,
		AllowedDepartments: doc.AllowedDepartments,
		Status:             string(doc.Status),
		FailureReason:      doc.FailureReason,
		ChunkCount:         doc.ChunkCount,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}, nil
}

func (c *ingestionService) UpdateVisibility(ctx context.Context, identity entity.Identity, id uuid.UUID, req *dto.UpdateVisibilityRequest) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if doc == nil {
		return dto.ErrNotFound
	}
	if !canManage(identity, doc) {
		return dto.ErrAccessDenied
	}

	// Takes effect on the next query; no re-processing involved.
	return uow.DocumentRepository().UpdateVisibility(ctx, id, req.CompanyWide, req.AllowedDepartments)
}

func (c *ingestionService) Requeue(ctx context.Context, identity entity.Identity, id uuid.UUID) (*dto.RequeueDocumentResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, dto.ErrNotFound
	}
	if !canManage(identity, doc) {
		return nil, dto.ErrAccessDenied
	}
	if doc.Status != entity.DocumentStatusFailed {
		return nil, dto.ErrDocumentNotFailed
	}

	if err := uow.DocumentRepository().UpdateStatus(ctx, id, entity.DocumentStatusQueued, ""); err != nil {
		return nil, err
	}

	task := &entity.IngestionTask{
		Id:         uuid.New(),
		DocumentId: id,
		Priority:   entity.TaskPriorityDefault,
		Status:     entity.TaskStatusQueued,
		MaxRetries: c.queueCfg.MaxRetries,
		QueuedAt:   time.Now(),
	}
	if err := uow.IngestionTaskRepository().Create(ctx, task); err != nil {
		c.failAcceptedUpload(ctx, uow, id, "task creation failed")
		return nil, fmt.Errorf("create ingestion task: %w", err)
	}
	if err := c.taskQueue.EnqueueIngest(ctx, task); err != nil {
		c.failAcceptedUpload(ctx, uow, id, "enqueue failed")
		return nil, fmt.Errorf("enqueue ingestion task: %w", err)
	}

	c.publishEvent(ctx, events.DocumentRequeued, map[string]interface{}{
		"document_id": id,
		"task_id":     task.Id,
		"user_id":     identity.UserId,
	})

	return &dto.RequeueDocumentResponse{
		DocumentId: id,
		TaskId:     task.Id,
		Status:     string(entity.TaskStatusQueued),
	}, nil
}

func (c *ingestionService) Delete(ctx context.Context, identity entity.Identity, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if doc == nil {
		return dto.ErrNotFound
	}
	if !canManage(identity, doc) {
		return dto.ErrAccessDenied
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	// Lock the row so a delete and an in-flight ingestion commit serialize:
	// whoever holds the lock first wins, and chunks never outlive the document.
	locked, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id}, specification.ForUpdate{})
	if err != nil {
		return err
	}
	if locked == nil {
		return dto.ErrNotFound
	}

	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	// The raw object is keyed by fingerprint and no other live document can
	// share it, so it goes too. Best effort: the index rows are already gone.
	if err := c.store.Remove(ctx, doc.ObjectKey); err != nil {
		c.log.Warn("ingestion", "Failed to remove raw object", map[string]interface{}{
			"document_id": id,
			"object_key":  doc.ObjectKey,
			"error":       err.Error(),
		})
	}

	c.publishEvent(ctx, events.DocumentDeleted, map[string]interface{}{
		"document_id": id,
		"filename":    doc.Filename,
		"user_id":     identity.UserId,
	})
	return nil
}

// failAcceptedUpload settles a document whose pipeline handoff broke before a
// worker could ever pick it up. Failed documents stay requeueable.
func (c *ingestionService) failAcceptedUpload(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID, reason string) {
	if err := uow.DocumentRepository().UpdateStatus(ctx, id, entity.DocumentStatusFailed, reason); err != nil {
		c.log.Error("ingestion", "Failed to mark document failed", map[string]interface{}{
			"document_id": id,
			"reason":      reason,
			"error":       err.Error(),
		})
	}
}

func (c *ingestionService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	evt := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	// Audit publishing is auxiliary; requests never fail over it.
	if err := c.publisherService.Publish(ctx, evt); err != nil {
		c.log.Warn("ingestion", "Failed to publish event", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}

// canView applies the read visibility rule; uploaders always see their own
// documents regardless of department scoping.
func canView(identity entity.Identity, doc *entity.Document) bool {
	if doc.UploaderId == identity.UserId {
		return true
	}
	return access.Visible(identity, doc)
}

// canManage gates destructive operations to the uploader and admins.
func canManage(identity entity.Identity, doc *entity.Document) bool {
	return identity.Admin || doc.UploaderId == identity.UserId
}

func parsePriority(s string) entity.TaskPriority {
	switch s {
	case string(entity.TaskPriorityHigh):
		return entity.TaskPriorityHigh
	case string(entity.TaskPriorityLow):
		return entity.TaskPriorityLow
	default:
		return entity.TaskPriorityDefault
	}
}
