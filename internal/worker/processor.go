package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"knowledge-base-be/internal/config"
	"knowledge-base-be/internal/dto"
	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/pkg/logger"
	"knowledge-base-be/internal/queue"
	"knowledge-base-be/internal/repository/specification"
	"knowledge-base-be/internal/repository/unitofwork"
	"knowledge-base-be/internal/service"
	"knowledge-base-be/pkg/embedding"
	"knowledge-base-be/pkg/events"
	"knowledge-base-be/pkg/extract"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

var errDocumentGone = errors.New("document deleted during processing")

// Processor is plugged into the asynq worker loop.
type Processor struct {
	uowFactory unitofwork.RepositoryFactory
	pipe       *pipeline
	publisher  service.IPublisherService
	log        logger.ILogger
}

func NewProcessor(
	uowFactory unitofwork.RepositoryFactory,
	store BlobSource,
	extractor *extract.Extractor,
	embedder embedding.Provider,
	publisher service.IPublisherService,
	cfg config.IngestConfig,
	log logger.ILogger,
) *Processor {
	return &Processor{
		uowFactory: uowFactory,
		pipe: &pipeline{
			uowFactory: uowFactory,
			store:      store,
			extractor:  extractor,
			embedder:   embedder,
			cfg:        cfg,
			log:        log,
		},
		publisher: publisher,
		log:       log,
	}
}

// Handler registers the ingestion job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.IngestDocumentTask, p.handleIngest)
	return mux
}

func (p *Processor) handleIngest(ctx context.Context, task *asynq.Task) error {
	var payload queue.IngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	taskId, err := uuid.Parse(payload.TaskId)
	if err != nil {
		return fmt.Errorf("parse task id: %v: %w", err, asynq.SkipRetry)
	}
	documentId, err := uuid.Parse(payload.DocumentId)
	if err != nil {
		return fmt.Errorf("parse document id: %v: %w", err, asynq.SkipRetry)
	}

	uow := p.uowFactory.NewUnitOfWork(ctx)

	claimed, err := uow.IngestionTaskRepository().MarkProcessing(ctx, taskId)
	if err != nil {
		return err
	}
	if !claimed {
		// Terminal already: a requeue raced a late delivery, or a duplicate
		// delivery happened. Nothing to do.
		p.log.Info("worker", "Skipping already-settled task", map[string]interface{}{
			"task_id": taskId,
		})
		return nil
	}

	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: documentId})
	if err != nil {
		return p.settleFailure(ctx, taskId, documentId, dto.NewTransientError("load", err))
	}
	if doc == nil {
		// Deleted while queued; settle and drop the job.
		if err := uow.IngestionTaskRepository().MarkCompleted(ctx, taskId); err != nil {
			return err
		}
		return nil
	}

	if err := uow.DocumentRepository().UpdateStatus(ctx, documentId, entity.DocumentStatusProcessing, ""); err != nil {
		return p.settleFailure(ctx, taskId, documentId, dto.NewTransientError("load", err))
	}

	p.log.Info("worker", "Ingestion started", map[string]interface{}{
		"task_id":     taskId,
		"document_id": documentId,
		"filename":    doc.Filename,
	})

	result, err := p.pipe.run(ctx, doc)
	if err != nil {
		if errors.Is(err, errDocumentGone) {
			if markErr := uow.IngestionTaskRepository().MarkCompleted(ctx, taskId); markErr != nil {
				return markErr
			}
			return nil
		}
		return p.settleFailure(ctx, taskId, documentId, err)
	}

	if err := uow.DocumentRepository().SetReady(ctx, documentId, result.Language, result.ChunkCount); err != nil {
		return p.settleFailure(ctx, taskId, documentId, dto.NewTransientError("finalize", err))
	}
	if err := uow.IngestionTaskRepository().MarkCompleted(ctx, taskId); err != nil {
		return err
	}

	p.publish(ctx, events.DocumentReady, map[string]interface{}{
		"document_id": documentId,
		"chunk_count": result.ChunkCount,
		"language":    result.Language,
	})
	p.log.Info("worker", "Ingestion completed", map[string]interface{}{
		"task_id":     taskId,
		"document_id": documentId,
		"chunk_count": result.ChunkCount,
	})
	return nil
}

// settleFailure maps pipeline errors onto the durable task row. Fatal errors
// fail the task immediately; transient ones burn one retry and go back to the
// queue until the budget runs out.
func (p *Processor) settleFailure(ctx context.Context, taskId, documentId uuid.UUID, cause error) error {
	uow := p.uowFactory.NewUnitOfWork(ctx)
	taskRepo := uow.IngestionTaskRepository()

	if dto.IsFatal(cause) {
		p.failTask(ctx, taskId, documentId, cause)
		return fmt.Errorf("%v: %w", cause, asynq.SkipRetry)
	}

	retryCount, err := taskRepo.IncrementRetry(ctx, taskId, cause.Error())
	if err != nil {
		return err
	}

	task, err := taskRepo.FindOne(ctx, specification.ByID{ID: taskId})
	if err != nil {
		return err
	}
	if task != nil && retryCount >= task.MaxRetries {
		p.failTask(ctx, taskId, documentId, cause)
		return fmt.Errorf("retry budget exhausted: %v: %w", cause, asynq.SkipRetry)
	}

	p.log.Warn("worker", "Ingestion attempt failed, will retry", map[string]interface{}{
		"task_id":     taskId,
		"document_id": documentId,
		"retry_count": retryCount,
		"error":       cause.Error(),
	})
	return cause
}

func (p *Processor) failTask(ctx context.Context, taskId, documentId uuid.UUID, cause error) {
	uow := p.uowFactory.NewUnitOfWork(ctx)

	if err := uow.IngestionTaskRepository().MarkFailed(ctx, taskId, cause.Error()); err != nil {
		p.log.Error("worker", "Failed to mark task failed", map[string]interface{}{
			"task_id": taskId,
			"error":   err.Error(),
		})
	}
	if err := uow.DocumentRepository().UpdateStatus(ctx, documentId, entity.DocumentStatusFailed, cause.Error()); err != nil {
		p.log.Error("worker", "Failed to mark document failed", map[string]interface{}{
			"document_id": documentId,
			"error":       err.Error(),
		})
	}

	p.publish(ctx, events.DocumentFailed, map[string]interface{}{
		"document_id": documentId,
		"reason":      cause.Error(),
	})
	p.log.Error("worker", "Ingestion failed permanently", map[string]interface{}{
		"task_id":     taskId,
		"document_id": documentId,
		"error":       cause.Error(),
	})
}

func (p *Processor) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	evt := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	// Audit publishing is auxiliary; never fail ingestion over it.
	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.log.Warn("worker", "Failed to publish event", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}
