package worker

import (
	"context"
	"fmt"
	"time"

	"knowledge-base-be/internal/config"
	"knowledge-base-be/internal/dto"
	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/pkg/logger"
	"knowledge-base-be/internal/repository/specification"
	"knowledge-base-be/internal/repository/unitofwork"
	"knowledge-base-be/pkg/chunker"
	"knowledge-base-be/pkg/embedding"
	"knowledge-base-be/pkg/extract"

	"github.com/google/uuid"
)

// BlobSource yields the raw uploaded bytes for a document.
type BlobSource interface {
	DownloadRaw(ctx context.Context, objectKey string) ([]byte, error)
}

// pipeline runs one document through extract -> chunk -> embed -> index.
// Each step classifies its own failures: fatal ones stop the task for good,
// transient ones are handed back to the queue for a retry.
type pipeline struct {
	uowFactory unitofwork.RepositoryFactory
	store      BlobSource
	extractor  *extract.Extractor
	embedder   embedding.Provider
	cfg        config.IngestConfig
	log        logger.ILogger
}

type pipelineResult struct {
	Language   string
	ChunkCount int
}

func (p *pipeline) run(ctx context.Context, doc *entity.Document) (*pipelineResult, error) {
	data, err := p.store.DownloadRaw(ctx, doc.ObjectKey)
	if err != nil {
		return nil, dto.NewTransientError("download", err)
	}

	extractCtx, cancel := context.WithTimeout(ctx, p.cfg.ExtractTimeout)
	defer cancel()
	result, err := p.extractor.Extract(extractCtx, data, doc.MimeType, doc.Filename)
	if err != nil {
		// The extractor already classified the failure.
		return nil, err
	}

	policy := chunker.Policy{
		TargetTokens:  p.cfg.ChunkTargetTokens,
		OverlapTokens: p.cfg.ChunkOverlapTokens,
		RunesPerToken: p.cfg.RunesPerToken,
	}
	spans, err := chunker.Split(result.Text, result.Blocks, policy)
	if err != nil {
		return nil, dto.NewFatalError("chunk", fmt.Errorf("%w: %v", dto.ErrExtractionFailed, err))
	}

	chunks := make([]*entity.Chunk, 0, len(spans))
	for _, span := range spans {
		chunks = append(chunks, &entity.Chunk{
			Id:          uuid.New(),
			DocumentId:  doc.Id,
			SeqIndex:    span.SeqIndex,
			Text:        span.Text,
			CharLength:  len([]rune(span.Text)),
			StartOffset: span.StartOffset,
			EndOffset:   span.EndOffset,
			Metadata: entity.ChunkMetadata{
				Page:    span.Page,
				Section: span.Section,
			},
			CreatedAt: time.Now(),
		})
	}

	if err := p.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	if err := p.indexChunks(ctx, doc.Id, chunks); err != nil {
		return nil, err
	}

	return &pipelineResult{
		Language:   result.Language,
		ChunkCount: len(chunks),
	}, nil
}

// embedChunks fills in vectors batch by batch so one slow batch cannot stall
// the whole document past the embed timeout.
func (p *pipeline) embedChunks(ctx context.Context, chunks []*entity.Chunk) error {
	batchSize := p.cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
		vectors, err := p.embedder.Embed(embedCtx, texts)
		cancel()
		if err != nil {
			return dto.NewTransientError("embed", fmt.Errorf("%w: %v", dto.ErrEmbeddingUnavailable, err))
		}

		for i, c := range batch {
			c.Embedding = vectors[i]
			c.ModelVersion = p.embedder.ModelVersion()
		}
	}
	return nil
}

// indexChunks replaces the document's chunk set in one transaction, so a
// reprocessed document is swapped atomically and search never sees a partial
// chunk set. If the document was deleted while we worked, the write is
// abandoned.
func (p *pipeline) indexChunks(ctx context.Context, documentId uuid.UUID, chunks []*entity.Chunk) error {
	writeCtx, cancel := context.WithTimeout(ctx, p.cfg.IndexWriteTimeout)
	defer cancel()

	uow := p.uowFactory.NewUnitOfWork(writeCtx)
	if err := uow.Begin(writeCtx); err != nil {
		return dto.NewTransientError("index", fmt.Errorf("%w: %v", dto.ErrIndexWriteFailed, err))
	}
	defer uow.Rollback()

	// The row lock holds off a concurrent delete until the commit, so a
	// document removed mid-flight can never leave chunk rows behind.
	doc, err := uow.DocumentRepository().FindOne(writeCtx, specification.ByID{ID: documentId}, specification.ForUpdate{})
	if err != nil {
		return dto.NewTransientError("index", fmt.Errorf("%w: %v", dto.ErrIndexWriteFailed, err))
	}
	if doc == nil {
		return dto.NewFatalError("index", errDocumentGone)
	}

	if err := uow.ChunkRepository().DeleteByDocumentId(writeCtx, documentId); err != nil {
		return dto.NewTransientError("index", fmt.Errorf("%w: %v", dto.ErrIndexWriteFailed, err))
	}
	if err := uow.ChunkRepository().CreateBulk(writeCtx, chunks); err != nil {
		return dto.NewTransientError("index", fmt.Errorf("%w: %v", dto.ErrIndexWriteFailed, err))
	}

	if err := uow.Commit(); err != nil {
		return dto.NewTransientError("index", fmt.Errorf("%w: %v", dto.ErrIndexWriteFailed, err))
	}
	return nil
}
