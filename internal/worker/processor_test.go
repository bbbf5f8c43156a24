package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"knowledge-base-be/internal/config"
	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/queue"
	"knowledge-base-be/internal/repository/contract"
	"knowledge-base-be/internal/repository/specification"
	"knowledge-base-be/internal/repository/unitofwork"
	"knowledge-base-be/pkg/events"
	"knowledge-base-be/pkg/extract"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeTaskRepo struct {
	contract.IngestionTaskRepository

	task    *entity.IngestionTask
	retries int
	status  entity.TaskStatus
}

func (f *fakeTaskRepo) MarkProcessing(_ context.Context, _ uuid.UUID) (bool, error) {
	if f.status == entity.TaskStatusCompleted || f.status == entity.TaskStatusFailed {
		return false, nil
	}
	f.status = entity.TaskStatusProcessing
	return true, nil
}

func (f *fakeTaskRepo) MarkCompleted(_ context.Context, _ uuid.UUID) error {
	f.status = entity.TaskStatusCompleted
	return nil
}

func (f *fakeTaskRepo) MarkFailed(_ context.Context, _ uuid.UUID, _ string) error {
	f.status = entity.TaskStatusFailed
	return nil
}

func (f *fakeTaskRepo) IncrementRetry(_ context.Context, _ uuid.UUID, _ string) (int, error) {
	f.retries++
	f.status = entity.TaskStatusQueued
	return f.retries, nil
}

func (f *fakeTaskRepo) FindOne(_ context.Context, _ ...specification.Specification) (*entity.IngestionTask, error) {
	t := *f.task
	t.RetryCount = f.retries
	t.Status = f.status
	return &t, nil
}

type fakeDocRepo struct {
	contract.DocumentRepository

	doc        *entity.Document
	lockSeen   bool
	ready      bool
	chunkCount int
}

func (f *fakeDocRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Document, error) {
	for _, s := range specs {
		if _, ok := s.(specification.ForUpdate); ok {
			f.lockSeen = true
		}
	}
	return f.doc, nil
}

func (f *fakeDocRepo) UpdateStatus(_ context.Context, _ uuid.UUID, status entity.DocumentStatus, reason string) error {
	if f.doc != nil {
		f.doc.Status = status
		f.doc.FailureReason = reason
	}
	return nil
}

func (f *fakeDocRepo) SetReady(_ context.Context, _ uuid.UUID, language string, chunkCount int) error {
	f.ready = true
	f.chunkCount = chunkCount
	if f.doc != nil {
		f.doc.Status = entity.DocumentStatusReady
		f.doc.Language = language
	}
	return nil
}

type fakeChunkRepo struct {
	contract.ChunkRepository

	deletes  int
	inserted []*entity.Chunk
}

func (f *fakeChunkRepo) DeleteByDocumentId(_ context.Context, _ uuid.UUID) error {
	f.deletes++
	return nil
}

func (f *fakeChunkRepo) CreateBulk(_ context.Context, chunks []*entity.Chunk) error {
	f.inserted = chunks
	return nil
}

type fakeUow struct {
	unitofwork.UnitOfWork

	docs   *fakeDocRepo
	chunks *fakeChunkRepo
	tasks  *fakeTaskRepo
}

func (f *fakeUow) Begin(_ context.Context) error { return nil }

func (f *fakeUow) Commit() error { return nil }

func (f *fakeUow) Rollback() error { return nil }

func (f *fakeUow) DocumentRepository() contract.DocumentRepository { return f.docs }

func (f *fakeUow) ChunkRepository() contract.ChunkRepository { return f.chunks }

func (f *fakeUow) IngestionTaskRepository() contract.IngestionTaskRepository { return f.tasks }

type fakeFactory struct {
	uow *fakeUow
}

func (f *fakeFactory) NewUnitOfWork(_ context.Context) unitofwork.UnitOfWork { return f.uow }

type fakeBlobSource struct {
	data []byte
	errs int // number of leading calls that fail
}

func (f *fakeBlobSource) DownloadRaw(_ context.Context, _ string) ([]byte, error) {
	if f.errs > 0 {
		f.errs--
		return nil, errors.New("minio: connection refused")
	}
	return f.data, nil
}

type flakyEmbedder struct {
	errs int
}

func (f *flakyEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.errs > 0 {
		f.errs--
		return nil, errors.New("embedding backend unreachable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *flakyEmbedder) ModelVersion() string { return "test/v1" }

func (f *flakyEmbedder) Dimension() int { return 3 }

type fakePublisher struct {
	published []string
}

func (f *fakePublisher) Publish(_ context.Context, evt events.Event) error {
	f.published = append(f.published, evt.EventType())
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// --- harness ---

type fixture struct {
	docs      *fakeDocRepo
	chunks    *fakeChunkRepo
	tasks     *fakeTaskRepo
	publisher *fakePublisher
	mux       *asynq.ServeMux
	asynqTask *asynq.Task
}

func newFixture(t *testing.T, store BlobSource, embedder *flakyEmbedder, maxRetries int, doc *entity.Document) *fixture {
	t.Helper()

	task := &entity.IngestionTask{
		Id:         uuid.New(),
		DocumentId: doc.Id,
		Status:     entity.TaskStatusQueued,
		MaxRetries: maxRetries,
	}
	docs := &fakeDocRepo{doc: doc}
	chunks := &fakeChunkRepo{}
	tasks := &fakeTaskRepo{task: task, status: entity.TaskStatusQueued}
	publisher := &fakePublisher{}

	cfg := config.IngestConfig{
		ChunkTargetTokens:  64,
		ChunkOverlapTokens: 8,
		RunesPerToken:      4,
		EmbedBatchSize:     8,
		ExtractTimeout:     time.Second,
		EmbedTimeout:       time.Second,
		IndexWriteTimeout:  time.Second,
	}
	p := NewProcessor(
		&fakeFactory{uow: &fakeUow{docs: docs, chunks: chunks, tasks: tasks}},
		store,
		extract.NewExtractor(nil),
		embedder,
		publisher,
		cfg,
		nopLogger{},
	)

	payload, err := json.Marshal(queue.IngestPayload{
		TaskId:     task.Id.String(),
		DocumentId: doc.Id.String(),
	})
	require.NoError(t, err)

	return &fixture{
		docs:      docs,
		chunks:    chunks,
		tasks:     tasks,
		publisher: publisher,
		mux:       p.Handler(),
		asynqTask: asynq.NewTask(queue.IngestDocumentTask, payload),
	}
}

func queuedDoc() *entity.Document {
	return &entity.Document{
		Id:        uuid.New(),
		Filename:  "handbook.txt",
		MimeType:  "text/plain",
		ObjectKey: "abc123.txt",
		Status:    entity.DocumentStatusQueued,
	}
}

// --- tests ---

func TestIngestSucceedsAfterTransientFailures(t *testing.T) {
	store := &fakeBlobSource{data: []byte("First part of the employee handbook.\n\nSecond part with travel policy details.")}
	embedder := &flakyEmbedder{errs: 2}
	fx := newFixture(t, store, embedder, 3, queuedDoc())

	// Two attempts hit the unavailable embedding backend and burn one retry
	// each without failing the document.
	for i := 0; i < 2; i++ {
		err := fx.mux.ProcessTask(context.Background(), fx.asynqTask)
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))
	}
	assert.Equal(t, 2, fx.tasks.retries)
	assert.False(t, fx.docs.ready)

	// Third attempt goes through.
	require.NoError(t, fx.mux.ProcessTask(context.Background(), fx.asynqTask))

	assert.True(t, fx.docs.ready)
	assert.Greater(t, fx.docs.chunkCount, 0)
	assert.Equal(t, entity.TaskStatusCompleted, fx.tasks.status)
	assert.Equal(t, 2, fx.tasks.retries)
	assert.Len(t, fx.chunks.inserted, fx.docs.chunkCount)
	assert.Contains(t, fx.publisher.published, events.DocumentReady)
	// The index write re-reads the document under a row lock.
	assert.True(t, fx.docs.lockSeen)
}

func TestIngestRetryBudgetExhausted(t *testing.T) {
	store := &fakeBlobSource{data: []byte("Some handbook text that extracts fine.")}
	embedder := &flakyEmbedder{errs: 10}
	fx := newFixture(t, store, embedder, 2, queuedDoc())

	err := fx.mux.ProcessTask(context.Background(), fx.asynqTask)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	err = fx.mux.ProcessTask(context.Background(), fx.asynqTask)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	assert.Equal(t, entity.TaskStatusFailed, fx.tasks.status)
	assert.Equal(t, entity.DocumentStatusFailed, fx.docs.doc.Status)
	assert.Contains(t, fx.publisher.published, events.DocumentFailed)
}

func TestIngestEmptyFileFailsWithoutRetry(t *testing.T) {
	store := &fakeBlobSource{data: []byte{}}
	fx := newFixture(t, store, &flakyEmbedder{}, 3, queuedDoc())

	err := fx.mux.ProcessTask(context.Background(), fx.asynqTask)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	assert.Equal(t, 0, fx.tasks.retries)
	assert.Equal(t, entity.TaskStatusFailed, fx.tasks.status)
	assert.Equal(t, entity.DocumentStatusFailed, fx.docs.doc.Status)
	assert.Empty(t, fx.chunks.inserted)
	assert.Contains(t, fx.publisher.published, events.DocumentFailed)
}

func TestIngestTerminalTaskIsNotResurrected(t *testing.T) {
	store := &fakeBlobSource{data: []byte("irrelevant")}
	fx := newFixture(t, store, &flakyEmbedder{}, 3, queuedDoc())
	fx.tasks.status = entity.TaskStatusFailed

	require.NoError(t, fx.mux.ProcessTask(context.Background(), fx.asynqTask))
	assert.Equal(t, entity.TaskStatusFailed, fx.tasks.status)
	assert.False(t, fx.docs.ready)
}

func TestIngestDocumentDeletedWhileQueued(t *testing.T) {
	store := &fakeBlobSource{data: []byte("irrelevant")}
	fx := newFixture(t, store, &flakyEmbedder{}, 3, queuedDoc())
	fx.docs.doc = nil

	require.NoError(t, fx.mux.ProcessTask(context.Background(), fx.asynqTask))
	assert.Equal(t, entity.TaskStatusCompleted, fx.tasks.status)
	assert.NotContains(t, fx.publisher.published, events.DocumentFailed)
}
