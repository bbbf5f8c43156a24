package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"knowledge-base-be/internal/config"
	"knowledge-base-be/internal/dto"
	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/repository/contract"
	"knowledge-base-be/internal/repository/specification"
	"knowledge-base-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) ModelVersion() string { return "test/v1" }
func (f *fakeEmbedder) Dimension() int       { return 3 }

type fakeChunkRepo struct {
	contract.ChunkRepository

	vectorHits  []*contract.ScoredChunk
	keywordHits []*contract.ScoredChunk
	vectorErr   error
	keywordErr  error
}

func (f *fakeChunkRepo) SearchSimilarWithScore(_ context.Context, _ []float32, _ int, _ contract.AccessFilter) ([]*contract.ScoredChunk, error) {
	return f.vectorHits, f.vectorErr
}

func (f *fakeChunkRepo) SearchKeywordWithScore(_ context.Context, _ string, _ int, _ contract.AccessFilter) ([]*contract.ScoredChunk, error) {
	return f.keywordHits, f.keywordErr
}

type fakeDocRepo struct {
	contract.DocumentRepository

	docs map[uuid.UUID]*entity.Document
}

func (f *fakeDocRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, s := range specs {
		if byIds, ok := s.(specification.ByIDs); ok {
			for _, id := range byIds.IDs {
				if d, found := f.docs[id]; found {
					out = append(out, d)
				}
			}
		}
	}
	return out, nil
}

type fakeUow struct {
	unitofwork.UnitOfWork

	chunks contract.ChunkRepository
	docs   contract.DocumentRepository
	tasks  contract.IngestionTaskRepository
}

func (f *fakeUow) ChunkRepository() contract.ChunkRepository { return f.chunks }

func (f *fakeUow) DocumentRepository() contract.DocumentRepository { return f.docs }

func (f *fakeUow) IngestionTaskRepository() contract.IngestionTaskRepository { return f.tasks }

type fakeFactory struct {
	uow *fakeUow
}

func (f *fakeFactory) NewUnitOfWork(_ context.Context) unitofwork.UnitOfWork { return f.uow }

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// --- helpers ---

func readyDoc(name string) *entity.Document {
	return &entity.Document{
		Id:          uuid.New(),
		Filename:    name,
		Status:      entity.DocumentStatusReady,
		CompanyWide: true,
		CreatedAt:   time.Now(),
	}
}

func scored(doc *entity.Document, seq int, text string, score float64) *contract.ScoredChunk {
	return &contract.ScoredChunk{
		Chunk: &entity.Chunk{
			Id:          uuid.New(),
			DocumentId:  doc.Id,
			SeqIndex:    seq,
			Text:        text,
			StartOffset: seq * 100,
			EndOffset:   seq*100 + len(text),
		},
		Score: score,
	}
}

func newTestSearchService(chunks *fakeChunkRepo, docs *fakeDocRepo, embedErr error) ISearchService {
	return NewSearchService(
		&fakeFactory{uow: &fakeUow{chunks: chunks, docs: docs}},
		&fakeEmbedder{err: embedErr},
		config.IngestConfig{HybridVectorWeight: 1.0, HybridKeywordWeight: 1.0},
		nopLogger{},
	)
}

// --- tests ---

func TestQueryHybridFusesBothModalities(t *testing.T) {
	doc := readyDoc("handbook.pdf")
	shared := scored(doc, 0, "vacation policy details", 0.9)

	chunks := &fakeChunkRepo{
		vectorHits: []*contract.ScoredChunk{
			shared,
			scored(doc, 1, "unrelated but similar", 0.5),
		},
		keywordHits: []*contract.ScoredChunk{
			{Chunk: shared.Chunk, Score: 4.2},
			scored(doc, 2, "vacation mentioned once", 1.0),
		},
	}
	docs := &fakeDocRepo{docs: map[uuid.UUID]*entity.Document{doc.Id: doc}}

	svc := newTestSearchService(chunks, docs, nil)
	res, err := svc.Query(context.Background(), entity.Identity{Department: "hr"}, &dto.SearchRequest{Query: "vacation policy"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)

	// The chunk found by both modalities ranks first.
	assert.Equal(t, shared.Chunk.Id, res.Results[0].ChunkId)
	assert.Equal(t, "handbook.pdf", res.Results[0].Filename)
	assert.Equal(t, doc.Id, res.Results[0].DocumentId)
}

func TestQueryVectorModeEmbeddingDown(t *testing.T) {
	svc := newTestSearchService(&fakeChunkRepo{}, &fakeDocRepo{}, errors.New("connection refused"))

	_, err := svc.Query(context.Background(), entity.Identity{}, &dto.SearchRequest{
		Query: "anything",
		Mode:  dto.SearchModeVector,
	})
	require.Error(t, err)

	var unavailable *dto.SearchUnavailableError
	assert.True(t, errors.As(err, &unavailable))
}

func TestQueryKeywordModeIndexDown(t *testing.T) {
	chunks := &fakeChunkRepo{keywordErr: errors.New("pq: connection reset")}
	svc := newTestSearchService(chunks, &fakeDocRepo{}, nil)

	_, err := svc.Query(context.Background(), entity.Identity{}, &dto.SearchRequest{
		Query: "anything",
		Mode:  dto.SearchModeKeyword,
	})
	require.Error(t, err)

	var unavailable *dto.SearchUnavailableError
	assert.True(t, errors.As(err, &unavailable))
}

func TestQueryNoMatchesIsEmptyNotError(t *testing.T) {
	svc := newTestSearchService(&fakeChunkRepo{}, &fakeDocRepo{}, nil)

	res, err := svc.Query(context.Background(), entity.Identity{}, &dto.SearchRequest{Query: "nothing matches"})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.NotNil(t, res.Results)
}

func TestQueryDropsChunksTurnedInvisible(t *testing.T) {
	visible := readyDoc("open.txt")
	hidden := &entity.Document{
		Id:                 uuid.New(),
		Filename:           "secret.txt",
		Status:             entity.DocumentStatusReady,
		AllowedDepartments: []string{"finance"},
	}
	notReady := &entity.Document{
		Id:          uuid.New(),
		Filename:    "reprocessing.txt",
		Status:      entity.DocumentStatusProcessing,
		CompanyWide: true,
	}

	chunks := &fakeChunkRepo{
		vectorHits: []*contract.ScoredChunk{
			scored(visible, 0, "public content", 0.9),
			scored(hidden, 0, "restricted content", 0.8),
			scored(notReady, 0, "half-ingested content", 0.7),
		},
	}
	docs := &fakeDocRepo{docs: map[uuid.UUID]*entity.Document{
		visible.Id:  visible,
		hidden.Id:   hidden,
		notReady.Id: notReady,
	}}

	svc := newTestSearchService(chunks, docs, nil)
	res, err := svc.Query(context.Background(), entity.Identity{Department: "hr"}, &dto.SearchRequest{
		Query: "content",
		Mode:  dto.SearchModeVector,
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "open.txt", res.Results[0].Filename)
}

func TestQueryHonorsKLimit(t *testing.T) {
	doc := readyDoc("big.txt")
	var hits []*contract.ScoredChunk
	for i := 0; i < 20; i++ {
		hits = append(hits, scored(doc, i, "text", float64(20-i)))
	}

	chunks := &fakeChunkRepo{vectorHits: hits}
	docs := &fakeDocRepo{docs: map[uuid.UUID]*entity.Document{doc.Id: doc}}

	svc := newTestSearchService(chunks, docs, nil)
	res, err := svc.Query(context.Background(), entity.Identity{}, &dto.SearchRequest{
		Query: "text",
		K:     5,
		Mode:  dto.SearchModeVector,
	})
	require.NoError(t, err)
	assert.Len(t, res.Results, 5)
}
