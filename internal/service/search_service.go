package service

import (
	"context"

	"knowledge-base-be/internal/config"
	"knowledge-base-be/internal/dto"
	"knowledge-base-be/internal/entity"
	"knowledge-base-be/internal/pkg/logger"
	"knowledge-base-be/internal/repository/contract"
	"knowledge-base-be/internal/repository/specification"
	"knowledge-base-be/internal/repository/unitofwork"
	"knowledge-base-be/pkg/access"
	"knowledge-base-be/pkg/embedding"
	"knowledge-base-be/pkg/hybrid"

	"github.com/google/uuid"
)

const (
	defaultK = 10
	maxK     = 100
)

type ISearchService interface {
	Query(ctx context.Context, identity entity.Identity, req *dto.SearchRequest) (*dto.SearchResponse, error)
}

type searchService struct {
	uowFactory unitofwork.RepositoryFactory
	embedder   embedding.Provider
	weights    hybrid.Weights
	log        logger.ILogger
}

func NewSearchService(
	uowFactory unitofwork.RepositoryFactory,
	embedder embedding.Provider,
	ingestCfg config.IngestConfig,
	log logger.ILogger,
) ISearchService {
	return &searchService{
		uowFactory: uowFactory,
		embedder:   embedder,
		weights: hybrid.Weights{
			Vector:  ingestCfg.HybridVectorWeight,
			Keyword: ingestCfg.HybridKeywordWeight,
		},
		log: log,
	}
}

func (c *searchService) Query(ctx context.Context, identity entity.Identity, req *dto.SearchRequest) (*dto.SearchResponse, error) {
	k := req.K
	if k <= 0 {
		k = defaultK
	}
	if k > maxK {
		k = maxK
	}
	mode := req.Mode
	if mode == "" {
		mode = dto.SearchModeHybrid
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	chunkRepo := uow.ChunkRepository()
	filter := contract.AccessFilter{
		Department: identity.Department,
		Admin:      identity.Admin,
	}

	var vectorHits, keywordHits []*contract.ScoredChunk
	var err error

	switch mode {
	case dto.SearchModeVector:
		vectorHits, err = c.vectorSearch(ctx, chunkRepo, req.Query, k, filter)
		if err != nil {
			return nil, err
		}
	case dto.SearchModeKeyword:
		keywordHits, err = c.keywordSearch(ctx, chunkRepo, req.Query, k, filter)
		if err != nil {
			return nil, err
		}
	default:
		// Hybrid pulls k candidates from each modality before fusing, so a
		// chunk strong in only one list can still make the final top k.
		vectorHits, err = c.vectorSearch(ctx, chunkRepo, req.Query, k, filter)
		if err != nil {
			return nil, err
		}
		keywordHits, err = c.keywordSearch(ctx, chunkRepo, req.Query, k, filter)
		if err != nil {
			return nil, err
		}
	}

	ranked := c.fuse(vectorHits, keywordHits, k, mode)
	if len(ranked) == 0 {
		// No matches is a normal outcome, never an error.
		return &dto.SearchResponse{Results: []dto.SearchResultFragment{}}, nil
	}

	fragments, err := c.buildFragments(ctx, uow, identity, ranked)
	if err != nil {
		return nil, err
	}
	return &dto.SearchResponse{Results: fragments}, nil
}

func (c *searchService) vectorSearch(ctx context.Context, repo contract.ChunkRepository, query string, k int, filter contract.AccessFilter) ([]*contract.ScoredChunk, error) {
	vectors, err := c.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, &dto.SearchUnavailableError{Cause: err}
	}
	hits, err := repo.SearchSimilarWithScore(ctx, vectors[0], k, filter)
	if err != nil {
		return nil, &dto.SearchUnavailableError{Cause: err}
	}
	return hits, nil
}

func (c *searchService) keywordSearch(ctx context.Context, repo contract.ChunkRepository, query string, k int, filter contract.AccessFilter) ([]*contract.ScoredChunk, error) {
	hits, err := repo.SearchKeywordWithScore(ctx, query, k, filter)
	if err != nil {
		return nil, &dto.SearchUnavailableError{Cause: err}
	}
	return hits, nil
}

// rankedChunk pairs the fused score with the chunk row it belongs to.
type rankedChunk struct {
	chunk *entity.Chunk
	score float64
}

func (c *searchService) fuse(vectorHits, keywordHits []*contract.ScoredChunk, k int, mode string) []rankedChunk {
	byId := make(map[uuid.UUID]*entity.Chunk, len(vectorHits)+len(keywordHits))

	toEntries := func(hits []*contract.ScoredChunk) []hybrid.Entry {
		entries := make([]hybrid.Entry, 0, len(hits))
		for _, h := range hits {
			byId[h.Chunk.Id] = h.Chunk
			entries = append(entries, hybrid.Entry{
				ChunkId:  h.Chunk.Id,
				SeqIndex: h.Chunk.SeqIndex,
				Score:    h.Score,
			})
		}
		return entries
	}

	vEntries := toEntries(vectorHits)
	kEntries := toEntries(keywordHits)

	var merged []hybrid.Result
	switch mode {
	case dto.SearchModeVector:
		merged = hybrid.Merge(vEntries, nil, k, c.weights)
	case dto.SearchModeKeyword:
		merged = hybrid.Merge(nil, kEntries, k, c.weights)
	default:
		merged = hybrid.Merge(vEntries, kEntries, k, c.weights)
	}

	ranked := make([]rankedChunk, 0, len(merged))
	for _, r := range merged {
		ranked = append(ranked, rankedChunk{chunk: byId[r.ChunkId], score: r.Score})
	}
	return ranked
}

// buildFragments joins ranked chunks with their documents and re-verifies
// visibility on the loaded rows. The SQL filter already applied it; this
// guards against a visibility change racing the query.
func (c *searchService) buildFragments(ctx context.Context, uow unitofwork.UnitOfWork, identity entity.Identity, ranked []rankedChunk) ([]dto.SearchResultFragment, error) {
	docIds := make([]uuid.UUID, 0, len(ranked))
	seen := make(map[uuid.UUID]bool, len(ranked))
	for _, r := range ranked {
		if !seen[r.chunk.DocumentId] {
			seen[r.chunk.DocumentId] = true
			docIds = append(docIds, r.chunk.DocumentId)
		}
	}

	docs, err := uow.DocumentRepository().FindAll(ctx, specification.ByIDs{IDs: docIds})
	if err != nil {
		return nil, err
	}
	docById := make(map[uuid.UUID]*entity.Document, len(docs))
	for _, d := range docs {
		docById[d.Id] = d
	}

	fragments := make([]dto.SearchResultFragment, 0, len(ranked))
	for _, r := range ranked {
		doc, ok := docById[r.chunk.DocumentId]
		if !ok || doc.Status != entity.DocumentStatusReady || !access.Visible(identity, doc) {
			continue
		}
		fragments = append(fragments, dto.SearchResultFragment{
			DocumentId:  doc.Id,
			ChunkId:     r.chunk.Id,
			SeqIndex:    r.chunk.SeqIndex,
			Text:        r.chunk.Text,
			Score:       r.score,
			StartOffset: r.chunk.StartOffset,
			EndOffset:   r.chunk.EndOffset,
			Page:        r.chunk.Metadata.Page,
			Section:     r.chunk.Metadata.Section,
			Filename:    doc.Filename,
		})
	}
	return fragments, nil
}
