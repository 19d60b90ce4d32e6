package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"docrag-be/internal/apperror"
	"docrag-be/internal/dto"
	"docrag-be/internal/entity"
	"docrag-be/internal/pkg/logger"
	"docrag-be/internal/repository/contract"
	"docrag-be/internal/repository/unitofwork"
	"docrag-be/pkg/embedding"
	"docrag-be/pkg/fulltext"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	searchModule = "search"

	SourceFullText = "fulltext"
	SourceVector   = "vector"

	VectorScoreSimilarity       = "similarity"
	VectorScoreLeadingComponent = "leading_component"

	// Several chunks of one document can crowd the vector leg, so it over-fetches.
	vectorOverfetch = 3
)

var tracer = otel.Tracer("docrag-be/service")

type ISearchService interface {
	FindSimilar(ctx context.Context, req *dto.SimilarRequest) (*dto.SearchResponse, error)
	FindSimilarDocuments(ctx context.Context, documentId uuid.UUID, limit int) (*dto.SearchResponse, error)
	BatchFindSimilar(ctx context.Context, req *dto.BatchSimilarRequest) ([]*dto.SearchResponse, error)
}

type SearchServiceConfig struct {
	FullTextBoost   float64
	DefaultLimit    int
	MaxBatch        int
	VectorScoreMode string
}

type searchService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	index             fulltext.Index
	logger            logger.ILogger
	cfg               SearchServiceConfig
}

func NewSearchService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	index fulltext.Index,
	log logger.ILogger,
	cfg SearchServiceConfig,
) ISearchService {
	if cfg.FullTextBoost <= 0 {
		cfg.FullTextBoost = 1.2
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 5
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 10
	}
	if cfg.VectorScoreMode == "" {
		cfg.VectorScoreMode = VectorScoreSimilarity
	}
	return &searchService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		index:             index,
		logger:            log,
		cfg:               cfg,
	}
}

// searchSeed is what both legs search with. Vector is embedded from Text when nil.
type searchSeed struct {
	Text          string
	Vector        []float32
	CollectionIds []uuid.UUID
	Exclude       *uuid.UUID
	Limit         int
}

func (s *searchService) FindSimilar(ctx context.Context, req *dto.SimilarRequest) (*dto.SearchResponse, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, "Search content must not be empty")
	}
	return s.search(ctx, searchSeed{
		Text:          req.Content,
		CollectionIds: req.CollectionIds,
		Limit:         req.Limit,
	})
}

func (s *searchService) FindSimilarDocuments(ctx context.Context, documentId uuid.UUID, limit int) (*dto.SearchResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindById(ctx, documentId)
	if err != nil {
		return nil, storageError(err, "Failed to load document")
	}
	if doc == nil {
		return nil, apperror.NotFound(apperror.CodeDocumentNotFound, "Document not found")
	}

	seed := searchSeed{Text: doc.Summary, Exclude: &doc.Id, Limit: limit}

	version, err := uow.VersionRepository().FindActive(ctx, doc.Id)
	if err != nil {
		return nil, storageError(err, "Failed to load version")
	}
	if version != nil && version.HasRange() {
		first, err := uow.ChunkRepository().FindByIndex(ctx, doc.Id, version.VersionNumber, 0)
		if err != nil {
			return nil, storageError(err, "Failed to load chunk")
		}
		if first != nil {
			seed.Vector = first.Embedding
			if seed.Text == "" {
				seed.Text = first.Content
			}
		}
	}
	if strings.TrimSpace(seed.Text) == "" && seed.Vector == nil {
		return &dto.SearchResponse{Results: []dto.SearchResult{}}, nil
	}

	return s.search(ctx, seed)
}

func (s *searchService) BatchFindSimilar(ctx context.Context, req *dto.BatchSimilarRequest) ([]*dto.SearchResponse, error) {
	if len(req.Requests) == 0 {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, "At least one search request is required")
	}
	if len(req.Requests) > s.cfg.MaxBatch {
		return nil, apperror.Validation(apperror.CodeBatchLimitExceeded,
			fmt.Sprintf("At most %d search requests are allowed per batch", s.cfg.MaxBatch))
	}

	res := make([]*dto.SearchResponse, len(req.Requests))
	for i := range req.Requests {
		r, err := s.FindSimilar(ctx, &req.Requests[i])
		if err != nil {
			return nil, err
		}
		res[i] = r
	}
	return res, nil
}

func (s *searchService) search(ctx context.Context, seed searchSeed) (*dto.SearchResponse, error) {
	limit := seed.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	ctx, span := tracer.Start(ctx, "search.find_similar")
	defer span.End()
	span.SetAttributes(attribute.Int("search.limit", limit), attribute.Int("search.collections", len(seed.CollectionIds)))

	var (
		hits   []fulltext.Hit
		scored []*contract.ScoredChunk
	)

	// Legs share no context cancellation: one failing does not stop the other.
	g := new(errgroup.Group)
	g.Go(func() error {
		legCtx, legSpan := tracer.Start(ctx, "search.fulltext")
		defer legSpan.End()

		var err error
		if strings.TrimSpace(seed.Text) != "" {
			hits, err = s.index.Search(legCtx, seed.Text, fulltext.Filters{CollectionIds: seed.CollectionIds, DistinctDocuments: true}, limit+1)
		}
		if err != nil {
			legSpan.RecordError(err)
			legSpan.SetStatus(codes.Error, "full-text search failed")
			return fmt.Errorf("full-text search: %w", err)
		}
		legSpan.SetAttributes(attribute.Int("search.hits", len(hits)))
		return nil
	})
	g.Go(func() error {
		legCtx, legSpan := tracer.Start(ctx, "search.vector")
		defer legSpan.End()

		var err error
		scored, err = s.vectorLeg(legCtx, seed, limit)
		if err != nil {
			legSpan.RecordError(err)
			legSpan.SetStatus(codes.Error, "vector search failed")
			return fmt.Errorf("vector search: %w", err)
		}
		legSpan.SetAttributes(attribute.Int("search.hits", len(scored)))
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		s.logger.Error(searchModule, "Hybrid search failed", map[string]interface{}{"error": err.Error()})
		return nil, apperror.SearchBackend("Search backend failed", err)
	}

	if seed.Exclude != nil {
		hits = excludeHits(hits, *seed.Exclude)
		scored = excludeChunks(scored, *seed.Exclude)
	}

	results := Fuse(hits, scored, s.cfg.FullTextBoost, s.cfg.VectorScoreMode)
	results, err := s.attachMetadata(ctx, results)
	if err != nil {
		return nil, err
	}

	total := len(results)
	if len(results) > limit {
		results = results[:limit]
	}

	return &dto.SearchResponse{
		Results:       results,
		Total:         total,
		FullTextTotal: len(hits),
		VectorTotal:   len(scored),
	}, nil
}

func (s *searchService) vectorLeg(ctx context.Context, seed searchSeed, limit int) ([]*contract.ScoredChunk, error) {
	vector := seed.Vector
	if vector == nil {
		res, err := s.embeddingProvider.Generate(ctx, seed.Text, embedding.TaskRetrievalQuery)
		if err != nil {
			return nil, err
		}
		vector = res.Embedding.Values
	}

	scope := contract.ChunkScope{CollectionIds: seed.CollectionIds, ActiveOnly: true}
	if seed.Exclude != nil {
		scope.ExcludeDocumentIds = []uuid.UUID{*seed.Exclude}
	}
	return s.uowFactory.NewUnitOfWork(ctx).ChunkRepository().SearchSimilar(ctx, vector, scope, limit*vectorOverfetch)
}

// Fuse merges full-text hits and vector matches into one list with one entry per
// document. The first occurrence wins, full-text before vector. Full-text ranks
// are boosted; the output is stable-sorted by rank, highest first.
func Fuse(hits []fulltext.Hit, scored []*contract.ScoredChunk, boost float64, vectorScoreMode string) []dto.SearchResult {
	seen := make(map[uuid.UUID]bool, len(hits)+len(scored))
	results := make([]dto.SearchResult, 0, len(hits)+len(scored))

	for _, h := range hits {
		if seen[h.DocumentId] {
			continue
		}
		seen[h.DocumentId] = true
		results = append(results, dto.SearchResult{
			DocumentId: h.DocumentId,
			ChunkId:    h.ChunkId,
			Source:     SourceFullText,
			Score:      h.Score,
			Rank:       h.Score * boost,
		})
	}

	for _, sc := range scored {
		if seen[sc.Chunk.DocumentId] {
			continue
		}
		seen[sc.Chunk.DocumentId] = true
		score := VectorScore(sc, vectorScoreMode)
		results = append(results, dto.SearchResult{
			DocumentId: sc.Chunk.DocumentId,
			ChunkId:    sc.Chunk.Id,
			Source:     SourceVector,
			Score:      score,
			Rank:       score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Rank > results[j].Rank
	})
	return results
}

// VectorScore is the raw score of a vector match. The leading-component mode
// reproduces the legacy heuristic and ignores the query entirely.
func VectorScore(sc *contract.ScoredChunk, mode string) float64 {
	if mode == VectorScoreLeadingComponent {
		if len(sc.Chunk.Embedding) == 0 {
			return 1
		}
		return 1 - float64(sc.Chunk.Embedding[0])*0.1
	}
	return sc.Similarity
}

// attachMetadata fills in document details and drops hits whose document is gone.
func (s *searchService) attachMetadata(ctx context.Context, results []dto.SearchResult) ([]dto.SearchResult, error) {
	if len(results) == 0 {
		return []dto.SearchResult{}, nil
	}

	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.DocumentId
	}
	docs, err := s.uowFactory.NewUnitOfWork(ctx).DocumentRepository().FindByIds(ctx, ids)
	if err != nil {
		return nil, apperror.SearchBackend("Failed to load search result documents", err)
	}
	byId := make(map[uuid.UUID]*entity.Document, len(docs))
	for _, d := range docs {
		byId[d.Id] = d
	}

	out := results[:0]
	for _, r := range results {
		d, ok := byId[r.DocumentId]
		if !ok {
			continue
		}
		r.Metadata = dto.SearchResultMetadata{
			FileName:     d.FileName,
			FileType:     d.FileType,
			Summary:      d.Summary,
			Tags:         d.Tags,
			CollectionId: d.CollectionId,
		}
		out = append(out, r)
	}
	return out, nil
}

func excludeHits(hits []fulltext.Hit, documentId uuid.UUID) []fulltext.Hit {
	out := make([]fulltext.Hit, 0, len(hits))
	for _, h := range hits {
		if h.DocumentId != documentId {
			out = append(out, h)
		}
	}
	return out
}

func excludeChunks(scored []*contract.ScoredChunk, documentId uuid.UUID) []*contract.ScoredChunk {
	out := make([]*contract.ScoredChunk, 0, len(scored))
	for _, sc := range scored {
		if sc.Chunk.DocumentId != documentId {
			out = append(out, sc)
		}
	}
	return out
}
