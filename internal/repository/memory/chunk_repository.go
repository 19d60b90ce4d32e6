package memory

import (
	"context"
	"math"
	"sort"
	"time"

	"docrag-be/internal/entity"
	"docrag-be/internal/repository/contract"

	"github.com/google/uuid"
)

type ChunkRepository struct {
	s *Store
}

func NewChunkRepository(s *Store) contract.ChunkRepository {
	return &ChunkRepository{s: s}
}

func (r *ChunkRepository) CreateBulk(ctx context.Context, chunks []*entity.Chunk) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	for _, c := range chunks {
		r.s.nextChunkId++
		c.Id = r.s.nextChunkId
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		r.s.chunks[c.Id] = copyChunk(c)
	}
	return nil
}

func (r *ChunkRepository) collect(match func(*entity.Chunk) bool) []*entity.Chunk {
	out := []*entity.Chunk{}
	for _, c := range r.s.chunks {
		if match(c) {
			out = append(out, copyChunk(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

func (r *ChunkRepository) FindByDocument(ctx context.Context, documentId uuid.UUID) ([]*entity.Chunk, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.collect(func(c *entity.Chunk) bool { return c.DocumentId == documentId })
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VersionNumber != out[j].VersionNumber {
			return out[i].VersionNumber < out[j].VersionNumber
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out, nil
}

func (r *ChunkRepository) FindByRange(ctx context.Context, documentId uuid.UUID, rng contract.IdRange) ([]*entity.Chunk, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.collect(func(c *entity.Chunk) bool {
		return c.DocumentId == documentId && c.Id >= rng.Start && c.Id <= rng.End
	}), nil
}

func (r *ChunkRepository) FindByIndex(ctx context.Context, documentId uuid.UUID, versionNumber int, chunkIndex int) (*entity.Chunk, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.chunks {
		if c.DocumentId == documentId && c.VersionNumber == versionNumber && c.ChunkIndex == chunkIndex {
			return copyChunk(c), nil
		}
	}
	return nil, nil
}

func (r *ChunkRepository) SearchSimilar(ctx context.Context, embedding []float32, s contract.ChunkScope, limit int) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	docs := toSet(s.DocumentIds)
	excluded := toSet(s.ExcludeDocumentIds)
	cols := toSet(s.CollectionIds)

	active := map[uuid.UUID]*entity.Version{}
	if s.ActiveOnly {
		for _, v := range r.s.versions {
			if v.IsActive {
				active[v.DocumentId] = v
			}
		}
	}

	var scored []*contract.ScoredChunk
	for _, c := range r.s.chunks {
		if len(docs) > 0 && !docs[c.DocumentId] {
			continue
		}
		if excluded[c.DocumentId] {
			continue
		}
		if len(cols) > 0 {
			d, ok := r.s.documents[c.DocumentId]
			if !ok || d.CollectionId == nil || !cols[*d.CollectionId] {
				continue
			}
		}
		if s.Range != nil && (c.Id < s.Range.Start || c.Id > s.Range.End) {
			continue
		}
		if s.ActiveOnly {
			v, ok := active[c.DocumentId]
			if !ok || c.Id < v.ChunkStartId || c.Id > v.ChunkEndId {
				continue
			}
		}
		distance := cosineDistance(embedding, c.Embedding)
		scored = append(scored, &contract.ScoredChunk{
			Chunk:      copyChunk(c),
			Distance:   distance,
			Similarity: 1 - distance,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Distance != scored[j].Distance {
			return scored[i].Distance < scored[j].Distance
		}
		return scored[i].Chunk.Id < scored[j].Chunk.Id
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentId uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.chunks {
		if c.DocumentId == documentId {
			delete(r.s.chunks, id)
		}
	}
	return nil
}

func (r *ChunkRepository) CountByDocument(ctx context.Context, documentId uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, c := range r.s.chunks {
		if c.DocumentId == documentId {
			n++
		}
	}
	return n, nil
}

func toSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// cosineDistance mirrors pgvector's <=>: 1 - cos(a, b). Zero vectors are at distance 1.
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
