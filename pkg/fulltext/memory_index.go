package fulltext

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memoryEntry struct {
	hit          Hit
	collectionId *uuid.UUID
	tokens       map[string]int
	seq          int
}

// MemoryIndex scores an entry by the fraction of query terms it contains.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	seq     int
}

var _ Index = (*MemoryIndex)(nil)

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]*memoryEntry)}
}

func (m *MemoryIndex) put(id, kind string, documentId uuid.UUID, chunkId int64, collectionId *uuid.UUID, text string) {
	tokens := make(map[string]int)
	for _, t := range tokenize(text) {
		tokens[t]++
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seq := m.seq
	if existing, ok := m.entries[id]; ok {
		seq = existing.seq
	} else {
		m.seq++
	}
	m.entries[id] = &memoryEntry{
		hit:          Hit{Id: id, Kind: kind, DocumentId: documentId, ChunkId: chunkId},
		collectionId: collectionId,
		tokens:       tokens,
		seq:          seq,
	}
}

func (m *MemoryIndex) IndexDocument(ctx context.Context, doc DocumentEntry) error {
	text := doc.Title + " " + doc.Summary + " " + strings.Join(doc.Tags, " ")
	m.put(documentEntryId(doc.DocumentId), KindDocument, doc.DocumentId, 0, doc.CollectionId, text)
	return nil
}

func (m *MemoryIndex) IndexChunk(ctx context.Context, chunk ChunkEntry) error {
	m.put(chunkEntryId(chunk.ChunkId), KindChunk, chunk.DocumentId, chunk.ChunkId, chunk.CollectionId, chunk.Content)
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, query string, filters Filters, limit int) ([]Hit, error) {
	terms := Terms(query)
	if len(terms) == 0 {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	collections := make(map[uuid.UUID]bool, len(filters.CollectionIds))
	for _, id := range filters.CollectionIds {
		collections[id] = true
	}
	documents := make(map[uuid.UUID]bool, len(filters.DocumentIds))
	for _, id := range filters.DocumentIds {
		documents[id] = true
	}

	m.mu.RLock()
	type scored struct {
		hit Hit
		seq int
	}
	var matches []scored
	for _, e := range m.entries {
		if len(collections) > 0 && (e.collectionId == nil || !collections[*e.collectionId]) {
			continue
		}
		if len(documents) > 0 && !documents[e.hit.DocumentId] {
			continue
		}
		matched := 0
		for _, term := range terms {
			if e.tokens[term] > 0 {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hit := e.hit
		hit.Score = float64(matched) / float64(len(terms))
		matches = append(matches, scored{hit: hit, seq: e.seq})
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].hit.Score != matches[j].hit.Score {
			return matches[i].hit.Score > matches[j].hit.Score
		}
		return matches[i].seq < matches[j].seq
	})

	hits := make([]Hit, 0, limit)
	seen := make(map[uuid.UUID]bool)
	for _, s := range matches {
		if len(hits) == limit {
			break
		}
		if filters.DistinctDocuments {
			if seen[s.hit.DocumentId] {
				continue
			}
			seen[s.hit.DocumentId] = true
		}
		hits = append(hits, s.hit)
	}
	return hits, nil
}

func (m *MemoryIndex) DeleteDocument(ctx context.Context, documentId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.entries {
		if e.hit.DocumentId == documentId {
			delete(m.entries, id)
		}
	}
	return nil
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
