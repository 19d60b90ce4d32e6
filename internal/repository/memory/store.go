package memory

import (
	"context"
	"sync"

	"docrag-be/internal/entity"

	"github.com/google/uuid"
)

// Store holds every table for the in-memory driver. One Store is shared by all
// units of work; tx serializes transactions the way a single writer would.
type Store struct {
	mu sync.RWMutex
	tx sync.Mutex

	documents   map[uuid.UUID]*entity.Document
	versions    map[uuid.UUID]*entity.Version
	chunks      map[int64]*entity.Chunk
	collections map[uuid.UUID]*entity.Collection
	deadLetters []*entity.DeadLetter

	// nextChunkId is never rolled back, matching a database sequence.
	nextChunkId int64
}

func NewStore() *Store {
	return &Store{
		documents:   make(map[uuid.UUID]*entity.Document),
		versions:    make(map[uuid.UUID]*entity.Version),
		chunks:      make(map[int64]*entity.Chunk),
		collections: make(map[uuid.UUID]*entity.Collection),
	}
}

type snapshot struct {
	documents   map[uuid.UUID]*entity.Document
	versions    map[uuid.UUID]*entity.Version
	chunks      map[int64]*entity.Chunk
	collections map[uuid.UUID]*entity.Collection
	deadLetters []*entity.DeadLetter
}

func (s *Store) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &snapshot{
		documents:   make(map[uuid.UUID]*entity.Document, len(s.documents)),
		versions:    make(map[uuid.UUID]*entity.Version, len(s.versions)),
		chunks:      make(map[int64]*entity.Chunk, len(s.chunks)),
		collections: make(map[uuid.UUID]*entity.Collection, len(s.collections)),
		deadLetters: append([]*entity.DeadLetter(nil), s.deadLetters...),
	}
	for k, v := range s.documents {
		snap.documents[k] = copyDocument(v)
	}
	for k, v := range s.versions {
		c := *v
		snap.versions[k] = &c
	}
	for k, v := range s.chunks {
		snap.chunks[k] = v
	}
	for k, v := range s.collections {
		snap.collections[k] = copyCollection(v)
	}
	return snap
}

func (s *Store) restore(snap *snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = snap.documents
	s.versions = snap.versions
	s.chunks = snap.chunks
	s.collections = snap.collections
	s.deadLetters = snap.deadLetters
}

func copyDocument(d *entity.Document) *entity.Document {
	c := *d
	c.Tags = append([]string(nil), d.Tags...)
	return &c
}

func copyCollection(col *entity.Collection) *entity.Collection {
	c := *col
	c.AccessUsers = append([]string(nil), col.AccessUsers...)
	c.AccessRoles = append([]string(nil), col.AccessRoles...)
	c.Tags = append([]string(nil), col.Tags...)
	if col.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(col.Metadata))
		for k, v := range col.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func copyChunk(ch *entity.Chunk) *entity.Chunk {
	c := *ch
	c.Embedding = append([]float32(nil), ch.Embedding...)
	return &c
}

// Tx is an open transaction on a Store.
type Tx struct {
	s    *Store
	snap *snapshot
}

// Begin waits for any other transaction to finish. It gives up when ctx is done.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	acquired := make(chan struct{})
	go func() {
		s.tx.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-ctx.Done():
		go func() {
			<-acquired
			s.tx.Unlock()
		}()
		return nil, ctx.Err()
	}
	return &Tx{s: s, snap: s.snapshot()}, nil
}

func (t *Tx) Commit() {
	t.s.tx.Unlock()
}

func (t *Tx) Rollback() {
	t.s.restore(t.snap)
	t.s.tx.Unlock()
}
