package memory

import (
	"context"
	"sort"
	"time"

	"docrag-be/internal/entity"
	"docrag-be/internal/repository/contract"

	"github.com/google/uuid"
)

type DocumentRepository struct {
	s *Store
}

func NewDocumentRepository(s *Store) contract.DocumentRepository {
	return &DocumentRepository{s: s}
}

func (r *DocumentRepository) Create(ctx context.Context, document *entity.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if document.Id == uuid.Nil {
		document.Id = uuid.New()
	}
	if document.Revision == 0 {
		document.Revision = 1
	}
	if document.CreatedAt.IsZero() {
		document.CreatedAt = time.Now()
	}
	r.s.documents[document.Id] = copyDocument(document)
	return nil
}

func (r *DocumentRepository) UpdateWithRevision(ctx context.Context, document *entity.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.documents[document.Id]
	if !ok || stored.Revision != document.Revision {
		return contract.ErrStaleRevision
	}
	now := time.Now()
	document.Revision++
	document.UpdatedAt = &now
	// Access stats are written by TouchAccess only.
	document.AccessCount = stored.AccessCount
	document.LastAccessedAt = stored.LastAccessedAt
	r.s.documents[document.Id] = copyDocument(document)
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.documents, id)
	return nil
}

func (r *DocumentRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.documents[id]
	if !ok {
		return nil, nil
	}
	return copyDocument(d), nil
}

func (r *DocumentRepository) FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entity.Document{}
	for _, id := range ids {
		if d, ok := r.s.documents[id]; ok {
			out = append(out, copyDocument(d))
		}
	}
	return out, nil
}

func (r *DocumentRepository) FindByOwner(ctx context.Context, ownerId uuid.UUID, opts contract.ListOptions) ([]*entity.Document, error) {
	r.s.mu.RLock()
	out := []*entity.Document{}
	for _, d := range r.s.documents {
		if d.OwnerId == ownerId {
			out = append(out, copyDocument(d))
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, opts), nil
}

func (r *DocumentRepository) TouchAccess(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d, ok := r.s.documents[id]; ok {
		now := time.Now()
		d.AccessCount++
		d.LastAccessedAt = &now
	}
	return nil
}

func (r *DocumentRepository) CountByCollection(ctx context.Context, collectionId uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, d := range r.s.documents {
		if d.CollectionId != nil && *d.CollectionId == collectionId {
			n++
		}
	}
	return n, nil
}

func paginate[T any](items []T, opts contract.ListOptions) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return []T{}
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
