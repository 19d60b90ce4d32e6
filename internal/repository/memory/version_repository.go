package memory

import (
	"context"
	"sort"
	"time"

	"docrag-be/internal/entity"
	"docrag-be/internal/repository/contract"

	"github.com/google/uuid"
)

type VersionRepository struct {
	s *Store
}

func NewVersionRepository(s *Store) contract.VersionRepository {
	return &VersionRepository{s: s}
}

func (r *VersionRepository) Create(ctx context.Context, version *entity.Version) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, v := range r.s.versions {
		if v.DocumentId == version.DocumentId && v.VersionNumber == version.VersionNumber {
			return contract.ErrStaleRevision
		}
	}
	if version.Id == uuid.Nil {
		version.Id = uuid.New()
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now()
	}
	c := *version
	r.s.versions[version.Id] = &c
	return nil
}

func (r *VersionRepository) Update(ctx context.Context, version *entity.Version) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	version.UpdatedAt = &now
	c := *version
	r.s.versions[version.Id] = &c
	return nil
}

func (r *VersionRepository) byDocument(documentId uuid.UUID) []*entity.Version {
	out := []*entity.Version{}
	for _, v := range r.s.versions {
		if v.DocumentId == documentId {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out
}

func (r *VersionRepository) FindLatest(ctx context.Context, documentId uuid.UUID) (*entity.Version, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	versions := r.byDocument(documentId)
	if len(versions) == 0 {
		return nil, nil
	}
	return versions[0], nil
}

func (r *VersionRepository) FindActive(ctx context.Context, documentId uuid.UUID) (*entity.Version, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.byDocument(documentId) {
		if v.IsActive {
			return v, nil
		}
	}
	return nil, nil
}

func (r *VersionRepository) FindByNumber(ctx context.Context, documentId uuid.UUID, number int) (*entity.Version, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.byDocument(documentId) {
		if v.VersionNumber == number {
			return v, nil
		}
	}
	return nil, nil
}

func (r *VersionRepository) FindByDocument(ctx context.Context, documentId uuid.UUID) ([]*entity.Version, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.byDocument(documentId), nil
}

func (r *VersionRepository) Deactivate(ctx context.Context, documentId uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.versions {
		if v.DocumentId == documentId {
			v.IsActive = false
		}
	}
	return nil
}

func (r *VersionRepository) DeleteByDocument(ctx context.Context, documentId uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, v := range r.s.versions {
		if v.DocumentId == documentId {
			delete(r.s.versions, id)
		}
	}
	return nil
}
