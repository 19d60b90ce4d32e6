package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"docrag-be/internal/entity"
	"docrag-be/internal/repository/contract"

	"github.com/google/uuid"
)

type CollectionRepository struct {
	s *Store
}

func NewCollectionRepository(s *Store) contract.CollectionRepository {
	return &CollectionRepository{s: s}
}

func (r *CollectionRepository) Create(ctx context.Context, collection *entity.Collection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if collection.Id == uuid.Nil {
		collection.Id = uuid.New()
	}
	if collection.Revision == 0 {
		collection.Revision = 1
	}
	if collection.CreatedAt.IsZero() {
		collection.CreatedAt = time.Now()
	}
	r.s.collections[collection.Id] = copyCollection(collection)
	return nil
}

func (r *CollectionRepository) UpdateWithRevision(ctx context.Context, collection *entity.Collection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.collections[collection.Id]
	if !ok || stored.Revision != collection.Revision {
		return contract.ErrStaleRevision
	}
	now := time.Now()
	collection.Revision++
	collection.UpdatedAt = &now
	collection.OwnerId = stored.OwnerId
	collection.DocumentCount = stored.DocumentCount
	collection.TotalTokens = stored.TotalTokens
	r.s.collections[collection.Id] = copyCollection(collection)
	return nil
}

func (r *CollectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.collections, id)
	return nil
}

func (r *CollectionRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.Collection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.collections[id]
	if !ok {
		return nil, nil
	}
	return copyCollection(c), nil
}

func (r *CollectionRepository) filter(match func(*entity.Collection) bool) []*entity.Collection {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entity.Collection{}
	for _, c := range r.s.collections {
		if match(c) {
			out = append(out, copyCollection(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *CollectionRepository) FindByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.Collection, error) {
	return r.filter(func(c *entity.Collection) bool { return c.OwnerId == ownerId }), nil
}

func (r *CollectionRepository) FindPublic(ctx context.Context) ([]*entity.Collection, error) {
	return r.filter(func(c *entity.Collection) bool { return c.IsPublic }), nil
}

func (r *CollectionRepository) FindAccessible(ctx context.Context, userId string, roles []string) ([]*entity.Collection, error) {
	return r.filter(func(c *entity.Collection) bool { return c.AccessibleBy(userId, roles) }), nil
}

func (r *CollectionRepository) FindByTag(ctx context.Context, tag string) ([]*entity.Collection, error) {
	return r.filter(func(c *entity.Collection) bool {
		for _, t := range c.Tags {
			if t == tag {
				return true
			}
		}
		return false
	}), nil
}

func (r *CollectionRepository) Search(ctx context.Context, term string) ([]*entity.Collection, error) {
	term = strings.ToLower(term)
	return r.filter(func(c *entity.Collection) bool {
		return strings.Contains(strings.ToLower(c.Name), term) ||
			strings.Contains(strings.ToLower(c.Description), term)
	}), nil
}

func (r *CollectionRepository) FindChildren(ctx context.Context, parentId uuid.UUID) ([]*entity.Collection, error) {
	return r.filter(func(c *entity.Collection) bool { return c.ParentId != nil && *c.ParentId == parentId }), nil
}

func (r *CollectionRepository) FindTree(ctx context.Context, rootId uuid.UUID) ([]*entity.CollectionNode, error) {
	root, _ := r.FindById(ctx, rootId)
	if root == nil {
		return []*entity.CollectionNode{}, nil
	}

	nodes := []*entity.CollectionNode{{Collection: root, Level: 0}}
	for i := 0; i < len(nodes); i++ {
		children, _ := r.FindChildren(ctx, nodes[i].Collection.Id)
		for _, child := range children {
			nodes = append(nodes, &entity.CollectionNode{Collection: child, Level: nodes[i].Level + 1})
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Level < nodes[j].Level })
	return nodes, nil
}

func (r *CollectionRepository) CountChildren(ctx context.Context, parentId uuid.UUID) (int64, error) {
	children, _ := r.FindChildren(ctx, parentId)
	return int64(len(children)), nil
}

func (r *CollectionRepository) AdjustCounters(ctx context.Context, id uuid.UUID, documentDelta int, tokenDelta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.collections[id]
	if !ok {
		return contract.ErrNotFound
	}
	c.DocumentCount += documentDelta
	if c.DocumentCount < 0 {
		c.DocumentCount = 0
	}
	c.TotalTokens += tokenDelta
	if c.TotalTokens < 0 {
		c.TotalTokens = 0
	}
	return nil
}
