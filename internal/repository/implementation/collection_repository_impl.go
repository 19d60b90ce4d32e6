package implementation

import (
	"context"
	"errors"
	"time"

	"docrag-be/internal/entity"
	"docrag-be/internal/mapper"
	"docrag-be/internal/model"
	"docrag-be/internal/repository/contract"
	"docrag-be/internal/repository/scope"
	"docrag-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CollectionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CollectionMapper
}

func NewCollectionRepository(db *gorm.DB) contract.CollectionRepository {
	return &CollectionRepositoryImpl{
		db:     db,
		mapper: mapper.NewCollectionMapper(),
	}
}

func (r *CollectionRepositoryImpl) Create(ctx context.Context, collection *entity.Collection) error {
	if collection.Revision == 0 {
		collection.Revision = 1
	}
	m := r.mapper.ToModel(collection)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*collection = *r.mapper.ToEntity(m)
	return nil
}

// UpdateWithRevision leaves the document and token counters alone; AdjustCounters owns them.
func (r *CollectionRepositoryImpl) UpdateWithRevision(ctx context.Context, collection *entity.Collection) error {
	m := r.mapper.ToModel(collection)
	m.Revision = collection.Revision + 1
	m.UpdatedAt = time.Now()

	result := applySpecifications(r.db.WithContext(ctx).Model(&model.Collection{}),
		specification.ByID{ID: collection.Id},
		specification.WithRevision{Revision: collection.Revision},
	).Select("*").Omit("id", "created_at", "owner_id", "document_count", "total_tokens").Updates(m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return contract.ErrStaleRevision
	}
	collection.Revision = m.Revision
	updatedAt := m.UpdatedAt
	collection.UpdatedAt = &updatedAt
	return nil
}

func (r *CollectionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Collection{}, "id = ?", id).Error
}

func (r *CollectionRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.Collection, error) {
	var m model.Collection
	if err := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id}).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CollectionRepositoryImpl) findAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Collection, error) {
	var models []*model.Collection
	query := applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedAsc), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CollectionRepositoryImpl) FindByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.Collection, error) {
	return r.findAll(ctx, specification.ByOwner{OwnerID: ownerId})
}

func (r *CollectionRepositoryImpl) FindPublic(ctx context.Context) ([]*entity.Collection, error) {
	return r.findAll(ctx, specification.IsPublic{})
}

func (r *CollectionRepositoryImpl) FindAccessible(ctx context.Context, userId string, roles []string) ([]*entity.Collection, error) {
	return r.findAll(ctx, specification.AccessibleBy{UserID: userId, Roles: roles})
}

func (r *CollectionRepositoryImpl) FindByTag(ctx context.Context, tag string) ([]*entity.Collection, error) {
	return r.findAll(ctx, specification.ByTag{Tag: tag})
}

func (r *CollectionRepositoryImpl) Search(ctx context.Context, term string) ([]*entity.Collection, error) {
	return r.findAll(ctx, specification.NameOrDescriptionLike{Term: term})
}

func (r *CollectionRepositoryImpl) FindChildren(ctx context.Context, parentId uuid.UUID) ([]*entity.Collection, error) {
	return r.findAll(ctx, specification.ByParentID{ParentID: parentId})
}

const collectionTreeQuery = `
WITH RECURSIVE tree AS (
	SELECT c.*, 0 AS level FROM collections c WHERE c.id = ?
	UNION ALL
	SELECT c.*, tree.level + 1 FROM collections c JOIN tree ON c.parent_id = tree.id
)
SELECT * FROM tree ORDER BY level ASC, created_at ASC`

// FindTree walks down from rootId; the root comes first with level 0.
func (r *CollectionRepositoryImpl) FindTree(ctx context.Context, rootId uuid.UUID) ([]*entity.CollectionNode, error) {
	type row struct {
		model.Collection
		Level int
	}
	var rows []row
	if err := r.db.WithContext(ctx).Raw(collectionTreeQuery, rootId).Scan(&rows).Error; err != nil {
		return nil, err
	}

	nodes := make([]*entity.CollectionNode, len(rows))
	for i := range rows {
		nodes[i] = &entity.CollectionNode{
			Collection: r.mapper.ToEntity(&rows[i].Collection),
			Level:      rows[i].Level,
		}
	}
	return nodes, nil
}

func (r *CollectionRepositoryImpl) CountChildren(ctx context.Context, parentId uuid.UUID) (int64, error) {
	var count int64
	err := applySpecifications(r.db.WithContext(ctx).Model(&model.Collection{}),
		specification.ByParentID{ParentID: parentId},
	).Count(&count).Error
	return count, err
}

func (r *CollectionRepositoryImpl) AdjustCounters(ctx context.Context, id uuid.UUID, documentDelta int, tokenDelta int64) error {
	result := r.db.WithContext(ctx).Model(&model.Collection{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"document_count": gorm.Expr("GREATEST(document_count + ?, 0)", documentDelta),
			"total_tokens":   gorm.Expr("GREATEST(total_tokens + ?, 0)", tokenDelta),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return contract.ErrNotFound
	}
	return nil
}
