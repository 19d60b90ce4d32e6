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

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentRepositoryImpl) Create(ctx context.Context, document *entity.Document) error {
	if document.Revision == 0 {
		document.Revision = 1
	}
	m := r.mapper.ToModel(document)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*document = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) UpdateWithRevision(ctx context.Context, document *entity.Document) error {
	m := r.mapper.ToModel(document)
	m.Revision = document.Revision + 1
	m.UpdatedAt = time.Now()

	// Select("*") so zero values (archived=false, empty summary) are written too.
	result := applySpecifications(r.db.WithContext(ctx).Model(&model.Document{}),
		specification.ByID{ID: document.Id},
		specification.WithRevision{Revision: document.Revision},
	).Select("*").Omit("id", "created_at").Updates(m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return contract.ErrStaleRevision
	}
	document.Revision = m.Revision
	updatedAt := m.UpdatedAt
	document.UpdatedAt = &updatedAt
	return nil
}

func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Document{}, "id = ?", id).Error
}

// FindById returns nil, nil when the document does not exist.
func (r *DocumentRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	var m model.Document
	query := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentRepositoryImpl) FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.Document, error) {
	if len(ids) == 0 {
		return []*entity.Document{}, nil
	}
	var models []*model.Document
	query := applySpecifications(r.db.WithContext(ctx), specification.ByIDs{IDs: ids})
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentRepositoryImpl) FindByOwner(ctx context.Context, ownerId uuid.UUID, opts contract.ListOptions) ([]*entity.Document, error) {
	var models []*model.Document
	query := applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedDesc),
		specification.ByOwner{OwnerID: ownerId},
		specification.Pagination{Limit: opts.Limit, Offset: opts.Offset},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentRepositoryImpl) TouchAccess(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"access_count":     gorm.Expr("access_count + 1"),
			"last_accessed_at": time.Now(),
		}).Error
}

func (r *DocumentRepositoryImpl) CountByCollection(ctx context.Context, collectionId uuid.UUID) (int64, error) {
	var count int64
	err := applySpecifications(r.db.WithContext(ctx).Model(&model.Document{}),
		specification.ByCollectionID{CollectionID: collectionId},
	).Count(&count).Error
	return count, err
}
