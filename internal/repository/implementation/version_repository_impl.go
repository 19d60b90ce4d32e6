package implementation

import (
	"context"
	"errors"

	"docrag-be/internal/entity"
	"docrag-be/internal/mapper"
	"docrag-be/internal/model"
	"docrag-be/internal/repository/contract"
	"docrag-be/internal/repository/specification"
	"docrag-be/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VersionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.VersionMapper
}

func NewVersionRepository(db *gorm.DB) contract.VersionRepository {
	return &VersionRepositoryImpl{
		db:     db,
		mapper: mapper.NewVersionMapper(),
	}
}

func (r *VersionRepositoryImpl) Create(ctx context.Context, version *entity.Version) error {
	m := r.mapper.ToModel(version)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return contract.ErrStaleRevision
		}
		return err
	}
	*version = *r.mapper.ToEntity(m)
	return nil
}

func (r *VersionRepositoryImpl) Update(ctx context.Context, version *entity.Version) error {
	m := r.mapper.ToModel(version)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return contract.ErrStaleRevision
		}
		return err
	}
	*version = *r.mapper.ToEntity(m)
	return nil
}

func (r *VersionRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.Version, error) {
	var m model.Version
	if err := applySpecifications(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *VersionRepositoryImpl) FindLatest(ctx context.Context, documentId uuid.UUID) (*entity.Version, error) {
	return r.findOne(ctx,
		specification.ByDocumentID{DocumentID: documentId},
		specification.OrderBy{Field: "version_number", Desc: true},
	)
}

func (r *VersionRepositoryImpl) FindActive(ctx context.Context, documentId uuid.UUID) (*entity.Version, error) {
	return r.findOne(ctx,
		specification.ByDocumentID{DocumentID: documentId},
		specification.Filter("is_active", true),
	)
}

func (r *VersionRepositoryImpl) FindByNumber(ctx context.Context, documentId uuid.UUID, number int) (*entity.Version, error) {
	return r.findOne(ctx,
		specification.ByDocumentID{DocumentID: documentId},
		specification.Filter("version_number", number),
	)
}

func (r *VersionRepositoryImpl) FindByDocument(ctx context.Context, documentId uuid.UUID) ([]*entity.Version, error) {
	var models []*model.Version
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByDocumentID{DocumentID: documentId},
		specification.OrderBy{Field: "version_number", Desc: true},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *VersionRepositoryImpl) Deactivate(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Version{}).
		Where("document_id = ? AND is_active", documentId).
		Update("is_active", false).Error
}

func (r *VersionRepositoryImpl) DeleteByDocument(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentId).Delete(&model.Version{}).Error
}
