package implementation

import (
	"context"

	"docrag-be/internal/entity"
	"docrag-be/internal/mapper"
	"docrag-be/internal/model"
	"docrag-be/internal/repository/contract"
	"docrag-be/internal/repository/scope"
	"docrag-be/internal/repository/specification"

	"gorm.io/gorm"
)

type DeadLetterRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DeadLetterMapper
}

func NewDeadLetterRepository(db *gorm.DB) contract.DeadLetterRepository {
	return &DeadLetterRepositoryImpl{
		db:     db,
		mapper: mapper.NewDeadLetterMapper(),
	}
}

func (r *DeadLetterRepositoryImpl) Create(ctx context.Context, letter *entity.DeadLetter) error {
	m := r.mapper.ToModel(letter)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*letter = *r.mapper.ToEntity(m)
	return nil
}

func (r *DeadLetterRepositoryImpl) FindAll(ctx context.Context, opts contract.ListOptions) ([]*entity.DeadLetter, error) {
	var models []*model.DeadLetter
	query := applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedDesc),
		specification.Pagination{Limit: opts.Limit, Offset: opts.Offset},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
