package service

import (
	"context"
	"strings"

	"docrag-be/internal/apperror"
	"docrag-be/internal/dto"
	"docrag-be/internal/entity"
	"docrag-be/internal/pkg/logger"
	"docrag-be/internal/repository/unitofwork"
	"docrag-be/pkg/retry"

	"github.com/google/uuid"
)

const collectionModule = "collection"

type ICollectionService interface {
	Create(ctx context.Context, ownerId uuid.UUID, req *dto.CreateCollectionRequest) (*dto.CollectionResponse, error)
	Show(ctx context.Context, id uuid.UUID, userId uuid.UUID, roles []string) (*dto.CollectionResponse, error)
	List(ctx context.Context, userId uuid.UUID, roles []string, filter dto.CollectionFilter) ([]*dto.CollectionResponse, error)
	Children(ctx context.Context, parentId uuid.UUID, userId uuid.UUID, roles []string) ([]*dto.CollectionResponse, error)
	Tree(ctx context.Context, rootId uuid.UUID, userId uuid.UUID, roles []string) ([]*dto.CollectionNodeResponse, error)
	Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateCollectionRequest) (*dto.CollectionResponse, error)
	Delete(ctx context.Context, id uuid.UUID, userId uuid.UUID) error
}

type collectionService struct {
	uowFactory  unitofwork.RepositoryFactory
	retryPolicy retry.Policy
	logger      logger.ILogger
}

func NewCollectionService(uowFactory unitofwork.RepositoryFactory, retryPolicy retry.Policy, log logger.ILogger) ICollectionService {
	return &collectionService{
		uowFactory:  uowFactory,
		retryPolicy: retryPolicy,
		logger:      log,
	}
}

func (s *collectionService) Create(ctx context.Context, ownerId uuid.UUID, req *dto.CreateCollectionRequest) (*dto.CollectionResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, "Collection name is required")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if req.ParentId != nil {
		parent, err := uow.CollectionRepository().FindById(ctx, *req.ParentId)
		if err != nil {
			return nil, storageError(err, "Failed to load parent collection")
		}
		if parent == nil {
			return nil, apperror.NotFound(apperror.CodeCollectionNotFound, "Parent collection not found")
		}
		if parent.OwnerId != ownerId {
			return nil, apperror.Unauthorized("Only the owner can add sub-collections")
		}
	}

	collection := &entity.Collection{
		Id:             uuid.New(),
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		OwnerId:        ownerId,
		AccessUsers:    nonNil(req.AccessUsers),
		AccessRoles:    nonNil(req.AccessRoles),
		Tags:           normalizeTags(req.Tags),
		IsPublic:       req.IsPublic,
		ParentId:       req.ParentId,
		EmbeddingModel: req.EmbeddingModel,
		DefaultModel:   req.DefaultModel,
		Metadata:       req.Metadata,
	}
	if err := uow.CollectionRepository().Create(ctx, collection); err != nil {
		return nil, storageError(err, "Failed to create collection")
	}

	s.logger.Info(collectionModule, "Collection created", map[string]interface{}{
		"collection_id": collection.Id.String(),
		"owner_id":      ownerId.String(),
	})
	res := toCollectionResponse(collection)
	return &res, nil
}

func (s *collectionService) Show(ctx context.Context, id uuid.UUID, userId uuid.UUID, roles []string) (*dto.CollectionResponse, error) {
	collection, err := s.accessible(ctx, s.uowFactory.NewUnitOfWork(ctx), id, userId, roles)
	if err != nil {
		return nil, err
	}
	res := toCollectionResponse(collection)
	return &res, nil
}

func (s *collectionService) List(ctx context.Context, userId uuid.UUID, roles []string, filter dto.CollectionFilter) ([]*dto.CollectionResponse, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).CollectionRepository()

	var (
		collections []*entity.Collection
		err         error
	)
	switch {
	case filter.Owner:
		collections, err = repo.FindByOwner(ctx, userId)
	case filter.Public:
		collections, err = repo.FindPublic(ctx)
	case filter.Tag != "":
		collections, err = repo.FindByTag(ctx, strings.ToLower(strings.TrimSpace(filter.Tag)))
	case filter.Search != "":
		collections, err = repo.Search(ctx, strings.TrimSpace(filter.Search))
	default:
		collections, err = repo.FindAccessible(ctx, userId.String(), roles)
	}
	if err != nil {
		return nil, storageError(err, "Failed to list collections")
	}

	res := make([]*dto.CollectionResponse, 0, len(collections))
	for _, c := range collections {
		// Tag and search listings span every collection; hide the ones the caller cannot see.
		if !c.AccessibleBy(userId.String(), roles) {
			continue
		}
		r := toCollectionResponse(c)
		res = append(res, &r)
	}
	return res, nil
}

func (s *collectionService) Children(ctx context.Context, parentId uuid.UUID, userId uuid.UUID, roles []string) ([]*dto.CollectionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.accessible(ctx, uow, parentId, userId, roles); err != nil {
		return nil, err
	}

	children, err := uow.CollectionRepository().FindChildren(ctx, parentId)
	if err != nil {
		return nil, storageError(err, "Failed to list sub-collections")
	}
	res := make([]*dto.CollectionResponse, len(children))
	for i, c := range children {
		r := toCollectionResponse(c)
		res[i] = &r
	}
	return res, nil
}

func (s *collectionService) Tree(ctx context.Context, rootId uuid.UUID, userId uuid.UUID, roles []string) ([]*dto.CollectionNodeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.accessible(ctx, uow, rootId, userId, roles); err != nil {
		return nil, err
	}

	nodes, err := uow.CollectionRepository().FindTree(ctx, rootId)
	if err != nil {
		return nil, storageError(err, "Failed to load collection tree")
	}
	res := make([]*dto.CollectionNodeResponse, len(nodes))
	for i, n := range nodes {
		res[i] = &dto.CollectionNodeResponse{
			CollectionResponse: toCollectionResponse(n.Collection),
			Level:              n.Level,
		}
	}
	return res, nil
}

func (s *collectionService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateCollectionRequest) (*dto.CollectionResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, "Collection name is required")
	}

	collection, err := retry.Do(ctx, s.retryPolicy, isVersionConflict, func(ctx context.Context) (*entity.Collection, error) {
		repo := s.uowFactory.NewUnitOfWork(ctx).CollectionRepository()
		collection, err := s.owned(ctx, repo.FindById, req.Id, userId)
		if err != nil {
			return nil, err
		}

		collection.Name = strings.TrimSpace(req.Name)
		collection.Description = req.Description
		collection.AccessUsers = nonNil(req.AccessUsers)
		collection.AccessRoles = nonNil(req.AccessRoles)
		collection.Tags = normalizeTags(req.Tags)
		collection.IsPublic = req.IsPublic
		collection.DefaultModel = req.DefaultModel
		if req.Metadata != nil {
			collection.Metadata = req.Metadata
		}

		if err := repo.UpdateWithRevision(ctx, collection); err != nil {
			return nil, storageError(err, "Collection was modified concurrently")
		}
		return collection, nil
	})
	if err != nil {
		return nil, err
	}

	res := toCollectionResponse(collection)
	return &res, nil
}

func (s *collectionService) Delete(ctx context.Context, id uuid.UUID, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return storageError(err, "Failed to start transaction")
	}
	defer uow.Rollback()

	repo := uow.CollectionRepository()
	collection, err := s.owned(ctx, repo.FindById, id, userId)
	if err != nil {
		return err
	}

	documents, err := uow.DocumentRepository().CountByCollection(ctx, id)
	if err != nil {
		return storageError(err, "Failed to count documents")
	}
	children, err := repo.CountChildren(ctx, id)
	if err != nil {
		return storageError(err, "Failed to count sub-collections")
	}
	if documents > 0 || children > 0 {
		return apperror.Validation(apperror.CodeCollectionNotEmpty, "Collection still has documents or sub-collections")
	}

	if err := repo.Delete(ctx, collection.Id); err != nil {
		return storageError(err, "Failed to delete collection")
	}
	if err := uow.Commit(); err != nil {
		return storageError(err, "Failed to commit delete")
	}

	s.logger.Info(collectionModule, "Collection deleted", map[string]interface{}{"collection_id": id.String()})
	return nil
}

func (s *collectionService) accessible(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID, userId uuid.UUID, roles []string) (*entity.Collection, error) {
	collection, err := uow.CollectionRepository().FindById(ctx, id)
	if err != nil {
		return nil, storageError(err, "Failed to load collection")
	}
	if collection == nil {
		return nil, apperror.NotFound(apperror.CodeCollectionNotFound, "Collection not found")
	}
	if !collection.AccessibleBy(userId.String(), roles) {
		return nil, apperror.Unauthorized("You do not have access to this collection")
	}
	return collection, nil
}

func (s *collectionService) owned(ctx context.Context, find func(context.Context, uuid.UUID) (*entity.Collection, error), id uuid.UUID, userId uuid.UUID) (*entity.Collection, error) {
	collection, err := find(ctx, id)
	if err != nil {
		return nil, storageError(err, "Failed to load collection")
	}
	if collection == nil {
		return nil, apperror.NotFound(apperror.CodeCollectionNotFound, "Collection not found")
	}
	if collection.OwnerId != userId {
		return nil, apperror.Unauthorized("Only the owner can modify this collection")
	}
	return collection, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func toCollectionResponse(c *entity.Collection) dto.CollectionResponse {
	return dto.CollectionResponse{
		Id:             c.Id,
		Name:           c.Name,
		Description:    c.Description,
		OwnerId:        c.OwnerId,
		AccessUsers:    c.AccessUsers,
		AccessRoles:    c.AccessRoles,
		Tags:           c.Tags,
		IsPublic:       c.IsPublic,
		ParentId:       c.ParentId,
		DocumentCount:  c.DocumentCount,
		TotalTokens:    c.TotalTokens,
		EmbeddingModel: c.EmbeddingModel,
		DefaultModel:   c.DefaultModel,
		Metadata:       c.Metadata,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
