package controller

import (
	"docrag-be/internal/apperror"
	"docrag-be/internal/dto"
	"docrag-be/internal/pkg/serverutils"
	"docrag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICollectionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Children(ctx *fiber.Ctx) error
	Tree(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type collectionController struct {
	collectionService service.ICollectionService
}

func NewCollectionController(collectionService service.ICollectionService) ICollectionController {
	return &collectionController{
		collectionService: collectionService,
	}
}

func (c *collectionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rag/collections")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Put(":id", c.Update)
	h.Delete(":id", c.Delete)
	h.Get(":id/children", c.Children)
	h.Get(":id/tree", c.Tree)
}

func (c *collectionController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateCollectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation(apperror.CodeInvalidRequest, "Malformed request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.collectionService.Create(ctx.UserContext(), serverutils.UserId(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Collection created", res))
}

func (c *collectionController) List(ctx *fiber.Ctx) error {
	var filter dto.CollectionFilter
	if err := ctx.QueryParser(&filter); err != nil {
		return apperror.Validation(apperror.CodeInvalidRequest, "Malformed query")
	}

	res, err := c.collectionService.List(ctx.UserContext(), serverutils.UserId(ctx), serverutils.Roles(ctx), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list collections", res))
}

func (c *collectionController) Show(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.collectionService.Show(ctx.UserContext(), id, serverutils.UserId(ctx), serverutils.Roles(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show collection", res))
}

func (c *collectionController) Children(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.collectionService.Children(ctx.UserContext(), id, serverutils.UserId(ctx), serverutils.Roles(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list sub-collections", res))
}

func (c *collectionController) Tree(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.collectionService.Tree(ctx.UserContext(), id, serverutils.UserId(ctx), serverutils.Roles(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show collection tree", res))
}

func (c *collectionController) Update(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateCollectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation(apperror.CodeInvalidRequest, "Malformed request body")
	}
	req.Id = id
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.collectionService.Update(ctx.UserContext(), serverutils.UserId(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Collection updated", res))
}

func (c *collectionController) Delete(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.collectionService.Delete(ctx.UserContext(), id, serverutils.UserId(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Collection deleted", nil))
}
