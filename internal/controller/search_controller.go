package controller

import (
	"docrag-be/internal/apperror"
	"docrag-be/internal/dto"
	"docrag-be/internal/pkg/serverutils"
	"docrag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISearchController interface {
	RegisterRoutes(r fiber.Router)
	Similar(ctx *fiber.Ctx) error
	SimilarToDocument(ctx *fiber.Ctx) error
	Batch(ctx *fiber.Ctx) error
}

type searchController struct {
	searchService service.ISearchService
}

func NewSearchController(searchService service.ISearchService) ISearchController {
	return &searchController{
		searchService: searchService,
	}
}

func (c *searchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/search")
	h.Use(serverutils.JwtMiddleware)
	h.Post("similar", c.Similar)
	h.Get("similar/document/:id", c.SimilarToDocument)
	h.Post("batch", c.Batch)
}

func (c *searchController) Similar(ctx *fiber.Ctx) error {
	var req dto.SimilarRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation(apperror.CodeInvalidRequest, "Malformed request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.searchService.FindSimilar(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search", res))
}

func (c *searchController) SimilarToDocument(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.searchService.FindSimilarDocuments(ctx.UserContext(), id, ctx.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search", res))
}

func (c *searchController) Batch(ctx *fiber.Ctx) error {
	var req dto.BatchSimilarRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation(apperror.CodeInvalidRequest, "Malformed request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.searchService.BatchFindSimilar(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success batch search", res))
}
