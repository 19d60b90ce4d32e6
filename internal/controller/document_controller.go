package controller

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"docrag-be/internal/apperror"
	"docrag-be/internal/dto"
	"docrag-be/internal/pkg/serverutils"
	"docrag-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Query(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	UpdateTags(ctx *fiber.Ctx) error
	SetArchived(ctx *fiber.Ctx) error
	Move(ctx *fiber.Ctx) error
	ListVersions(ctx *fiber.Ctx) error
	CreateVersion(ctx *fiber.Ctx) error
	ShowVersion(ctx *fiber.Ctx) error
	ShowChunk(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
}

func NewDocumentController(documentService service.IDocumentService) IDocumentController {
	return &documentController{
		documentService: documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rag")
	h.Use(serverutils.JwtMiddleware)
	h.Post("upload", c.Upload)
	h.Post("query", c.Query)
	h.Get("documents", c.List)
	h.Get("documents/:id", c.Show)
	h.Delete("documents/:id", c.Delete)
	h.Put("documents/:id/tags", c.UpdateTags)
	h.Put("documents/:id/archive", c.SetArchived)
	h.Put("documents/:id/move", c.Move)
	h.Get("documents/:id/versions", c.ListVersions)
	h.Post("documents/:id/versions", c.CreateVersion)
	h.Get("documents/:id/versions/:n", c.ShowVersion)
	h.Get("documents/:id/versions/:n/chunks/:index", c.ShowChunk)
}

func readUpload(ctx *fiber.Ctx) (*multipart.FileHeader, []byte, error) {
	header, err := ctx.FormFile("file")
	if err != nil {
		return nil, nil, apperror.Validation(apperror.CodeEmptyFile, "A file is required")
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, apperror.Validation(apperror.CodeInvalidRequest, "Uploaded file could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, apperror.Validation(apperror.CodeInvalidRequest, "Uploaded file could not be read")
	}
	return header, data, nil
}

func paramUUID(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, apperror.Validation(apperror.CodeInvalidRequest, "Invalid "+name)
	}
	return id, nil
}

func paramInt(ctx *fiber.Ctx, name string) (int, error) {
	n, err := strconv.Atoi(ctx.Params(name))
	if err != nil {
		return 0, apperror.Validation(apperror.CodeInvalidRequest, "Invalid "+name)
	}
	return n, nil
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	header, data, err := readUpload(ctx)
	if err != nil {
		return err
	}

	req := dto.IngestRequest{
		File:     data,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		OwnerId:  serverutils.UserId(ctx),
		UseBatch: ctx.FormValue("use_batch") == "true",
	}
	if raw := ctx.FormValue("collection_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperror.Validation(apperror.CodeInvalidRequest, "Invalid collection_id")
		}
		req.CollectionId = &id
	}
	if raw := ctx.FormValue("tags"); raw != "" {
		req.Tags = strings.Split(raw, ",")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.Ingest(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Document ingested", res))
}

func (c *documentController) Query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation(apperror.CodeInvalidRequest, "Malformed request body")
	}
	req.RequesterId = serverutils.UserId(ctx)

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.Query(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success query", res))
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	res, err := c.documentService.List(ctx.UserContext(), serverutils.UserId(ctx), ctx.QueryInt("limit", 20), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list documents", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.documentService.Show(ctx.UserContext(), id, serverutils.UserId(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show document", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.documentService.Delete(ctx.UserContext(), id, serverutils.UserId(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Document deleted", nil))
}

func (c *documentController) UpdateTags(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateTagsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation(apperror.CodeInvalidRequest, "Malformed request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.UpdateTags(ctx.UserContext(), id, serverutils.UserId(ctx), req.Tags)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Tags updated", res))
}

func (c *documentController) SetArchived(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.SetArchivedRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation(apperror.CodeInvalidRequest, "Malformed request body")
	}

	res, err := c.documentService.SetArchived(ctx.UserContext(), id, serverutils.UserId(ctx), req.Archived)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Archive flag updated", res))
}

func (c *documentController) Move(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.MoveDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation(apperror.CodeInvalidRequest, "Malformed request body")
	}

	res, err := c.documentService.MoveToCollection(ctx.UserContext(), id, serverutils.UserId(ctx), req.CollectionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document moved", res))
}

func (c *documentController) ListVersions(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.documentService.ListVersions(ctx.UserContext(), id, serverutils.UserId(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list versions", res))
}

func (c *documentController) CreateVersion(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	header, data, err := readUpload(ctx)
	if err != nil {
		return err
	}

	req := dto.CreateVersionRequest{
		DocumentId:        id,
		RequesterId:       serverutils.UserId(ctx),
		File:              data,
		FileName:          header.Filename,
		MimeType:          header.Header.Get("Content-Type"),
		ChangeDescription: ctx.FormValue("change_description"),
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.CreateVersion(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Version created", res))
}

func (c *documentController) ShowVersion(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	n, err := paramInt(ctx, "n")
	if err != nil {
		return err
	}

	res, err := c.documentService.ShowVersion(ctx.UserContext(), id, serverutils.UserId(ctx), n)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show version", res))
}

func (c *documentController) ShowChunk(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	n, err := paramInt(ctx, "n")
	if err != nil {
		return err
	}
	index, err := paramInt(ctx, "index")
	if err != nil {
		return err
	}

	res, err := c.documentService.ShowChunk(ctx.UserContext(), id, serverutils.UserId(ctx), n, index)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show chunk", res))
}
