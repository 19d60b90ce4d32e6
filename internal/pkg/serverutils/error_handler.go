package serverutils

import (
	"errors"
	"log"

	"docrag-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into ErrorBody responses.
// Application errors keep their code and status; anything else is a 500 with a
// generic message.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

func WriteError(ctx *fiber.Ctx, err error) error {
	if appErr, ok := apperror.As(err); ok {
		status := apperror.StatusOf(appErr.Kind)
		if status >= fiber.StatusInternalServerError {
			log.Printf("request %s %s failed: %v", ctx.Method(), ctx.Path(), err)
		}
		return ctx.Status(status).JSON(CodedErrorResponse(status, appErr.Code, appErr.Message))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	log.Printf("request %s %s failed: %v", ctx.Method(), ctx.Path(), err)
	return ctx.Status(fiber.StatusInternalServerError).
		JSON(CodedErrorResponse(fiber.StatusInternalServerError, apperror.CodeInternal, "An unexpected error occurred"))
}
