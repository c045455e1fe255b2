package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors escaping the controllers into the
// shared response envelope. fiber errors keep their status code; everything
// else becomes a 500 with a generic message so internals do not leak.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("internal server error"))
	}
}
