package serverutils

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// ApiKeyMiddleware guards the indexing endpoints with a shared secret passed
// in the X-API-Key header. An empty configured key disables the endpoints
// entirely rather than leaving them open.
func ApiKeyMiddleware(apiKey string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if apiKey == "" {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse("indexing API disabled"))
		}
		provided := ctx.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("invalid API key"))
		}
		return ctx.Next()
	}
}
