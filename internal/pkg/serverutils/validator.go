package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest checks struct tags and returns a 400 with the offending
// fields listed when validation fails.
func ValidateRequest(request interface{}) error {
	err := validate.Struct(request)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	problems := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		problems = append(problems, fmt.Sprintf("%s failed on '%s'", fieldErr.Field(), fieldErr.Tag()))
	}
	return fiber.NewError(fiber.StatusBadRequest, strings.Join(problems, "; "))
}
