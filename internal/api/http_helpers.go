package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/liberate/internal/logging"
	"github.com/terraincognita07/liberate/internal/services"
)

var errInvalidInput = errors.New("invalid input")

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// parseBody decodes and validates a JSON payload.
func (handler *Handler) parseBody(c *fiber.Ctx, target any) error {
	if err := c.BodyParser(target); err != nil {
		return errInvalidInput
	}
	if err := handler.validate.Struct(target); err != nil {
		return errInvalidInput
	}
	return nil
}

// respondServiceError maps domain errors to statuses. Raw error text never
// reaches the client.
func respondServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errInvalidInput), errors.Is(err, services.ErrValidation):
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	case errors.Is(err, services.ErrIndexOutOfRange):
		return apiError(c, fiber.StatusConflict, "entry changed, please retry")
	case errors.Is(err, services.ErrEntryNotFound):
		return apiError(c, fiber.StatusNotFound, "entry not found")
	case errors.Is(err, services.ErrUnauthenticated):
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrRemoteWriteFailed):
		return apiError(c, fiber.StatusBadGateway, "could not save, please retry")
	case errors.Is(err, services.ErrRemoteReadFailed):
		return apiError(c, fiber.StatusBadGateway, "could not load, please retry")
	default:
		logging.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return apiError(c, fiber.StatusInternalServerError, "internal error")
	}
}
