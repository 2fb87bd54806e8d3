package transport

import (
	"errors"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		} else {
			switch {
			case errors.Is(err, domain.ErrValidation):
				code = fiber.StatusBadRequest
			case errors.Is(err, domain.ErrNotFound):
				code = fiber.StatusNotFound
			case errors.Is(err, domain.ErrDuplicateBatch):
				code = fiber.StatusConflict
			}
		}

		log := logger.Error
		if code < fiber.StatusInternalServerError {
			log = logger.Warn
		}
		log("request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
