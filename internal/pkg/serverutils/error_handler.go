package serverutils

import (
	"errors"

	"knowledge-base-be/internal/dto"
	"knowledge-base-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts service-layer errors into JSON responses.
// Controllers just return errors; the mapping to HTTP status lives here.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := fiber.StatusInternalServerError
		message := "Internal server error"

		var fiberErr *fiber.Error
		var searchErr *dto.SearchUnavailableError

		switch {
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		case errors.Is(err, dto.ErrNotFound):
			status = fiber.StatusNotFound
			message = "Resource not found"
		case errors.Is(err, dto.ErrAccessDenied):
			status = fiber.StatusForbidden
			message = "Access denied"
		case errors.Is(err, dto.ErrDocumentNotFailed):
			status = fiber.StatusConflict
			message = "Only failed documents can be requeued"
		case errors.Is(err, dto.ErrUnsupportedFormat):
			status = fiber.StatusUnsupportedMediaType
			message = "Unsupported document format"
		case errors.As(err, &searchErr):
			status = fiber.StatusServiceUnavailable
			message = "Search is temporarily unavailable"
		}

		if status >= 500 {
			log.Error("http", "Request failed", map[string]interface{}{
				"path":   ctx.Path(),
				"method": ctx.Method(),
				"error":  err.Error(),
			})
		}

		return ctx.Status(status).JSON(ErrorResponse(status, message))
	}
}
