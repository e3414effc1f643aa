package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/energia/energia-dashboard/internal/api"
	"github.com/energia/energia-dashboard/internal/distribution"
	"github.com/energia/energia-dashboard/internal/service"
	"github.com/energia/energia-dashboard/internal/session"
)

// errorBody is the envelope of every 4xx/5xx answer.
type errorBody struct {
	Detail string              `json:"detail"`
	Fields map[string]string   `json:"fields,omitempty"`
	Check  *distribution.Check `json:"check,omitempty"`
}

// ErrorHandler maps service, session and remote API errors to status codes.
// Internal errors are logged and answered with a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, body := classify(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", requestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
	}
	return c.Status(status).JSON(body)
}

func classify(err error) (int, errorBody) {
	var (
		ferr   *fiber.Error
		verr   *service.ValidationError
		aerr   *distribution.AllocationError
		status *api.StatusError
	)
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, errorBody{Detail: "validation failed", Fields: verr.Fields}
	case errors.As(err, &aerr):
		return fiber.StatusUnprocessableEntity, errorBody{Detail: aerr.Error(), Check: &aerr.Check}
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired), errors.Is(err, session.ErrInvalidToken):
		return fiber.StatusUnauthorized, errorBody{Detail: "authentication required"}
	case errors.Is(err, service.ErrGeneratorImmutable), errors.Is(err, service.ErrGeneratorRequired), errors.Is(err, service.ErrEmptyFile):
		return fiber.StatusBadRequest, errorBody{Detail: err.Error()}
	case errors.Is(err, service.ErrNotPDF):
		return fiber.StatusUnsupportedMediaType, errorBody{Detail: service.ErrNotPDF.Error()}
	case errors.Is(err, service.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge, errorBody{Detail: service.ErrFileTooLarge.Error()}
	case errors.Is(err, service.ErrArchiveDisabled):
		return fiber.StatusServiceUnavailable, errorBody{Detail: service.ErrArchiveDisabled.Error()}
	case errors.As(err, &status):
		if status.Code >= fiber.StatusInternalServerError {
			return fiber.StatusBadGateway, errorBody{Detail: "energia API unavailable"}
		}
		detail := status.Message
		if detail == "" {
			detail = "request rejected by energia API"
		}
		return status.Code, errorBody{Detail: detail}
	case errors.As(err, &ferr):
		return ferr.Code, errorBody{Detail: ferr.Message}
	default:
		return fiber.StatusInternalServerError, errorBody{Detail: "internal error"}
	}
}
