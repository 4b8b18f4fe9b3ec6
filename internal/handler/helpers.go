package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/schoolchat-api/internal/middleware"
	"github.com/noah-isme/schoolchat-api/internal/safety"
	"github.com/noah-isme/schoolchat-api/internal/service"
	"github.com/noah-isme/schoolchat-api/internal/transport"
	"github.com/noah-isme/schoolchat-api/internal/utils"
	"github.com/noah-isme/schoolchat-api/pkg/ai"
)

// requestContext returns the request-scoped context with the correlation
// identifier attached.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendServiceError maps service-layer failures to the HTTP error taxonomy:
// permanent input problems get client-fault statuses, dependency faults get
// server-fault statuses, and misconfiguration is distinguishable from both.
func sendServiceError(c *fiber.Ctx, err error) error {
	var transportErr *transport.Error
	switch {
	case isValidationError(err), errors.Is(err, service.ErrEmptyContent):
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, err.Error())
	case errors.Is(err, service.ErrMessageTooLong):
		return utils.SendErrorKind(c, fiber.StatusRequestEntityTooLarge, utils.ErrKindValidation, err.Error())
	case errors.Is(err, service.ErrThreadNotFound), errors.Is(err, service.ErrMessageNotFound):
		return utils.SendErrorKind(c, fiber.StatusNotFound, utils.ErrKindNotFound, err.Error())
	case errors.Is(err, safety.ErrNotConfigured), errors.Is(err, ai.ErrAssistantNotConfigured):
		return utils.SendErrorKind(c, fiber.StatusServiceUnavailable, utils.ErrKindMisconfigured, err.Error())
	case errors.Is(err, service.ErrClassifierUnavailable):
		return utils.SendErrorKind(c, fiber.StatusBadGateway, utils.ErrKindDependency, err.Error())
	case errors.As(err, &transportErr):
		return utils.SendErrorKind(c, fiber.StatusBadGateway, utils.ErrKindDependency, err.Error())
	case errors.Is(err, service.ErrSeedDisabled):
		return utils.SendErrorKind(c, fiber.StatusForbidden, utils.ErrKindValidation, err.Error())
	case errors.Is(err, service.ErrSeedUnauthorized):
		return utils.SendErrorKind(c, fiber.StatusUnauthorized, utils.ErrKindValidation, err.Error())
	default:
		return utils.SendErrorKind(c, fiber.StatusInternalServerError, utils.ErrKindInternal, "internal error")
	}
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
