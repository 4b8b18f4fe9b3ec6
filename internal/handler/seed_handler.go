package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/schoolchat-api/internal/service"
	"github.com/noah-isme/schoolchat-api/internal/utils"
)

// SeedHandler exposes tooling endpoints for seeding demo data.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/rules", h.rules)
}

func (h *SeedHandler) rules(c *fiber.Ctx) error {
	token := c.Get("X-Seed-Token")

	affected, err := h.service.SeedRules(requestContext(c), token)
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "rules seeded", fiber.Map{"affected": affected})
}

func (h *SeedHandler) seedError(c *fiber.Ctx, err error) error {
	switch err {
	case service.ErrSeedDisabled:
		return utils.SendErrorKind(c, fiber.StatusForbidden, utils.ErrKindValidation, "seeding disabled")
	case service.ErrSeedUnauthorized:
		return utils.SendErrorKind(c, fiber.StatusForbidden, utils.ErrKindValidation, "invalid token")
	default:
		h.logger.Error().Err(err).Msg("seed operation failed")
		return utils.SendErrorKind(c, fiber.StatusInternalServerError, utils.ErrKindInternal, "seed operation failed")
	}
}
