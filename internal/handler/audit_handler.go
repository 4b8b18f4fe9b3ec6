package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/schoolchat-api/internal/models"
	"github.com/noah-isme/schoolchat-api/internal/service"
	"github.com/noah-isme/schoolchat-api/internal/utils"
)

// AuditHandler exposes the moderator console read models.
type AuditHandler struct {
	audit   service.AuditService
	threads service.ThreadService
	logger  zerolog.Logger
}

// NewAuditHandler creates an audit handler instance.
func NewAuditHandler(audit service.AuditService, threads service.ThreadService, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		audit:   audit,
		threads: threads,
		logger:  logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register binds audit routes under the provided router group.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("/flags", h.flags)
	router.Get("/verifications", h.verifications)
	router.Get("/thread/:threadId", h.thread)
}

func (h *AuditHandler) flags(c *fiber.Ctx) error {
	severity, ok := parseSeverity(c.Query("severity"))
	if !ok {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, "invalid severity")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, "invalid limit")
	}

	details, err := h.audit.FlagsBySeverity(requestContext(c), severity, limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("flag audit query failed")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "moderation flags", details)
}

func (h *AuditHandler) verifications(c *fiber.Ctx) error {
	result, ok := parseResultAlias(c.Query("status"))
	if !ok {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, "invalid status")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, "invalid limit")
	}

	details, err := h.audit.VerificationsByResult(requestContext(c), result, limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("verification audit query failed")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "verification records", details)
}

// thread serves the full augmented projection to moderators, including
// threads that are no longer active.
func (h *AuditHandler) thread(c *fiber.Ctx) error {
	threadID := c.Params("threadId")
	if threadID == "" {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, "thread id is required")
	}

	thread, err := h.threads.Augment(requestContext(c), threadID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("thread_id", threadID).Msg("thread audit query failed")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "thread detail", thread)
}

func parseSeverity(raw string) (models.ModerationSeverity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return models.SeverityHigh, true
	case "high":
		return models.SeverityHigh, true
	case "medium":
		return models.SeverityMedium, true
	case "low":
		return models.SeverityLow, true
	default:
		return "", false
	}
}

// parseResultAlias accepts the console's short aliases alongside the
// canonical result names.
func parseResultAlias(raw string) (models.VerificationResult, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return models.ResultPartiallyCorrect, true
	case "confirmed":
		return models.ResultConfirmed, true
	case "partial", "partially_correct":
		return models.ResultPartiallyCorrect, true
	case "incorrect":
		return models.ResultIncorrect, true
	default:
		return "", false
	}
}
