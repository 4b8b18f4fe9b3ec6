package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/service"
	"github.com/noah-isme/schoolchat-api/internal/utils"
)

// ChatHandler wires the moderated chat endpoints, including the websocket
// watch upgrade for moderator consoles.
type ChatHandler struct {
	threads      service.ThreadService
	messages     service.MessageService
	moderation   service.ModerationService
	verification service.VerificationService
	events       service.EventService
	validator    *validator.Validate
	logger       zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(
	threads service.ThreadService,
	messages service.MessageService,
	moderation service.ModerationService,
	verification service.VerificationService,
	events service.EventService,
	validator *validator.Validate,
	logger zerolog.Logger,
) *ChatHandler {
	return &ChatHandler{
		threads:      threads,
		messages:     messages,
		moderation:   moderation,
		verification: verification,
		events:       events,
		validator:    validator,
		logger:       logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/thread", h.createOrGetThread)
	router.Get("/thread/:threadId", h.getThread)
	router.Post("/send", h.send)
	router.Post("/moderate", h.moderate)
	router.Post("/verify", h.verify)

	router.Use("/watch", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/watch", websocket.New(h.watch))
}

func (h *ChatHandler) createOrGetThread(c *fiber.Ctx) error {
	var req dto.ThreadCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, err.Error())
	}

	thread, err := h.threads.CreateOrGet(requestContext(c), req.SchoolID, req.User)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("school_id", req.SchoolID).Msg("thread bootstrap failed")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "thread ready", thread)
}

func (h *ChatHandler) getThread(c *fiber.Ctx) error {
	threadID := strings.TrimSpace(c.Params("threadId"))
	if threadID == "" {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, "threadId required")
	}

	thread, err := h.threads.Augment(requestContext(c), threadID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "thread", thread)
}

func (h *ChatHandler) send(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, "invalid request body")
	}

	result, err := h.messages.Send(requestContext(c), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("school_id", req.SchoolID).Msg("send failed")
		return sendServiceError(c, err)
	}

	if result.Blocked {
		return utils.SendSuccess(c, "message blocked by safety policy", result)
	}
	return utils.SendSuccess(c, "message sent", result)
}

func (h *ChatHandler) moderate(c *fiber.Ctx) error {
	var req dto.ModerateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, err.Error())
	}

	result, err := h.moderation.Moderate(requestContext(c), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("message_id", req.MessageID).Msg("moderation failed")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "moderation recorded", result)
}

func (h *ChatHandler) verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, err.Error())
	}

	result, err := h.verification.Verify(requestContext(c), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("message_id", req.MessageID).Msg("verification failed")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "verification recorded", result)
}

func (h *ChatHandler) watch(conn *websocket.Conn) {
	threadID := strings.TrimSpace(conn.Query("thread_id"))
	if threadID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "thread_id required"))
		_ = conn.Close()
		return
	}

	h.logger.Info().Str("thread_id", threadID).Msg("watch websocket connected")
	h.events.Watch(conn, threadID)
	h.logger.Info().Str("thread_id", threadID).Msg("watch websocket disconnected")
}
