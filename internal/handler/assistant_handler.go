package handler

import (
	"bufio"
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/observability"
	"github.com/noah-isme/schoolchat-api/internal/service"
	"github.com/noah-isme/schoolchat-api/internal/utils"
	"github.com/noah-isme/schoolchat-api/pkg/ai"
)

const assistantApology = "Sorry, something went wrong while contacting the AI. Please try again."

// AssistantHandler relays streamed assistant completions as plain
// incremental text. Upstream SSE framing is consumed internally; clients
// receive raw tokens.
type AssistantHandler struct {
	assistant service.AssistantService
	logger    zerolog.Logger
}

// NewAssistantHandler creates an assistant handler instance.
func NewAssistantHandler(assistant service.AssistantService, logger zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		assistant: assistant,
		logger:    logger.With().Str("component", "assistant_handler").Logger(),
	}
}

// Register binds assistant routes under the provided router group.
func (h *AssistantHandler) Register(router fiber.Router) {
	router.Post("/chat", h.chat)
}

func (h *AssistantHandler) chat(c *fiber.Ctx) error {
	var req dto.AssistantChatRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendErrorKind(c, fiber.StatusBadRequest, utils.ErrKindValidation, "invalid request body")
	}

	// The request outlives this handler; fasthttp recycles the request
	// context once the body stream writer takes over, so the upstream
	// call gets its own cancellable context instead.
	streamCtx, cancel := context.WithCancel(context.Background())

	stream, err := h.assistant.StreamChat(streamCtx, req)
	if err != nil {
		cancel()
		requestLogger(h.logger, c).Error().Err(err).Msg("assistant stream failed to open")
		if isValidationError(err) || err == service.ErrMessageTooLong || err == ai.ErrAssistantNotConfigured {
			return sendServiceError(c, err)
		}
		// Degrade to the apology text rather than exposing upstream detail.
		c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
		return c.Status(fiber.StatusBadGateway).SendString(assistantApology)
	}

	logger := *requestLogger(h.logger, c)
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	// Intermediary proxies must not buffer the token stream.
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer stream.Close()

		for {
			token, ok := stream.Next()
			if !ok {
				break
			}
			if _, err := w.WriteString(token); err != nil {
				logger.Debug().Err(err).Msg("assistant client went away")
				return
			}
			if err := w.Flush(); err != nil {
				logger.Debug().Err(err).Msg("assistant client went away")
				return
			}
			observability.AssistantTokens().Inc()
		}

		if err := stream.Err(); err != nil {
			logger.Warn().Err(err).Msg("assistant upstream read failed mid-stream")
		}
	}))

	return nil
}
