package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/prompt"
	"github.com/noah-isme/schoolchat-api/pkg/ai"
)

// maxAssistantTurnLength caps each conversation turn forwarded upstream.
const maxAssistantTurnLength = 800

// AssistantService opens streamed assistant completions. Configuration is
// checked before anything is sent upstream so clients get a clean error
// instead of a broken stream.
type AssistantService interface {
	StreamChat(ctx context.Context, req dto.AssistantChatRequest) (*ai.TokenStream, error)
}

type assistantService struct {
	client   *ai.AssistantClient
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAssistantService constructs the assistant service. A nil client means
// the upstream is not configured; every call then fails eagerly.
func NewAssistantService(client *ai.AssistantClient, validate *validator.Validate, logger zerolog.Logger) AssistantService {
	return &assistantService{
		client:   client,
		validate: validate,
		logger:   logger.With().Str("component", "assistant_service").Logger(),
	}
}

func (s *assistantService) StreamChat(ctx context.Context, req dto.AssistantChatRequest) (*ai.TokenStream, error) {
	if s.client == nil {
		return nil, ai.ErrAssistantNotConfigured
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	turns := make([]ai.ChatTurn, 0, len(req.Messages))
	for _, message := range req.Messages {
		if len(message.Content) > maxAssistantTurnLength {
			return nil, ErrMessageTooLong
		}
		turns = append(turns, ai.ChatTurn{Role: message.Role, Content: message.Content})
	}

	systemPrompt := prompt.BuildSystemPrompt(prompt.Language(req.Language), prompt.Mode(req.Mode))

	s.logger.Debug().
		Str("language", req.Language).
		Str("mode", req.Mode).
		Int("turns", len(turns)).
		Msg("opening assistant stream")

	return s.client.StreamChat(ctx, systemPrompt, turns)
}
