package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/models"
	"github.com/noah-isme/schoolchat-api/internal/moderation"
	"github.com/noah-isme/schoolchat-api/internal/observability"
	"github.com/noah-isme/schoolchat-api/internal/repository"
)

const moderationEscalationNotice = "This message triggered safety filters and has been escalated to a moderator. Please keep the conversation respectful."

// SenderModeration is the synthetic author of escalation notices.
const SenderModeration = "system-moderation"

// ModerationService runs the keyword heuristics against an existing message
// and records the resulting flag. High-severity hits post a visible warning
// into the thread; lower severities only leave an audit record.
type ModerationService interface {
	Moderate(ctx context.Context, req dto.ModerateRequest) (dto.ModerateResponse, error)
}

type moderationService struct {
	threadSvc ThreadService
	events    EventService
	messages  repository.MessageRepository
	flags     repository.ModerationRepository
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewModerationService constructs the moderation service.
func NewModerationService(
	threadSvc ThreadService,
	events EventService,
	messages repository.MessageRepository,
	flags repository.ModerationRepository,
	logger zerolog.Logger,
) ModerationService {
	return &moderationService{
		threadSvc: threadSvc,
		events:    events,
		messages:  messages,
		flags:     flags,
		logger:    logger.With().Str("component", "moderation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/schoolchat-api/internal/service/moderation"),
	}
}

func (s *moderationService) Moderate(ctx context.Context, req dto.ModerateRequest) (dto.ModerateResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "moderation.moderate", trace.WithAttributes(
		attribute.String("message_id", req.MessageID),
	))
	defer span.End()

	message, err := s.messages.Get(spanCtx, req.MessageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ModerateResponse{}, ErrMessageNotFound
	}
	if err != nil {
		return dto.ModerateResponse{}, err
	}

	assessment := moderation.Evaluate(message.Content)

	flag := models.ModerationFlag{
		FlagID:      uuid.NewString(),
		MessageID:   message.MessageID,
		Severity:    assessment.Severity,
		Reason:      assessment.Reason,
		ActionTaken: assessment.ActionTaken,
		Metadata:    datatypes.JSONMap{"source": "keyword-heuristics"},
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.flags.Create(spanCtx, &flag); err != nil {
		return dto.ModerateResponse{}, err
	}

	var systemMessage *models.ChatMessage
	if assessment.ActionTaken == models.ActionWarningPosted {
		warning := models.ChatMessage{
			MessageID:        uuid.NewString(),
			ThreadID:         message.ThreadID,
			SenderID:         SenderModeration,
			SenderRole:       models.SenderRoleAI,
			Content:          moderationEscalationNotice,
			MessageType:      models.MessageTypeSystemWarning,
			VerifiedStatus:   message.VerifiedStatus,
			RelatedMessageID: message.MessageID,
			CreatedAt:        flag.CreatedAt,
		}
		if err := s.messages.Create(spanCtx, &warning); err != nil {
			return dto.ModerateResponse{}, err
		}
		systemMessage = &warning
	}

	observability.ModerationFlags().WithLabelValues(string(flag.Severity)).Inc()
	s.events.Publish(spanCtx, dto.ThreadEvent{
		Type:      EventModerationFlagged,
		ThreadID:  message.ThreadID,
		MessageID: message.MessageID,
		Severity:  string(flag.Severity),
	})
	s.logger.Info().
		Str("message_id", message.MessageID).
		Str("severity", string(flag.Severity)).
		Str("action", string(flag.ActionTaken)).
		Msg("moderation flag recorded")

	thread, err := s.threadSvc.Augment(spanCtx, message.ThreadID)
	if err != nil {
		return dto.ModerateResponse{}, err
	}

	return dto.ModerateResponse{
		Moderation:    flag,
		SystemMessage: systemMessage,
		Thread:        thread,
	}, nil
}
