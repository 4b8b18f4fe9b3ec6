package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/models"
	"github.com/noah-isme/schoolchat-api/internal/observability"
	"github.com/noah-isme/schoolchat-api/internal/repository"
	"github.com/noah-isme/schoolchat-api/internal/safety"
	"github.com/noah-isme/schoolchat-api/internal/transport"
)

const safetyBlockNotice = "This message could not be posted due to school safety policy."

// SenderContentSafety is the synthetic author of safety-block notices.
const SenderContentSafety = "system-content-safety"

// MessageService owns the send path: sanitize, classify, deliver, persist.
// The classifier gates delivery; an unreachable classifier blocks the send.
type MessageService interface {
	Send(ctx context.Context, req dto.SendMessageRequest) (dto.SendMessageResponse, error)
}

type messageService struct {
	threadSvc  ThreadService
	events     EventService
	messages   repository.MessageRepository
	users      repository.UserRepository
	flags      repository.ModerationRepository
	classifier safety.Classifier
	sender     transport.Sender
	sanitizer  *bluemonday.Policy
	validate   *validator.Validate
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewMessageService constructs the message service.
func NewMessageService(
	threadSvc ThreadService,
	events EventService,
	messages repository.MessageRepository,
	users repository.UserRepository,
	flags repository.ModerationRepository,
	classifier safety.Classifier,
	sender transport.Sender,
	validate *validator.Validate,
	logger zerolog.Logger,
) MessageService {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("br")

	return &messageService{
		threadSvc:  threadSvc,
		events:     events,
		messages:   messages,
		users:      users,
		flags:      flags,
		classifier: classifier,
		sender:     sender,
		sanitizer:  policy,
		validate:   validate,
		logger:     logger.With().Str("component", "message_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/schoolchat-api/internal/service/message"),
	}
}

func (s *messageService) Send(ctx context.Context, req dto.SendMessageRequest) (dto.SendMessageResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "message.send", trace.WithAttributes(
		attribute.String("school_id", req.SchoolID),
	))
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return dto.SendMessageResponse{}, err
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if content == "" {
		return dto.SendMessageResponse{}, ErrEmptyContent
	}

	var thread dto.AugmentedThreadResponse
	var err error
	if req.ThreadID != "" {
		thread, err = s.threadSvc.Augment(spanCtx, req.ThreadID)
	} else {
		thread, err = s.threadSvc.CreateOrGet(spanCtx, req.SchoolID, req.User)
	}
	if err != nil {
		return dto.SendMessageResponse{}, err
	}

	user := req.User.Model()
	if err := s.users.Upsert(spanCtx, &user); err != nil {
		return dto.SendMessageResponse{}, err
	}

	verdict, err := s.classifier.Analyze(spanCtx, content)
	if err != nil {
		s.logger.Error().Err(err).Str("thread_id", thread.ThreadID).Msg("content safety check failed, refusing send")
		return dto.SendMessageResponse{}, fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}

	if verdict.Blocked {
		return s.blockSend(spanCtx, thread.ThreadID, user, verdict)
	}

	delivery, err := s.sender.Send(spanCtx, transport.SendOptions{
		ThreadID:          thread.ThreadID,
		SenderTransportID: user.TransportUserID,
		Content:           content,
		SenderDisplayName: user.UserID,
	})
	if err != nil {
		return dto.SendMessageResponse{}, err
	}

	messageType := models.MessageType(req.MessageType)
	if messageType == "" {
		messageType = models.MessageTypeStudentAnswer
	}
	senderRole := models.SenderRoleStudent
	if user.Role == models.UserRoleSenior {
		senderRole = models.SenderRoleSenior
	}

	message := models.ChatMessage{
		MessageID:      delivery.MessageID,
		ThreadID:       thread.ThreadID,
		SenderID:       user.UserID,
		SenderRole:     senderRole,
		Content:        delivery.Content,
		MessageType:    messageType,
		VerifiedStatus: models.VerifiedStatusUnverified,
		CreatedAt:      delivery.DeliveredAt,
	}
	if err := s.messages.Create(spanCtx, &message); err != nil {
		return dto.SendMessageResponse{}, err
	}

	flag := models.ModerationFlag{
		FlagID:      uuid.NewString(),
		MessageID:   message.MessageID,
		Severity:    models.SeverityLow,
		Reason:      "Content safety scan completed.",
		ActionTaken: models.ActionNone,
		Metadata:    safetyMetadata(verdict),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.flags.Create(spanCtx, &flag); err != nil {
		return dto.SendMessageResponse{}, err
	}

	observability.MessagesSent().WithLabelValues(string(messageType)).Inc()
	observability.ModerationFlags().WithLabelValues(string(flag.Severity)).Inc()
	s.events.Publish(spanCtx, dto.ThreadEvent{
		Type:      EventMessageCreated,
		ThreadID:  thread.ThreadID,
		MessageID: message.MessageID,
	})

	refreshed, err := s.threadSvc.Augment(spanCtx, thread.ThreadID)
	if err != nil {
		return dto.SendMessageResponse{}, err
	}

	return dto.SendMessageResponse{
		Blocked:    false,
		Message:    &message,
		Moderation: &flag,
		Thread:     refreshed,
	}, nil
}

// blockSend records the refusal without delivering the original content. The
// warning notice itself is delivered best-effort so the thread shows why the
// student's message never appeared.
func (s *messageService) blockSend(ctx context.Context, threadID string, user models.User, verdict safety.Result) (dto.SendMessageResponse, error) {
	now := time.Now().UTC()
	systemMessage := models.ChatMessage{
		MessageID:      uuid.NewString(),
		ThreadID:       threadID,
		SenderID:       SenderContentSafety,
		SenderRole:     models.SenderRoleAI,
		Content:        safetyBlockNotice,
		MessageType:    models.MessageTypeSystemWarning,
		VerifiedStatus: models.VerifiedStatusUnverified,
		CreatedAt:      now,
	}

	if delivery, err := s.sender.Send(ctx, transport.SendOptions{
		ThreadID:          threadID,
		SenderTransportID: user.TransportUserID,
		Content:           safetyBlockNotice,
		SenderDisplayName: SenderContentSafety,
	}); err != nil {
		s.logger.Warn().Err(err).Str("thread_id", threadID).Msg("failed to deliver safety block notice")
	} else {
		systemMessage.MessageID = delivery.MessageID
		systemMessage.CreatedAt = delivery.DeliveredAt
	}

	if err := s.messages.Create(ctx, &systemMessage); err != nil {
		return dto.SendMessageResponse{}, err
	}

	flag := models.ModerationFlag{
		FlagID:      uuid.NewString(),
		MessageID:   systemMessage.MessageID,
		Severity:    models.SeverityHigh,
		Reason:      "Content safety blocked a student message.",
		ActionTaken: models.ActionWarningPosted,
		Metadata:    safetyMetadata(verdict),
		CreatedAt:   now,
	}
	if err := s.flags.Create(ctx, &flag); err != nil {
		return dto.SendMessageResponse{}, err
	}

	observability.MessagesBlocked().Inc()
	observability.ModerationFlags().WithLabelValues(string(flag.Severity)).Inc()
	s.events.Publish(ctx, dto.ThreadEvent{
		Type:      EventModerationFlagged,
		ThreadID:  threadID,
		MessageID: systemMessage.MessageID,
		Severity:  string(flag.Severity),
	})

	thread, err := s.threadSvc.Augment(ctx, threadID)
	if err != nil {
		return dto.SendMessageResponse{}, err
	}

	return dto.SendMessageResponse{
		Blocked:       true,
		Moderation:    &flag,
		SystemMessage: &systemMessage,
		Thread:        thread,
	}, nil
}

func safetyMetadata(verdict safety.Result) datatypes.JSONMap {
	categories := make(map[string]interface{}, len(verdict.Categories))
	for name, severity := range verdict.Categories {
		categories[name] = severity
	}
	return datatypes.JSONMap{
		"source":     "content-safety",
		"blocked":    verdict.Blocked,
		"categories": categories,
	}
}
