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
	"gorm.io/gorm"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/models"
	"github.com/noah-isme/schoolchat-api/internal/repository"
	"github.com/noah-isme/schoolchat-api/internal/transport"
)

// ThreadService owns thread bootstrap and the augmented read-side
// projection. Every other operation that needs "the current state of a
// conversation" goes through Augment, which is idempotent and
// side-effect-free.
type ThreadService interface {
	CreateOrGet(ctx context.Context, schoolID string, user dto.UserPayload) (dto.AugmentedThreadResponse, error)
	Augment(ctx context.Context, threadID string) (dto.AugmentedThreadResponse, error)
}

type threadService struct {
	threads       repository.ThreadRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	rules         repository.RuleRepository
	verifications repository.VerificationRepository
	flags         repository.ModerationRepository
	sender        transport.Sender
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewThreadService constructs the thread service.
func NewThreadService(
	threads repository.ThreadRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	rules repository.RuleRepository,
	verifications repository.VerificationRepository,
	flags repository.ModerationRepository,
	sender transport.Sender,
	logger zerolog.Logger,
) ThreadService {
	return &threadService{
		threads:       threads,
		messages:      messages,
		users:         users,
		rules:         rules,
		verifications: verifications,
		flags:         flags,
		sender:        sender,
		logger:        logger.With().Str("component", "thread_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/schoolchat-api/internal/service/thread"),
	}
}

func (s *threadService) CreateOrGet(ctx context.Context, schoolID string, user dto.UserPayload) (dto.AugmentedThreadResponse, error) {
	record := user.Model()
	if err := s.users.Upsert(ctx, &record); err != nil {
		return dto.AugmentedThreadResponse{}, err
	}

	thread, err := s.threads.ActiveBySchool(ctx, schoolID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		thread = models.ChatThread{
			ThreadID:  uuid.NewString(),
			SchoolID:  schoolID,
			CreatedBy: user.UserID,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.threads.Create(ctx, &thread); err != nil {
			return dto.AugmentedThreadResponse{}, err
		}
		s.logger.Info().Str("thread_id", thread.ThreadID).Str("school_id", schoolID).Msg("thread created")
	} else if err != nil {
		return dto.AugmentedThreadResponse{}, err
	}

	return s.Augment(ctx, thread.ThreadID)
}

// Augment joins the thread with its messages, school users, official rules,
// verification records, and moderation flags. Message content is reconciled
// from the transport when the local copy is absent; a failed transport
// lookup degrades that one message to empty content and an unknown sender
// rather than failing the whole projection.
func (s *threadService) Augment(ctx context.Context, threadID string) (dto.AugmentedThreadResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "thread.augment", trace.WithAttributes(
		attribute.String("thread_id", threadID),
	))
	defer span.End()

	thread, err := s.threads.Get(spanCtx, threadID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AugmentedThreadResponse{}, ErrThreadNotFound
	}
	if err != nil {
		return dto.AugmentedThreadResponse{}, err
	}

	messages, err := s.messages.ListByThread(spanCtx, threadID)
	if err != nil {
		return dto.AugmentedThreadResponse{}, err
	}
	messages = s.reconcileContent(spanCtx, threadID, messages)

	users, err := s.users.ListBySchool(spanCtx, thread.SchoolID)
	if err != nil {
		return dto.AugmentedThreadResponse{}, err
	}

	rules, err := s.rules.ListBySchool(spanCtx, thread.SchoolID)
	if err != nil {
		return dto.AugmentedThreadResponse{}, err
	}

	messageIDs := make([]string, 0, len(messages))
	for _, message := range messages {
		messageIDs = append(messageIDs, message.MessageID)
	}

	verifications, err := s.verifications.ListByMessageIDs(spanCtx, messageIDs)
	if err != nil {
		return dto.AugmentedThreadResponse{}, err
	}

	flags, err := s.flags.ListByMessageIDs(spanCtx, messageIDs)
	if err != nil {
		return dto.AugmentedThreadResponse{}, err
	}

	return dto.AugmentedThreadResponse{
		ChatThread:      thread,
		Messages:        messages,
		Users:           emptyIfNil(users),
		OfficialRules:   emptyIfNil(rules),
		Verifications:   emptyIfNil(verifications),
		ModerationFlags: emptyIfNil(flags),
	}, nil
}

// reconcileContent fills missing message content from the transport, which
// is the sender of record for bytes. Lookups are best-effort.
func (s *threadService) reconcileContent(ctx context.Context, threadID string, messages []models.ChatMessage) []models.ChatMessage {
	for i, message := range messages {
		if message.Content != "" {
			continue
		}

		if envelope, ok := s.sender.TryGetMessage(ctx, threadID, message.MessageID); ok {
			messages[i].Content = envelope.Content
			continue
		}

		if message.SenderID == "" {
			messages[i].SenderID = "unknown"
		}
	}

	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
