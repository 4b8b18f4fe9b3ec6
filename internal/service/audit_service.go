package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/models"
	"github.com/noah-isme/schoolchat-api/internal/repository"
)

// AuditService serves the moderator console read models: recent flags and
// verification records joined with the messages they target.
type AuditService interface {
	FlagsBySeverity(ctx context.Context, severity models.ModerationSeverity, limit int) ([]dto.ModerationFlagDetail, error)
	VerificationsByResult(ctx context.Context, result models.VerificationResult, limit int) ([]dto.VerificationDetail, error)
}

type auditService struct {
	messages      repository.MessageRepository
	verifications repository.VerificationRepository
	flags         repository.ModerationRepository
	logger        zerolog.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(
	messages repository.MessageRepository,
	verifications repository.VerificationRepository,
	flags repository.ModerationRepository,
	logger zerolog.Logger,
) AuditService {
	return &auditService{
		messages:      messages,
		verifications: verifications,
		flags:         flags,
		logger:        logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) FlagsBySeverity(ctx context.Context, severity models.ModerationSeverity, limit int) ([]dto.ModerationFlagDetail, error) {
	flags, err := s.flags.ListBySeverity(ctx, severity, limit)
	if err != nil {
		return nil, err
	}

	messageIDs := make([]string, 0, len(flags))
	for _, flag := range flags {
		messageIDs = append(messageIDs, flag.MessageID)
	}
	byID, err := s.messagesByID(ctx, messageIDs)
	if err != nil {
		return nil, err
	}

	details := make([]dto.ModerationFlagDetail, 0, len(flags))
	for _, flag := range flags {
		detail := dto.ModerationFlagDetail{ModerationFlag: flag}
		if message, ok := byID[flag.MessageID]; ok {
			detail.ThreadID = message.ThreadID
			detail.MessageContent = message.Content
			detail.SenderID = message.SenderID
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *auditService) VerificationsByResult(ctx context.Context, result models.VerificationResult, limit int) ([]dto.VerificationDetail, error) {
	records, err := s.verifications.ListByResult(ctx, result, limit)
	if err != nil {
		return nil, err
	}

	messageIDs := make([]string, 0, len(records))
	for _, record := range records {
		messageIDs = append(messageIDs, record.MessageID)
	}
	byID, err := s.messagesByID(ctx, messageIDs)
	if err != nil {
		return nil, err
	}

	details := make([]dto.VerificationDetail, 0, len(records))
	for _, record := range records {
		detail := dto.VerificationDetail{AIVerification: record}
		if message, ok := byID[record.MessageID]; ok {
			detail.ThreadID = message.ThreadID
			detail.MessageContent = message.Content
			detail.SenderID = message.SenderID
			detail.VerifiedStatus = message.VerifiedStatus
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *auditService) messagesByID(ctx context.Context, messageIDs []string) (map[string]models.ChatMessage, error) {
	messages, err := s.messages.ListByIDs(ctx, messageIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.ChatMessage, len(messages))
	for _, message := range messages {
		byID[message.MessageID] = message
	}
	return byID, nil
}
