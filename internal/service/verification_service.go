package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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
	"github.com/noah-isme/schoolchat-api/internal/observability"
	"github.com/noah-isme/schoolchat-api/internal/repository"
	"github.com/noah-isme/schoolchat-api/internal/safety"
	"github.com/noah-isme/schoolchat-api/internal/transport"
	"github.com/noah-isme/schoolchat-api/pkg/ai"
)

const verificationBlockNotice = "This AI verification could not be posted due to school safety policy."

// SenderAIVerifier is the synthetic author of verification annotations.
const SenderAIVerifier = "ai-verifier"

// VerificationService drives the verification state machine: it consults the
// oracle, persists the resulting record, and on a successful verdict derives
// the message's new verified status and posts the annotation back into the
// thread. Oracle failure is a first-class outcome, not an error.
type VerificationService interface {
	Verify(ctx context.Context, req dto.VerifyRequest) (dto.VerifyResponse, error)
}

type verificationService struct {
	threadSvc     ThreadService
	events        EventService
	messages      repository.MessageRepository
	users         repository.UserRepository
	verifications repository.VerificationRepository
	flags         repository.ModerationRepository
	verifier      ai.Verifier
	classifier    safety.Classifier
	sender        transport.Sender
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewVerificationService constructs the verification service.
func NewVerificationService(
	threadSvc ThreadService,
	events EventService,
	messages repository.MessageRepository,
	users repository.UserRepository,
	verifications repository.VerificationRepository,
	flags repository.ModerationRepository,
	verifier ai.Verifier,
	classifier safety.Classifier,
	sender transport.Sender,
	logger zerolog.Logger,
) VerificationService {
	return &verificationService{
		threadSvc:     threadSvc,
		events:        events,
		messages:      messages,
		users:         users,
		verifications: verifications,
		flags:         flags,
		verifier:      verifier,
		classifier:    classifier,
		sender:        sender,
		logger:        logger.With().Str("component", "verification_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/schoolchat-api/internal/service/verification"),
	}
}

func (s *verificationService) Verify(ctx context.Context, req dto.VerifyRequest) (dto.VerifyResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "verification.verify", trace.WithAttributes(
		attribute.String("message_id", req.MessageID),
	))
	defer span.End()

	message, err := s.messages.Get(spanCtx, req.MessageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.VerifyResponse{}, ErrMessageNotFound
	}
	if err != nil {
		return dto.VerifyResponse{}, err
	}

	thread, err := s.threadSvc.Augment(spanCtx, message.ThreadID)
	if err != nil {
		return dto.VerifyResponse{}, err
	}

	rules := make([]ai.Rule, 0, len(thread.OfficialRules))
	for _, rule := range thread.OfficialRules {
		rules = append(rules, ai.Rule{ID: rule.RuleID, Title: rule.Title, Content: rule.Content})
	}

	verdict := s.verifier.Verify(spanCtx, ai.VerificationInput{
		MessageID: message.MessageID,
		Content:   message.Content,
		Rules:     rules,
	})

	if !verdict.Successful {
		return s.recordUnverified(spanCtx, message, verdict.FailureReason)
	}

	record := models.NewSuccessfulVerification(
		message.MessageID,
		models.VerificationResult(verdict.Result),
		verdict.Explanation,
		verdict.SourceIDs,
	)
	record.VerificationID = uuid.NewString()
	if err := s.verifications.Create(spanCtx, &record); err != nil {
		return dto.VerifyResponse{}, err
	}

	newStatus := record.VerifiedStatusFor()
	if err := s.messages.UpdateVerifiedStatus(spanCtx, message.MessageID, newStatus); err != nil {
		return dto.VerifyResponse{}, err
	}

	observability.Verifications().WithLabelValues(string(record.Outcome)).Inc()
	s.events.Publish(spanCtx, dto.ThreadEvent{
		Type:      EventVerificationRecorded,
		ThreadID:  message.ThreadID,
		MessageID: message.MessageID,
		Outcome:   string(record.Outcome),
	})

	aiContent := fmt.Sprintf("AI verification: %s\nReason: %s\nSources: %s",
		record.Result, record.Explanation, strings.Join(verdict.SourceIDs, ", "))

	// The verifier's own words go through the same safety gate as student
	// content, but here an unreachable classifier lets the annotation
	// through. Verification already happened; suppressing the explanation
	// would hide an applied status change.
	if blocked := s.checkAnnotation(spanCtx, aiContent); blocked {
		return s.blockAnnotation(spanCtx, message, record)
	}

	aiMessage := models.ChatMessage{
		MessageID:        uuid.NewString(),
		ThreadID:         message.ThreadID,
		SenderID:         SenderAIVerifier,
		SenderRole:       models.SenderRoleAI,
		Content:          aiContent,
		MessageType:      models.MessageTypeAIVerification,
		VerifiedStatus:   models.VerifiedStatusVerified,
		RelatedMessageID: message.MessageID,
		CreatedAt:        record.CreatedAt,
	}

	if delivery, err := s.sender.Send(spanCtx, transport.SendOptions{
		ThreadID:          message.ThreadID,
		SenderTransportID: s.annotationSenderID(thread, message),
		Content:           aiContent,
		SenderDisplayName: SenderAIVerifier,
	}); err != nil {
		s.logger.Warn().Err(err).Str("message_id", message.MessageID).Msg("failed to deliver verification annotation")
	} else {
		aiMessage.MessageID = delivery.MessageID
		aiMessage.CreatedAt = delivery.DeliveredAt
	}

	if err := s.messages.Create(spanCtx, &aiMessage); err != nil {
		return dto.VerifyResponse{}, err
	}

	flag := models.ModerationFlag{
		FlagID:      uuid.NewString(),
		MessageID:   aiMessage.MessageID,
		Severity:    models.SeverityLow,
		Reason:      "Content safety scan completed.",
		ActionTaken: models.ActionNone,
		Metadata:    datatypes.JSONMap{"source": "content-safety", "blocked": false},
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.flags.Create(spanCtx, &flag); err != nil {
		return dto.VerifyResponse{}, err
	}
	observability.ModerationFlags().WithLabelValues(string(flag.Severity)).Inc()

	refreshed, err := s.threadSvc.Augment(spanCtx, message.ThreadID)
	if err != nil {
		return dto.VerifyResponse{}, err
	}

	return dto.VerifyResponse{
		Verification: record,
		AIMessage:    &aiMessage,
		Moderation:   &flag,
		Thread:       refreshed,
	}, nil
}

// recordUnverified persists the fallback variant. The message's status is
// deliberately left untouched and nothing is posted into the thread.
func (s *verificationService) recordUnverified(ctx context.Context, message models.ChatMessage, failureReason string) (dto.VerifyResponse, error) {
	record := models.NewUnverifiedVerification(message.MessageID, failureReason)
	record.VerificationID = uuid.NewString()
	if err := s.verifications.Create(ctx, &record); err != nil {
		return dto.VerifyResponse{}, err
	}

	observability.Verifications().WithLabelValues(string(record.Outcome)).Inc()
	s.events.Publish(ctx, dto.ThreadEvent{
		Type:      EventVerificationRecorded,
		ThreadID:  message.ThreadID,
		MessageID: message.MessageID,
		Outcome:   string(record.Outcome),
	})
	s.logger.Warn().
		Str("message_id", message.MessageID).
		Str("failure_reason", failureReason).
		Msg("verification fell back to unverified")

	thread, err := s.threadSvc.Augment(ctx, message.ThreadID)
	if err != nil {
		return dto.VerifyResponse{}, err
	}

	return dto.VerifyResponse{
		Verification: record,
		Thread:       thread,
	}, nil
}

// checkAnnotation gates the AI's annotation text. Classifier failure fails
// open here, unlike the student send path.
func (s *verificationService) checkAnnotation(ctx context.Context, content string) bool {
	verdict, err := s.classifier.Analyze(ctx, content)
	if err != nil {
		s.logger.Warn().Err(err).Msg("content safety check failed for verification annotation, allowing")
		return false
	}
	return verdict.Blocked
}

func (s *verificationService) blockAnnotation(ctx context.Context, message models.ChatMessage, record models.AIVerification) (dto.VerifyResponse, error) {
	now := time.Now().UTC()
	systemMessage := models.ChatMessage{
		MessageID:        uuid.NewString(),
		ThreadID:         message.ThreadID,
		SenderID:         SenderContentSafety,
		SenderRole:       models.SenderRoleAI,
		Content:          verificationBlockNotice,
		MessageType:      models.MessageTypeSystemWarning,
		VerifiedStatus:   models.VerifiedStatusUnverified,
		RelatedMessageID: message.MessageID,
		CreatedAt:        now,
	}
	if err := s.messages.Create(ctx, &systemMessage); err != nil {
		return dto.VerifyResponse{}, err
	}

	flag := models.ModerationFlag{
		FlagID:      uuid.NewString(),
		MessageID:   systemMessage.MessageID,
		Severity:    models.SeverityHigh,
		Reason:      "Content safety blocked an AI verification.",
		ActionTaken: models.ActionWarningPosted,
		Metadata:    datatypes.JSONMap{"source": "content-safety", "blocked": true},
		CreatedAt:   now,
	}
	if err := s.flags.Create(ctx, &flag); err != nil {
		return dto.VerifyResponse{}, err
	}

	observability.ModerationFlags().WithLabelValues(string(flag.Severity)).Inc()
	s.events.Publish(ctx, dto.ThreadEvent{
		Type:      EventModerationFlagged,
		ThreadID:  message.ThreadID,
		MessageID: systemMessage.MessageID,
		Severity:  string(flag.Severity),
	})

	thread, err := s.threadSvc.Augment(ctx, message.ThreadID)
	if err != nil {
		return dto.VerifyResponse{}, err
	}

	return dto.VerifyResponse{
		Blocked:       true,
		Verification:  record,
		Moderation:    &flag,
		SystemMessage: &systemMessage,
		Thread:        thread,
	}, nil
}

// annotationSenderID picks a transport identity the annotation can be posted
// under. The transport requires a real participant identity, so we fall back
// from the verified message's author, to the thread creator, to any school
// user with a transport identity.
func (s *verificationService) annotationSenderID(thread dto.AugmentedThreadResponse, message models.ChatMessage) string {
	byID := make(map[string]models.User, len(thread.Users))
	for _, user := range thread.Users {
		byID[user.UserID] = user
	}

	if user, ok := byID[message.SenderID]; ok && user.TransportUserID != "" {
		return user.TransportUserID
	}
	if user, ok := byID[thread.CreatedBy]; ok && user.TransportUserID != "" {
		return user.TransportUserID
	}
	for _, user := range thread.Users {
		if user.TransportUserID != "" {
			return user.TransportUserID
		}
	}
	return ""
}
