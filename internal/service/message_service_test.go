package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/models"
	"github.com/noah-isme/schoolchat-api/internal/safety"
)

type stubClassifier struct {
	result safety.Result
	err    error
}

func (s stubClassifier) Analyze(context.Context, string) (safety.Result, error) {
	return s.result, s.err
}

func newMessageService(t *testing.T, fixture serviceFixture, classifier safety.Classifier) MessageService {
	t.Helper()

	log := zerolog.Nop()
	events := NewEventService(nil, "", nil, log)
	return NewMessageService(
		fixture.threads,
		events,
		fixture.messages,
		fixture.users,
		fixture.flags,
		classifier,
		fixture.sender,
		validator.New(validator.WithRequiredStructEnabled()),
		log,
	)
}

func sendRequest(content string) dto.SendMessageRequest {
	return dto.SendMessageRequest{
		SchoolID: "demo-school",
		User:     studentPayload(),
		Content:  content,
	}
}

func TestSendDeliversAndPersists(t *testing.T) {
	fixture := newServiceFixture(t, "svc_send_ok")
	svc := newMessageService(t, fixture, stubClassifier{result: safety.Result{Categories: map[string]int{"Hate": 0}}})

	result, err := svc.Send(context.Background(), sendRequest("when does the library open?"))
	require.NoError(t, err)

	require.False(t, result.Blocked)
	require.NotNil(t, result.Message)
	require.Equal(t, models.MessageTypeStudentAnswer, result.Message.MessageType)
	require.Equal(t, models.SenderRoleStudent, result.Message.SenderRole)
	require.Equal(t, models.VerifiedStatusUnverified, result.Message.VerifiedStatus)
	require.Equal(t, "when does the library open?", result.Message.Content)

	require.NotNil(t, result.Moderation)
	require.Equal(t, models.SeverityLow, result.Moderation.Severity)
	require.Equal(t, models.ActionNone, result.Moderation.ActionTaken)
	require.Equal(t, "content-safety", result.Moderation.Metadata["source"])

	require.Len(t, result.Thread.Messages, 1)

	// The transport holds the delivered bytes.
	envelope, ok := fixture.sender.TryGetMessage(context.Background(), result.Thread.ThreadID, result.Message.MessageID)
	require.True(t, ok)
	require.Equal(t, result.Message.Content, envelope.Content)
}

func TestSendSeniorRoleCarriesThrough(t *testing.T) {
	fixture := newServiceFixture(t, "svc_send_senior")
	svc := newMessageService(t, fixture, stubClassifier{})

	result, err := svc.Send(context.Background(), dto.SendMessageRequest{
		SchoolID: "demo-school",
		User: dto.UserPayload{
			UserID:   "senior-1",
			Role:     "senior",
			SchoolID: "demo-school",
		},
		Content:     "attendance is taken at 8:15",
		MessageType: "student_answer",
	})
	require.NoError(t, err)
	require.Equal(t, models.SenderRoleSenior, result.Message.SenderRole)
}

func TestSendBlockedContentSubstitutesWarning(t *testing.T) {
	fixture := newServiceFixture(t, "svc_send_blocked")
	svc := newMessageService(t, fixture, stubClassifier{
		result: safety.Result{Blocked: true, Categories: map[string]int{"Violence": 4}},
	})

	result, err := svc.Send(context.Background(), sendRequest("something hateful"))
	require.NoError(t, err)

	require.True(t, result.Blocked)
	require.Nil(t, result.Message)
	require.NotNil(t, result.SystemMessage)
	require.Equal(t, models.MessageTypeSystemWarning, result.SystemMessage.MessageType)
	require.Equal(t, SenderContentSafety, result.SystemMessage.SenderID)
	require.Equal(t, models.SenderRoleAI, result.SystemMessage.SenderRole)

	require.NotNil(t, result.Moderation)
	require.Equal(t, models.SeverityHigh, result.Moderation.Severity)
	require.Equal(t, models.ActionWarningPosted, result.Moderation.ActionTaken)
	require.Equal(t, true, result.Moderation.Metadata["blocked"])

	// The student's words never reach storage or the thread.
	for _, message := range result.Thread.Messages {
		require.NotContains(t, message.Content, "something hateful")
	}
}

func TestSendFailsClosedWhenClassifierUnavailable(t *testing.T) {
	fixture := newServiceFixture(t, "svc_send_closed")
	svc := newMessageService(t, fixture, stubClassifier{err: errors.New("connection refused")})

	_, err := svc.Send(context.Background(), sendRequest("hello"))
	require.ErrorIs(t, err, ErrClassifierUnavailable)

	thread, err := fixture.threads.CreateOrGet(context.Background(), "demo-school", studentPayload())
	require.NoError(t, err)
	require.Empty(t, thread.Messages)
}

func TestSendFailsClosedWhenClassifierNotConfigured(t *testing.T) {
	fixture := newServiceFixture(t, "svc_send_disabled")
	svc := newMessageService(t, fixture, safety.Disabled{})

	_, err := svc.Send(context.Background(), sendRequest("hello"))
	require.ErrorIs(t, err, ErrClassifierUnavailable)
	// The misconfiguration sentinel must survive the wrap so the handler
	// can map it to a distinct status.
	require.ErrorIs(t, err, safety.ErrNotConfigured)
}

func TestSendRejectsContentEmptyAfterSanitization(t *testing.T) {
	fixture := newServiceFixture(t, "svc_send_empty")
	svc := newMessageService(t, fixture, stubClassifier{})

	_, err := svc.Send(context.Background(), sendRequest("<script>alert(1)</script>"))
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestSendRejectsInvalidRequest(t *testing.T) {
	fixture := newServiceFixture(t, "svc_send_invalid")
	svc := newMessageService(t, fixture, stubClassifier{})

	_, err := svc.Send(context.Background(), dto.SendMessageRequest{
		SchoolID: "demo-school",
		Content:  "hello",
	})
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}

func TestSendUnknownThread(t *testing.T) {
	fixture := newServiceFixture(t, "svc_send_badthread")
	svc := newMessageService(t, fixture, stubClassifier{})

	req := sendRequest("hello")
	req.ThreadID = "no-such-thread"

	_, err := svc.Send(context.Background(), req)
	require.ErrorIs(t, err, ErrThreadNotFound)
}
