package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/models"
	"github.com/noah-isme/schoolchat-api/internal/repository"
	"github.com/noah-isme/schoolchat-api/internal/transport"
)

type serviceFixture struct {
	db       *gorm.DB
	sender   *transport.Simulator
	threads  ThreadService
	messages repository.MessageRepository
	users    repository.UserRepository
	flags    repository.ModerationRepository
}

func newServiceFixture(t *testing.T, name string) serviceFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.ChatThread{}, &models.ChatMessage{},
		&models.AIVerification{}, &models.ModerationFlag{}, &models.OfficialRule{},
	))

	log := zerolog.Nop()
	sender := transport.NewSimulator()
	messageRepo := repository.NewMessageRepository(db)
	userRepo := repository.NewUserRepository(db)
	moderationRepo := repository.NewModerationRepository(db)

	threads := NewThreadService(
		repository.NewThreadRepository(db),
		messageRepo,
		userRepo,
		repository.NewRuleRepository(db),
		repository.NewVerificationRepository(db),
		moderationRepo,
		sender,
		log,
	)

	return serviceFixture{
		db:       db,
		sender:   sender,
		threads:  threads,
		messages: messageRepo,
		users:    userRepo,
		flags:    moderationRepo,
	}
}

func studentPayload() dto.UserPayload {
	return dto.UserPayload{
		UserID:   "student-1",
		Role:     "student",
		SchoolID: "demo-school",
	}
}

func TestCreateOrGetReusesActiveThread(t *testing.T) {
	fixture := newServiceFixture(t, "svc_thread_reuse")
	ctx := context.Background()

	first, err := fixture.threads.CreateOrGet(ctx, "demo-school", studentPayload())
	require.NoError(t, err)
	require.NotEmpty(t, first.ThreadID)
	require.True(t, first.IsActive)

	second, err := fixture.threads.CreateOrGet(ctx, "demo-school", dto.UserPayload{
		UserID:   "student-2",
		Role:     "senior",
		SchoolID: "demo-school",
	})
	require.NoError(t, err)
	require.Equal(t, first.ThreadID, second.ThreadID)

	other, err := fixture.threads.CreateOrGet(ctx, "other-school", dto.UserPayload{
		UserID:   "student-3",
		Role:     "student",
		SchoolID: "other-school",
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ThreadID, other.ThreadID)
}

func TestAugmentUnknownThread(t *testing.T) {
	fixture := newServiceFixture(t, "svc_thread_missing")

	_, err := fixture.threads.Augment(context.Background(), "no-such-thread")
	require.ErrorIs(t, err, ErrThreadNotFound)
}

func TestAugmentIsIdempotent(t *testing.T) {
	fixture := newServiceFixture(t, "svc_thread_idempotent")
	ctx := context.Background()

	created, err := fixture.threads.CreateOrGet(ctx, "demo-school", studentPayload())
	require.NoError(t, err)

	require.NoError(t, fixture.messages.Create(ctx, &models.ChatMessage{
		MessageID:      uuid.NewString(),
		ThreadID:       created.ThreadID,
		SenderID:       "student-1",
		SenderRole:     models.SenderRoleStudent,
		Content:        "hello",
		MessageType:    models.MessageTypeQuestion,
		VerifiedStatus: models.VerifiedStatusUnverified,
		CreatedAt:      time.Now().UTC(),
	}))

	first, err := fixture.threads.Augment(ctx, created.ThreadID)
	require.NoError(t, err)
	second, err := fixture.threads.Augment(ctx, created.ThreadID)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestAugmentProjectionsNeverNil(t *testing.T) {
	fixture := newServiceFixture(t, "svc_thread_empty")

	created, err := fixture.threads.CreateOrGet(context.Background(), "demo-school", studentPayload())
	require.NoError(t, err)

	require.NotNil(t, created.Messages)
	require.NotNil(t, created.Users)
	require.NotNil(t, created.OfficialRules)
	require.NotNil(t, created.Verifications)
	require.NotNil(t, created.ModerationFlags)
	require.Empty(t, created.Messages)
}

func TestAugmentReconcilesContentFromTransport(t *testing.T) {
	fixture := newServiceFixture(t, "svc_thread_reconcile")
	ctx := context.Background()

	created, err := fixture.threads.CreateOrGet(ctx, "demo-school", studentPayload())
	require.NoError(t, err)

	delivery, err := fixture.sender.Send(ctx, transport.SendOptions{
		ThreadID: created.ThreadID,
		Content:  "delivered but not stored locally",
	})
	require.NoError(t, err)

	// Local metadata row without content, as left by a partial write.
	require.NoError(t, fixture.messages.Create(ctx, &models.ChatMessage{
		MessageID:      delivery.MessageID,
		ThreadID:       created.ThreadID,
		SenderID:       "student-1",
		SenderRole:     models.SenderRoleStudent,
		MessageType:    models.MessageTypeQuestion,
		VerifiedStatus: models.VerifiedStatusUnverified,
		CreatedAt:      delivery.DeliveredAt,
	}))

	// A second hollow row the transport knows nothing about.
	orphanID := uuid.NewString()
	require.NoError(t, fixture.messages.Create(ctx, &models.ChatMessage{
		MessageID:      orphanID,
		ThreadID:       created.ThreadID,
		MessageType:    models.MessageTypeQuestion,
		SenderRole:     models.SenderRoleStudent,
		VerifiedStatus: models.VerifiedStatusUnverified,
		CreatedAt:      delivery.DeliveredAt.Add(time.Second),
	}))

	augmented, err := fixture.threads.Augment(ctx, created.ThreadID)
	require.NoError(t, err)
	require.Len(t, augmented.Messages, 2)

	byID := make(map[string]models.ChatMessage, 2)
	for _, message := range augmented.Messages {
		byID[message.MessageID] = message
	}

	require.Equal(t, "delivered but not stored locally", byID[delivery.MessageID].Content)
	require.Empty(t, byID[orphanID].Content)
	require.Equal(t, "unknown", byID[orphanID].SenderID)
}
