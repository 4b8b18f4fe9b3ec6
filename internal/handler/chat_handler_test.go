package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/models"
	"github.com/noah-isme/schoolchat-api/internal/repository"
	"github.com/noah-isme/schoolchat-api/internal/safety"
	"github.com/noah-isme/schoolchat-api/internal/service"
	"github.com/noah-isme/schoolchat-api/internal/transport"
	"github.com/noah-isme/schoolchat-api/internal/utils"
)

type chatStubClassifier struct {
	result safety.Result
	err    error
}

func (s chatStubClassifier) Analyze(context.Context, string) (safety.Result, error) {
	return s.result, s.err
}

// newChatApp wires the real send stack behind the chat routes so taxonomy
// tests exercise the same error chain production requests travel.
func newChatApp(t *testing.T, name string, classifier safety.Classifier) *fiber.App {
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

	threads := service.NewThreadService(
		repository.NewThreadRepository(db),
		messageRepo,
		userRepo,
		repository.NewRuleRepository(db),
		repository.NewVerificationRepository(db),
		moderationRepo,
		sender,
		log,
	)
	events := service.NewEventService(nil, "", nil, log)
	validate := validator.New(validator.WithRequiredStructEnabled())
	messages := service.NewMessageService(
		threads, events, messageRepo, userRepo, moderationRepo,
		classifier, sender, validate, log,
	)

	app := fiber.New()
	NewChatHandler(threads, messages, nil, nil, events, validate, log).Register(app.Group("/api/v1/chat"))
	return app
}

func chatSend(t *testing.T, app *fiber.App, content string) (*http.Response, utils.APIResponse) {
	t.Helper()

	payload, err := json.Marshal(dto.SendMessageRequest{
		SchoolID: "demo-school",
		User: dto.UserPayload{
			UserID:   "student-1",
			Role:     "student",
			SchoolID: "demo-school",
		},
		Content: content,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/send", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var body utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestChatSendDeliversMessage(t *testing.T) {
	app := newChatApp(t, "hnd_chat_ok", chatStubClassifier{})

	resp, body := chatSend(t, app, "when does the library open?")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, body.Success)
}

func TestChatSendMisconfiguredClassifierReturns503(t *testing.T) {
	app := newChatApp(t, "hnd_chat_noclassifier", safety.Disabled{})

	resp, body := chatSend(t, app, "when does the library open?")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.False(t, body.Success)
	require.Equal(t, utils.ErrKindMisconfigured, body.Kind)
}

func TestChatSendClassifierOutageReturns502(t *testing.T) {
	app := newChatApp(t, "hnd_chat_outage", chatStubClassifier{err: errors.New("connection refused")})

	resp, body := chatSend(t, app, "when does the library open?")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.False(t, body.Success)
	require.Equal(t, utils.ErrKindDependency, body.Kind)
}
