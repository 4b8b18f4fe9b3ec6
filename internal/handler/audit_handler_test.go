package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/models"
	"github.com/noah-isme/schoolchat-api/internal/service"
	"github.com/noah-isme/schoolchat-api/internal/utils"
)

type stubAuditService struct {
	severity models.ModerationSeverity
	result   models.VerificationResult
	limit    int
}

func (s *stubAuditService) FlagsBySeverity(_ context.Context, severity models.ModerationSeverity, limit int) ([]dto.ModerationFlagDetail, error) {
	s.severity = severity
	s.limit = limit
	return []dto.ModerationFlagDetail{}, nil
}

func (s *stubAuditService) VerificationsByResult(_ context.Context, result models.VerificationResult, limit int) ([]dto.VerificationDetail, error) {
	s.result = result
	s.limit = limit
	return []dto.VerificationDetail{}, nil
}

var _ service.AuditService = (*stubAuditService)(nil)

type stubThreadService struct {
	thread dto.AugmentedThreadResponse
}

func (s *stubThreadService) CreateOrGet(context.Context, string, dto.UserPayload) (dto.AugmentedThreadResponse, error) {
	return s.thread, nil
}

func (s *stubThreadService) Augment(_ context.Context, threadID string) (dto.AugmentedThreadResponse, error) {
	if threadID != s.thread.ThreadID {
		return dto.AugmentedThreadResponse{}, service.ErrThreadNotFound
	}
	return s.thread, nil
}

var _ service.ThreadService = (*stubThreadService)(nil)

func newAuditApp(t *testing.T) (*fiber.App, *stubAuditService) {
	t.Helper()
	stub := &stubAuditService{}
	threads := &stubThreadService{
		thread: dto.AugmentedThreadResponse{
			ChatThread: models.ChatThread{ThreadID: "thread-1", SchoolID: "demo-school", IsActive: true},
			Messages:   []models.ChatMessage{},
		},
	}
	app := fiber.New()
	NewAuditHandler(stub, threads, zerolog.Nop()).Register(app.Group("/api/v1/audit"))
	return app, stub
}

func auditGet(t *testing.T, app *fiber.App, path string) (*http.Response, utils.APIResponse) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)

	var body utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	return resp, body
}

func TestFlagsDefaultsToHighSeverity(t *testing.T) {
	app, stub := newAuditApp(t)

	resp, body := auditGet(t, app, "/api/v1/audit/flags")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, body.Success)
	require.Equal(t, models.SeverityHigh, stub.severity)
}

func TestFlagsAcceptsSeverityAndLimit(t *testing.T) {
	app, stub := newAuditApp(t)

	resp, _ := auditGet(t, app, "/api/v1/audit/flags?severity=medium&limit=25")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, models.SeverityMedium, stub.severity)
	require.Equal(t, 25, stub.limit)
}

func TestFlagsRejectsUnknownSeverity(t *testing.T) {
	app, _ := newAuditApp(t)

	resp, body := auditGet(t, app, "/api/v1/audit/flags?severity=critical")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, body.Success)
	require.Equal(t, utils.ErrKindValidation, body.Kind)
}

func TestVerificationsResultAliases(t *testing.T) {
	cases := map[string]models.VerificationResult{
		"":                  models.ResultPartiallyCorrect,
		"confirmed":         models.ResultConfirmed,
		"partial":           models.ResultPartiallyCorrect,
		"partially_correct": models.ResultPartiallyCorrect,
		"incorrect":         models.ResultIncorrect,
		"CONFIRMED":         models.ResultConfirmed,
	}

	for alias, want := range cases {
		app, stub := newAuditApp(t)
		path := "/api/v1/audit/verifications"
		if alias != "" {
			path += "?status=" + alias
		}

		resp, _ := auditGet(t, app, path)
		require.Equal(t, http.StatusOK, resp.StatusCode, "alias %q", alias)
		require.Equal(t, want, stub.result, "alias %q", alias)
	}
}

func TestVerificationsRejectsUnknownStatus(t *testing.T) {
	app, _ := newAuditApp(t)

	resp, body := auditGet(t, app, "/api/v1/audit/verifications?status=maybe")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, utils.ErrKindValidation, body.Kind)
}

func TestAuditThreadDetail(t *testing.T) {
	app, _ := newAuditApp(t)

	resp, body := auditGet(t, app, "/api/v1/audit/thread/thread-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	resp, body = auditGet(t, app, "/api/v1/audit/thread/no-such-thread")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, utils.ErrKindNotFound, body.Kind)
}

func TestFlagsRejectsMalformedLimit(t *testing.T) {
	app, _ := newAuditApp(t)

	resp, body := auditGet(t, app, "/api/v1/audit/flags?limit=ten")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, utils.ErrKindValidation, body.Kind)
}
