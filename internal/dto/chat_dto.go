package dto

import (
	"github.com/noah-isme/schoolchat-api/internal/models"
)

// UserPayload identifies the acting user on chat operations. Users are
// upserted on first interaction.
type UserPayload struct {
	UserID          string `json:"userId" validate:"required,max=64"`
	TransportUserID string `json:"transportUserId" validate:"omitempty,max=128"`
	Role            string `json:"role" validate:"required,oneof=student senior moderator"`
	SchoolID        string `json:"schoolId" validate:"required,max=64"`
	Language        string `json:"language" validate:"omitempty,max=8"`
}

// Model converts the payload into a persistable user record.
func (p UserPayload) Model() models.User {
	language := p.Language
	if language == "" {
		language = "en"
	}
	return models.User{
		UserID:          p.UserID,
		TransportUserID: p.TransportUserID,
		Role:            models.UserRole(p.Role),
		SchoolID:        p.SchoolID,
		Language:        language,
	}
}

// ThreadCreateRequest bootstraps (or returns) the active thread for a school.
type ThreadCreateRequest struct {
	SchoolID string      `json:"schoolId" validate:"required,max=64"`
	User     UserPayload `json:"user" validate:"required"`
}

// SendMessageRequest posts a message into a thread. When ThreadID is absent
// the active thread for SchoolID is used (created lazily).
type SendMessageRequest struct {
	ThreadID    string      `json:"threadId" validate:"omitempty,max=64"`
	SchoolID    string      `json:"schoolId" validate:"required,max=64"`
	User        UserPayload `json:"user" validate:"required"`
	Content     string      `json:"content" validate:"required,min=1,max=4000"`
	MessageType string      `json:"messageType" validate:"omitempty,oneof=question student_answer official_reference"`
}

// ModerateRequest runs the heuristic moderation engine over one message.
type ModerateRequest struct {
	MessageID string `json:"messageId" validate:"required,max=64"`
}

// VerifyRequest asks the verification oracle to judge one message.
type VerifyRequest struct {
	MessageID string `json:"messageId" validate:"required,max=64"`
}

// AugmentedThreadResponse is the read-side projection of a thread joined
// with its messages, school users, official rules, verification records, and
// moderation flags. It is recomputed on every read, never persisted.
type AugmentedThreadResponse struct {
	models.ChatThread
	Messages        []models.ChatMessage    `json:"messages"`
	Users           []models.User           `json:"users"`
	OfficialRules   []models.OfficialRule   `json:"officialRules"`
	Verifications   []models.AIVerification `json:"verifications"`
	ModerationFlags []models.ModerationFlag `json:"moderationFlags"`
}

// SendMessageResponse is the result of the send path. Blocked sends carry
// the moderation record and the substituted system warning instead of the
// student's message.
type SendMessageResponse struct {
	Blocked       bool                    `json:"blocked,omitempty"`
	Message       *models.ChatMessage     `json:"message,omitempty"`
	Moderation    *models.ModerationFlag  `json:"moderation,omitempty"`
	SystemMessage *models.ChatMessage     `json:"systemMessage,omitempty"`
	Thread        AugmentedThreadResponse `json:"thread"`
}

// ModerateResponse reports the flag recorded by the moderation engine and
// the system warning, when one was posted.
type ModerateResponse struct {
	Moderation    models.ModerationFlag   `json:"moderation"`
	SystemMessage *models.ChatMessage     `json:"systemMessage"`
	Thread        AugmentedThreadResponse `json:"thread"`
}

// VerifyResponse reports the verification record and, on a successful
// verdict, the AI-authored annotation message. When the classifier blocks
// the AI's own words a system warning is substituted and Blocked is set.
type VerifyResponse struct {
	Blocked       bool                    `json:"blocked,omitempty"`
	Verification  models.AIVerification   `json:"verification"`
	AIMessage     *models.ChatMessage     `json:"aiMessage,omitempty"`
	Moderation    *models.ModerationFlag  `json:"moderation,omitempty"`
	SystemMessage *models.ChatMessage     `json:"systemMessage,omitempty"`
	Thread        AugmentedThreadResponse `json:"thread"`
}
