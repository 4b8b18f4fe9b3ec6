package dto

import "github.com/noah-isme/schoolchat-api/internal/models"

// ModerationFlagDetail joins a moderation flag with the message it targets
// for the audit console.
type ModerationFlagDetail struct {
	models.ModerationFlag
	ThreadID       string `json:"threadId"`
	MessageContent string `json:"messageContent"`
	SenderID       string `json:"senderId"`
}

// VerificationDetail joins a verification record with its target message.
type VerificationDetail struct {
	models.AIVerification
	ThreadID       string                `json:"threadId"`
	MessageContent string                `json:"messageContent"`
	SenderID       string                `json:"senderId"`
	VerifiedStatus models.VerifiedStatus `json:"verifiedStatus"`
}

// ThreadEvent is fanned out to websocket watchers and cross-node consumers
// whenever a thread mutates.
type ThreadEvent struct {
	Type      string `json:"type"`
	ThreadID  string `json:"threadId"`
	MessageID string `json:"messageId,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	At        string `json:"at"`
}
