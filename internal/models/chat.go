package models

import "time"

// UserRole identifies how a user participates in the platform.
type UserRole string

const (
	UserRoleStudent   UserRole = "student"
	UserRoleSenior    UserRole = "senior"
	UserRoleModerator UserRole = "moderator"
)

// SenderRole is the role a message was authored under. AI-authored
// messages carry the dedicated "ai" role; moderators never post directly.
type SenderRole string

const (
	SenderRoleStudent SenderRole = "student"
	SenderRoleSenior  SenderRole = "senior"
	SenderRoleAI      SenderRole = "ai"
)

// MessageType classifies the intent of a chat message.
type MessageType string

const (
	MessageTypeQuestion          MessageType = "question"
	MessageTypeStudentAnswer     MessageType = "student_answer"
	MessageTypeAIVerification    MessageType = "ai_verification"
	MessageTypeOfficialReference MessageType = "official_reference"
	MessageTypeSystemWarning     MessageType = "system_warning"
)

// VerifiedStatus is the displayed verification state of a message. It is
// derived metadata: it only ever changes as a side effect of a successful
// verification record being recorded.
type VerifiedStatus string

const (
	VerifiedStatusUnverified VerifiedStatus = "unverified"
	VerifiedStatusVerified   VerifiedStatus = "verified"
	VerifiedStatusPartial    VerifiedStatus = "partially_verified"
	VerifiedStatusConflict   VerifiedStatus = "conflict"
)

// User represents a platform participant. Created on first interaction and
// immutable afterwards except for a transport identity refresh.
type User struct {
	UserID          string    `gorm:"primaryKey;size:64" json:"userId"`
	TransportUserID string    `gorm:"size:128;index" json:"transportUserId"`
	Role            UserRole  `gorm:"size:16;not null" json:"role"`
	SchoolID        string    `gorm:"size:64;index;not null" json:"schoolId"`
	Language        string    `gorm:"size:8;default:en" json:"language"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"-"`
}

// ChatThread is a school-scoped conversation container. At most one active
// thread exists per school; it is created lazily on first chat bootstrap.
type ChatThread struct {
	ThreadID  string    `gorm:"primaryKey;size:64" json:"threadId"`
	SchoolID  string    `gorm:"size:64;index;not null" json:"schoolId"`
	CreatedBy string    `gorm:"size:64" json:"createdBy"`
	IsActive  bool      `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatMessage is the metadata record for a delivered message. Content and
// identity fields are immutable once created; only VerifiedStatus may be
// updated in place, and only through a single-field update.
type ChatMessage struct {
	MessageID        string         `gorm:"primaryKey;size:64" json:"messageId"`
	ThreadID         string         `gorm:"size:64;index;not null" json:"threadId"`
	SenderID         string         `gorm:"size:64;index" json:"senderId"`
	SenderRole       SenderRole     `gorm:"size:16;not null" json:"senderRole"`
	Content          string         `gorm:"type:text" json:"content"`
	MessageType      MessageType    `gorm:"size:32;not null" json:"messageType"`
	VerifiedStatus   VerifiedStatus `gorm:"size:32;not null;default:unverified" json:"verifiedStatus"`
	RelatedMessageID string         `gorm:"size:64;index" json:"relatedMessageId,omitempty"`
	CreatedAt        time.Time      `gorm:"index" json:"createdAt"`
}
