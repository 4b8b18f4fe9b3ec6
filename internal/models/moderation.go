package models

import (
	"time"

	"gorm.io/datatypes"
)

// ModerationSeverity is the risk tier assigned to a message.
type ModerationSeverity string

const (
	SeverityLow    ModerationSeverity = "low"
	SeverityMedium ModerationSeverity = "medium"
	SeverityHigh   ModerationSeverity = "high"
)

// ModerationAction is the remediation decided for a flag. It is a pure
// function of severity: high posts a warning, medium queues review, low none.
type ModerationAction string

const (
	ActionNone           ModerationAction = "none"
	ActionWarningPosted  ModerationAction = "warning_posted"
	ActionReviewRequired ModerationAction = "review_required"
)

// ModerationFlag is an append-only audit record capturing one risk
// assessment of one message. Metadata optionally carries the safety
// classifier's category severities and blocked determination.
type ModerationFlag struct {
	FlagID      string             `gorm:"primaryKey;size:64" json:"flagId"`
	MessageID   string             `gorm:"size:64;index;not null" json:"messageId"`
	Severity    ModerationSeverity `gorm:"size:16;index;not null" json:"severity"`
	Reason      string             `gorm:"type:text" json:"reason"`
	ActionTaken ModerationAction   `gorm:"size:32;not null" json:"actionTaken"`
	Metadata    datatypes.JSONMap  `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// ActionForSeverity maps a severity tier onto its remediation.
func ActionForSeverity(severity ModerationSeverity) ModerationAction {
	switch severity {
	case SeverityHigh:
		return ActionWarningPosted
	case SeverityMedium:
		return ActionReviewRequired
	default:
		return ActionNone
	}
}
