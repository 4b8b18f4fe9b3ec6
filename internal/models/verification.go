package models

import (
	"time"

	"gorm.io/datatypes"
)

// VerificationOutcome discriminates the two shapes an AIVerification record
// can take. A record is either the product of a successful oracle call or an
// explicit unverified fallback; never both.
type VerificationOutcome string

const (
	OutcomeSuccess    VerificationOutcome = "success"
	OutcomeUnverified VerificationOutcome = "unverified"
)

// VerificationResult is the verdict of a successful verification.
type VerificationResult string

const (
	ResultConfirmed        VerificationResult = "confirmed"
	ResultPartiallyCorrect VerificationResult = "partially_correct"
	ResultIncorrect        VerificationResult = "incorrect"
)

// AIVerification is an append-only verification record keyed by message. The
// Outcome field is the union discriminant: success records carry Result,
// Explanation, and OfficialSourceIDs; unverified records carry FailureReason
// and RequiresHumanReview.
type AIVerification struct {
	VerificationID      string                         `gorm:"primaryKey;size:64" json:"verificationId"`
	MessageID           string                         `gorm:"size:64;index;not null" json:"messageId"`
	Outcome             VerificationOutcome            `gorm:"size:16;not null" json:"outcome"`
	Result              VerificationResult             `gorm:"size:32;index" json:"verificationResult,omitempty"`
	Explanation         string                         `gorm:"type:text" json:"explanation,omitempty"`
	OfficialSourceIDs   datatypes.JSONSlice[string]    `gorm:"type:json" json:"officialSourceIds,omitempty"`
	FailureReason       string                         `gorm:"type:text" json:"failureReason,omitempty"`
	RequiresHumanReview bool                           `gorm:"not null;default:false" json:"requiresHumanReview"`
	CreatedAt           time.Time                      `json:"createdAt"`
}

// Successful reports whether the record carries an applied verdict.
func (v AIVerification) Successful() bool {
	return v.Outcome == OutcomeSuccess
}

// VerifiedStatusFor maps a successful verdict onto the message status it
// implies. The mapping is total over the three results; anything else keeps
// the message unverified.
func (v AIVerification) VerifiedStatusFor() VerifiedStatus {
	if !v.Successful() {
		return VerifiedStatusUnverified
	}
	switch v.Result {
	case ResultConfirmed:
		return VerifiedStatusVerified
	case ResultPartiallyCorrect:
		return VerifiedStatusPartial
	case ResultIncorrect:
		return VerifiedStatusConflict
	default:
		return VerifiedStatusUnverified
	}
}

// NewSuccessfulVerification builds the success variant of the union.
func NewSuccessfulVerification(messageID string, result VerificationResult, explanation string, sourceIDs []string) AIVerification {
	return AIVerification{
		MessageID:         messageID,
		Outcome:           OutcomeSuccess,
		Result:            result,
		Explanation:       explanation,
		OfficialSourceIDs: datatypes.NewJSONSlice(sourceIDs),
		CreatedAt:         time.Now().UTC(),
	}
}

// NewUnverifiedVerification builds the fallback variant recorded when the
// oracle is unavailable or returned an unusable payload.
func NewUnverifiedVerification(messageID, failureReason string) AIVerification {
	return AIVerification{
		MessageID:           messageID,
		Outcome:             OutcomeUnverified,
		FailureReason:       failureReason,
		RequiresHumanReview: true,
		CreatedAt:           time.Now().UTC(),
	}
}
