package ai

import "context"

// Rule is an official rule entry as presented to the verification oracle.
type Rule struct {
	ID      string
	Title   string
	Content string
}

// VerificationInput carries the message under verification and the rule set
// it is judged against.
type VerificationInput struct {
	MessageID string
	Content   string
	Rules     []Rule
}

// Verdict is the oracle's outcome. It is a closed union over two shapes:
// a successful verdict (Result, Explanation, SourceIDs) or an unverified
// fallback (FailureReason). Oracle implementations never return an error;
// internal failures surface as the unverified shape.
type Verdict struct {
	Successful    bool
	Result        string
	Explanation   string
	SourceIDs     []string
	FailureReason string
}

// Valid verification results.
const (
	ResultConfirmed        = "confirmed"
	ResultPartiallyCorrect = "partially_correct"
	ResultIncorrect        = "incorrect"
)

// Verifier judges whether a student message is consistent with the official
// rule set. Verification availability must never be a single point of
// failure for the chat, so Verify has no error return.
type Verifier interface {
	Verify(ctx context.Context, input VerificationInput) Verdict
}

func validResult(result string) bool {
	switch result {
	case ResultConfirmed, ResultPartiallyCorrect, ResultIncorrect:
		return true
	default:
		return false
	}
}
