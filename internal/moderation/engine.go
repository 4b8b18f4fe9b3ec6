// Package moderation implements the local heuristic risk classifier. It is
// advisory and audit-oriented; hard blocking before delivery is the safety
// classifier's job.
package moderation

import (
	"strings"

	"github.com/noah-isme/schoolchat-api/internal/models"
)

var (
	highRiskKeywords   = []string{"threat", "violence", "bully", "harass"}
	mediumRiskKeywords = []string{"cheat", "plagiarize", "skip class"}
)

// Assessment is the engine's verdict for a single message.
type Assessment struct {
	Severity    models.ModerationSeverity
	Reason      string
	ActionTaken models.ModerationAction
}

// Evaluate classifies message content by case-insensitive keyword match.
// High-risk matches win over medium-risk; no match is a routine low. The
// function is pure: identical content always yields the identical result,
// and absent content is treated as low severity.
func Evaluate(content string) Assessment {
	lowered := strings.ToLower(content)

	severity := models.SeverityLow
	reason := "Routine scan"

	if containsAny(lowered, highRiskKeywords) {
		severity = models.SeverityHigh
		reason = "High-risk keyword detected"
	} else if containsAny(lowered, mediumRiskKeywords) {
		severity = models.SeverityMedium
		reason = "Possible policy violation"
	}

	return Assessment{
		Severity:    severity,
		Reason:      reason,
		ActionTaken: models.ActionForSeverity(severity),
	}
}

func containsAny(content string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}
