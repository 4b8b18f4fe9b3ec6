package ai

import (
	"context"
	"fmt"
	"strings"
)

// RuleMatchVerifier is the deterministic oracle used when no LLM is
// configured. It matches the leading word of each rule title against the
// message content. It always succeeds, so it doubles as the local-dev path.
type RuleMatchVerifier struct{}

// Verify performs the deterministic title match.
func (RuleMatchVerifier) Verify(_ context.Context, input VerificationInput) Verdict {
	content := strings.ToLower(input.Content)

	for _, rule := range input.Rules {
		words := strings.Fields(strings.ToLower(rule.Title))
		if len(words) == 0 {
			continue
		}
		if strings.Contains(content, words[0]) {
			return Verdict{
				Successful:  true,
				Result:      ResultConfirmed,
				Explanation: fmt.Sprintf("Matches guidance from %s.", rule.Title),
				SourceIDs:   []string{rule.ID},
			}
		}
	}

	sourceIDs := make([]string, 0, len(input.Rules))
	for _, rule := range input.Rules {
		sourceIDs = append(sourceIDs, rule.ID)
	}

	return Verdict{
		Successful:  true,
		Result:      ResultPartiallyCorrect,
		Explanation: "Could not find a direct match; treat as partially verified until a moderator reviews.",
		SourceIDs:   sourceIDs,
	}
}
