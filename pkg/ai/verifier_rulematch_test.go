package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuleMatchVerifierConfirmsOnTitleMatch(t *testing.T) {
	verdict := RuleMatchVerifier{}.Verify(context.Background(), VerificationInput{
		MessageID: "msg-1",
		Content:   "You have to do the Attendance check before class",
		Rules: []Rule{
			{ID: "behavior-002", Title: "Respectful Conduct"},
			{ID: "attendance-001", Title: "Attendance Check-in"},
		},
	})

	require.True(t, verdict.Successful)
	require.Equal(t, ResultConfirmed, verdict.Result)
	require.Equal(t, []string{"attendance-001"}, verdict.SourceIDs)
	require.NotEmpty(t, verdict.Explanation)
	require.Empty(t, verdict.FailureReason)
}

func TestRuleMatchVerifierFallsBackToPartiallyCorrect(t *testing.T) {
	verdict := RuleMatchVerifier{}.Verify(context.Background(), VerificationInput{
		MessageID: "msg-2",
		Content:   "Can I leave early on Fridays?",
		Rules: []Rule{
			{ID: "attendance-001", Title: "Attendance Check-in"},
			{ID: "exams-003", Title: "Exam Materials"},
		},
	})

	require.True(t, verdict.Successful)
	require.Equal(t, ResultPartiallyCorrect, verdict.Result)
	require.Equal(t, []string{"attendance-001", "exams-003"}, verdict.SourceIDs)
}

func TestRuleMatchVerifierSkipsEmptyTitles(t *testing.T) {
	verdict := RuleMatchVerifier{}.Verify(context.Background(), VerificationInput{
		Content: "anything at all",
		Rules:   []Rule{{ID: "blank-001", Title: "   "}},
	})

	require.True(t, verdict.Successful)
	require.Equal(t, ResultPartiallyCorrect, verdict.Result)
}
