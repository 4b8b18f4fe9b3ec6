package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSystemPromptSelectsLanguage(t *testing.T) {
	cases := map[Language]string{
		LanguageEN: "institutional student support assistant",
		LanguageFR: "assistant institutionnel",
		LanguageES: "asistente institucional",
	}
	for language, marker := range cases {
		built := BuildSystemPrompt(language, ModeRules)
		require.Contains(t, strings.ToLower(built), marker, "language %s", language)
	}

	require.NotEmpty(t, BuildSystemPrompt(LanguageAR, ModeRules))
}

func TestBuildSystemPromptUnknownLanguageFallsBackToEnglish(t *testing.T) {
	require.Equal(t, BuildSystemPrompt(LanguageEN, ModeRules), BuildSystemPrompt(Language("de"), ModeRules))
}

func TestBuildSystemPromptModeSuffixes(t *testing.T) {
	rules := BuildSystemPrompt(LanguageEN, ModeRules)
	rights := BuildSystemPrompt(LanguageEN, ModeRights)
	guidance := BuildSystemPrompt(LanguageEN, ModeGuidance)

	require.True(t, strings.HasPrefix(rights, rules))
	require.Contains(t, rights, "Clarify student rights")

	require.True(t, strings.HasPrefix(guidance, rules))
	require.Contains(t, guidance, "Maximum 150 words")

	require.NotContains(t, rules, "FOCUS:")
}

func TestBuildSystemPromptUnknownModeAddsNothing(t *testing.T) {
	require.Equal(t, BuildSystemPrompt(LanguageEN, ModeRules), BuildSystemPrompt(LanguageEN, Mode("poetry")))
}
