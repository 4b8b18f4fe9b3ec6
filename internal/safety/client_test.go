package safety

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClassifier(t *testing.T, severities map[string]int) Classifier {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/contentsafety/text:analyze", r.URL.Path)
		require.Equal(t, apiVersion, r.URL.Query().Get("api-version"))
		require.Equal(t, "key", r.Header.Get("Ocp-Apim-Subscription-Key"))

		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "FourSeverityLevels", req.OutputType)

		analysis := make([]map[string]interface{}, 0, len(severities))
		for category, severity := range severities {
			analysis = append(analysis, map[string]interface{}{
				"category": category,
				"severity": severity,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"categoriesAnalysis": analysis})
	}))
	t.Cleanup(server.Close)

	return NewClassifier(Config{Endpoint: server.URL, APIKey: "key"}, zerolog.Nop())
}

func TestAnalyzeBlocksAtThreshold(t *testing.T) {
	classifier := newTestClassifier(t, map[string]int{"Violence": 3, "Hate": 0})

	result, err := classifier.Analyze(context.Background(), "some text")
	require.NoError(t, err)
	require.True(t, result.Blocked)
	require.Equal(t, 3, result.Categories["Violence"])
	require.Equal(t, 0, result.Categories["Hate"])
}

func TestAnalyzeAllowsBelowThreshold(t *testing.T) {
	classifier := newTestClassifier(t, map[string]int{"Violence": 2, "Hate": 1, "SelfHarm": 0, "Sexual": 0})

	result, err := classifier.Analyze(context.Background(), "some text")
	require.NoError(t, err)
	require.False(t, result.Blocked)
	require.Len(t, result.Categories, 4)
}

func TestAnalyzeMisconfigured(t *testing.T) {
	classifier := NewClassifier(Config{}, zerolog.Nop())

	_, err := classifier.Analyze(context.Background(), "text")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnalyzeUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	classifier := NewClassifier(Config{Endpoint: server.URL, APIKey: "key"}, zerolog.Nop())

	_, err := classifier.Analyze(context.Background(), "text")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotConfigured)
}

func TestDisabledAlwaysReportsNotConfigured(t *testing.T) {
	_, err := Disabled{}.Analyze(context.Background(), "anything")
	require.ErrorIs(t, err, ErrNotConfigured)
}
