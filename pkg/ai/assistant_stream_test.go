package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newStreamUpstream(t *testing.T, handler http.HandlerFunc) *AssistantClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewAssistantClient(AssistantConfig{
		Endpoint:   server.URL,
		APIKey:     "key",
		Deployment: "gpt-4o-mini",
		APIVersion: "2024-08-01-preview",
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return client
}

func sseFrame(token string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", token)
}

func TestStreamChatRelaysTokens(t *testing.T) {
	client := newStreamUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/openai/deployments/gpt-4o-mini/chat/completions", r.URL.Path)
		require.Equal(t, "2024-08-01-preview", r.URL.Query().Get("api-version"))
		require.Equal(t, "key", r.Header.Get("api-key"))

		var payload completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.True(t, payload.Stream)
		require.NotEmpty(t, payload.Messages)
		require.Equal(t, "system", payload.Messages[0].Role)

		flusher := w.(http.Flusher)
		fmt.Fprint(w, sseFrame("Hel"))
		flusher.Flush()
		fmt.Fprint(w, sseFrame("lo"))
		flusher.Flush()
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := client.StreamChat(context.Background(), "You answer school questions.", []ChatTurn{
		{Role: "user", Content: "when does the library open?"},
	})
	require.NoError(t, err)
	defer stream.Close()

	var tokens []string
	for {
		token, ok := stream.Next()
		if !ok {
			break
		}
		tokens = append(tokens, token)
	}

	require.Equal(t, []string{"Hel", "lo"}, tokens)
	require.NoError(t, stream.Err())
}

func TestStreamChatUpstreamErrorShortCircuits(t *testing.T) {
	client := newStreamUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	stream, err := client.StreamChat(context.Background(), "prompt", []ChatTurn{
		{Role: "user", Content: "hi"},
	})
	require.Nil(t, stream)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	require.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
}

func TestStreamChatCancelAbortsUpstreamRead(t *testing.T) {
	client := newStreamUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, sseFrame("first"))
		flusher.Flush()
		// Hold the stream open until the client gives up.
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.StreamChat(ctx, "prompt", []ChatTurn{
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	defer stream.Close()

	token, ok := stream.Next()
	require.True(t, ok)
	require.Equal(t, "first", token)

	cancel()

	_, ok = stream.Next()
	require.False(t, ok)
	require.True(t, errors.Is(stream.Err(), context.Canceled))
}
