package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	// ErrAssistantNotConfigured indicates required assistant settings are
	// missing. Detected eagerly, before any upstream call, so callers can
	// distinguish misconfiguration from transient dependency failure.
	ErrAssistantNotConfigured = errors.New("assistant upstream is not configured")

	assistantStreams = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolchat",
		Subsystem: "ai",
		Name:      "assistant_streams_total",
		Help:      "Assistant stream attempts by outcome",
	}, []string{"outcome"})
)

// UpstreamError reports a non-OK response from the completion provider
// before any streaming started.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("assistant upstream returned status %d", e.StatusCode)
}

// ChatTurn is one prior turn of the assistant conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantConfig holds the upstream chat-completion connection settings.
// The endpoint must be https, except for loopback hosts where plain http is
// tolerated so local emulators work; Deployment and APIVersion follow the
// deployment-scoped completion URL scheme.
type AssistantConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// AssistantClient relays streamed completions from the upstream provider.
type AssistantClient struct {
	url    string
	apiKey string
	client *http.Client
	logger zerolog.Logger
}

// NewAssistantClient validates the configuration eagerly and builds the
// client. The timeout covers dialing only; streams stay open until the
// upstream closes or the caller cancels.
func NewAssistantClient(cfg AssistantConfig) (*AssistantClient, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.Deployment == "" || cfg.APIVersion == "" {
		return nil, ErrAssistantNotConfigured
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &AssistantClient{
		url: fmt.Sprintf("%sopenai/deployments/%s/chat/completions?api-version=%s",
			endpoint, cfg.Deployment, cfg.APIVersion),
		apiKey: cfg.APIKey,
		client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: timeout},
		},
		logger: cfg.Logger.With().Str("component", "assistant_client").Logger(),
	}, nil
}

func normalizeEndpoint(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid assistant endpoint: %w", err)
	}
	switch {
	case parsed.Scheme == "https":
	case parsed.Scheme == "http" && isLoopbackHost(parsed.Hostname()):
	default:
		return "", fmt.Errorf("assistant endpoint must use https")
	}

	normalized := parsed.String()
	if !strings.HasSuffix(normalized, "/") {
		normalized += "/"
	}
	return normalized, nil
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type completionRequest struct {
	Stream   bool       `json:"stream"`
	Messages []ChatTurn `json:"messages"`
}

// StreamChat opens a streamed completion. A non-OK status or missing body
// short-circuits with an error before any token is produced; otherwise the
// returned TokenStream yields tokens as the upstream emits them. Cancelling
// ctx aborts the upstream read.
func (c *AssistantClient) StreamChat(ctx context.Context, systemPrompt string, turns []ChatTurn) (*TokenStream, error) {
	messages := make([]ChatTurn, 0, len(turns)+1)
	messages = append(messages, ChatTurn{Role: "system", Content: systemPrompt})
	messages = append(messages, turns...)

	payload, err := json.Marshal(completionRequest{Stream: true, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		assistantStreams.WithLabelValues("dial_error").Inc()
		return nil, fmt.Errorf("assistant request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		assistantStreams.WithLabelValues("upstream_error").Inc()
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}
	if resp.Body == nil {
		assistantStreams.WithLabelValues("upstream_error").Inc()
		return nil, &UpstreamError{StatusCode: http.StatusBadGateway}
	}

	assistantStreams.WithLabelValues("opened").Inc()
	return &TokenStream{body: resp.Body, decoder: NewStreamDecoder()}, nil
}

// TokenStream is a lazy, finite, non-restartable sequence of text
// fragments. Tokens are produced as frames decode; nothing is buffered
// beyond the partial frame the decoder retains.
type TokenStream struct {
	body    io.ReadCloser
	decoder *StreamDecoder
	pending []string
	err     error
}

// Next blocks until a token is available. It returns false when the stream
// terminated, either by the [DONE] marker, upstream close, or a read error
// (surfaced via Err).
func (s *TokenStream) Next() (string, bool) {
	for {
		if len(s.pending) > 0 {
			token := s.pending[0]
			s.pending = s.pending[1:]
			return token, true
		}

		if s.decoder.Done() {
			return "", false
		}

		chunk := make([]byte, 4096)
		n, err := s.body.Read(chunk)
		if n > 0 {
			s.pending = s.decoder.Feed(chunk[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
			if len(s.pending) == 0 {
				return "", false
			}
		}
	}
}

// Err reports a read failure that terminated the stream early, if any.
func (s *TokenStream) Err() error {
	return s.err
}

// Close releases the upstream connection.
func (s *TokenStream) Close() error {
	return s.body.Close()
}
