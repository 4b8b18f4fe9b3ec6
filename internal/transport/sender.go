// Package transport abstracts the chat transport that is the sender of
// record for message bytes. The metadata store keeps a local copy of
// content; the transport's delivery timestamp is authoritative for ordering.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Error is a transport delivery failure carrying the upstream status code.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport error (%d): %s", e.StatusCode, e.Message)
}

// SendOptions describes one outbound message.
type SendOptions struct {
	ThreadID          string
	Content           string
	SenderTransportID string
	SenderDisplayName string
}

// Delivery is the transport's acknowledgement of a sent message.
type Delivery struct {
	MessageID   string
	DeliveredAt time.Time
	Content     string
}

// Envelope is a message as held by the transport.
type Envelope struct {
	MessageID         string
	Content           string
	SenderTransportID string
	DeliveredAt       time.Time
}

// Sender delivers messages and exposes best-effort reads. TryGetMessage has
// try semantics: absence is a normal outcome, never an error, so aggregation
// can treat transport lookups as optional.
type Sender interface {
	Send(ctx context.Context, opts SendOptions) (Delivery, error)
	TryGetMessage(ctx context.Context, threadID, messageID string) (Envelope, bool)
}

// Config holds the REST transport connection settings.
type Config struct {
	BaseURL    string
	AccessKey  string
	APIVersion string
	Timeout    time.Duration
}

type restSender struct {
	baseURL    string
	accessKey  string
	apiVersion string
	client     *http.Client
	logger     zerolog.Logger
}

// NewRESTSender builds a transport client against an HTTP chat API.
func NewRESTSender(cfg Config, logger zerolog.Logger) Sender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2024-10-15"
	}

	return &restSender{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		accessKey:  cfg.AccessKey,
		apiVersion: apiVersion,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "transport_sender").Logger(),
	}
}

type sendRequest struct {
	Content           string `json:"content"`
	Type              string `json:"type"`
	SenderDisplayName string `json:"senderDisplayName,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func (s *restSender) Send(ctx context.Context, opts SendOptions) (Delivery, error) {
	content := strings.TrimSpace(opts.Content)
	payload, err := json.Marshal(sendRequest{Content: content, Type: "text", SenderDisplayName: opts.SenderDisplayName})
	if err != nil {
		return Delivery{}, &Error{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}

	url := fmt.Sprintf("%s/chat/threads/%s/messages?api-version=%s", s.baseURL, opts.ThreadID, s.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Delivery{}, &Error{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.accessKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return Delivery{}, &Error{StatusCode: http.StatusServiceUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Delivery{}, &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("transport send failed: %s", resp.Status)}
	}

	var decoded sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil || decoded.ID == "" {
		return Delivery{}, &Error{StatusCode: http.StatusBadGateway, Message: "transport did not return a message id"}
	}

	return Delivery{
		MessageID:   decoded.ID,
		DeliveredAt: time.Now().UTC(),
		Content:     content,
	}, nil
}

type getResponse struct {
	ID      string `json:"id"`
	Content struct {
		Message string `json:"message"`
	} `json:"content"`
	SenderCommunicationIdentifier struct {
		CommunicationUserID string `json:"communicationUserId"`
	} `json:"senderCommunicationIdentifier"`
	CreatedOn time.Time `json:"createdOn"`
}

func (s *restSender) TryGetMessage(ctx context.Context, threadID, messageID string) (Envelope, bool) {
	url := fmt.Sprintf("%s/chat/threads/%s/messages/%s?api-version=%s", s.baseURL, threadID, messageID, s.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Envelope{}, false
	}
	req.Header.Set("Authorization", "Bearer "+s.accessKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug().Err(err).Str("message_id", messageID).Msg("transport message lookup failed")
		return Envelope{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Envelope{}, false
	}

	var decoded getResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Envelope{}, false
	}

	return Envelope{
		MessageID:         decoded.ID,
		Content:           decoded.Content.Message,
		SenderTransportID: decoded.SenderCommunicationIdentifier.CommunicationUserID,
		DeliveredAt:       decoded.CreatedOn,
	}, true
}

// Simulator is the in-process transport used when no connection is
// configured. It mints delivery ids and timestamps and retains envelopes so
// content reconciliation behaves like the real transport.
type Simulator struct {
	mu        sync.RWMutex
	envelopes map[string]Envelope
}

// NewSimulator constructs an empty simulated transport.
func NewSimulator() *Simulator {
	return &Simulator{envelopes: make(map[string]Envelope)}
}

func (s *Simulator) Send(_ context.Context, opts SendOptions) (Delivery, error) {
	delivery := Delivery{
		MessageID:   uuid.NewString(),
		DeliveredAt: time.Now().UTC(),
		Content:     strings.TrimSpace(opts.Content),
	}

	s.mu.Lock()
	s.envelopes[delivery.MessageID] = Envelope{
		MessageID:         delivery.MessageID,
		Content:           delivery.Content,
		SenderTransportID: opts.SenderTransportID,
		DeliveredAt:       delivery.DeliveredAt,
	}
	s.mu.Unlock()

	return delivery, nil
}

func (s *Simulator) TryGetMessage(_ context.Context, _ string, messageID string) (Envelope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	envelope, ok := s.envelopes[messageID]
	return envelope, ok
}
