package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/observability"
)

const watcherSendBufferSize = 32

// Thread event types fanned out to watchers.
const (
	EventMessageCreated       = "message_created"
	EventModerationFlagged    = "moderation_flagged"
	EventVerificationRecorded = "verification_recorded"
)

// EventService broadcasts thread mutations to websocket watchers (moderator
// consoles) and fans them out across nodes via Redis pub/sub and NATS.
// Publication is best-effort: it never fails the mutating operation.
type EventService interface {
	Publish(ctx context.Context, event dto.ThreadEvent)
	Watch(conn *websocket.Conn, threadID string)
	Start(ctx context.Context)
}

type eventService struct {
	redis       *redis.Client
	redisChan   string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	hub         *watchHub
	nodeID      string
}

type watchHub struct {
	mu      sync.RWMutex
	threads map[string]map[*watcher]struct{}
	log     zerolog.Logger
}

type watcher struct {
	conn   *websocket.Conn
	send   chan dto.ThreadEvent
	closed chan struct{}
	once   sync.Once
	hub    *watchHub
	thread string
}

type nodeEvent struct {
	Source string          `json:"source"`
	Event  dto.ThreadEvent `json:"event"`
}

// NewEventService constructs the event fan-out service. Redis and NATS
// connections are optional; with neither, events stay node-local.
func NewEventService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) EventService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &eventService{
		redis:       redisClient,
		redisChan:   channel,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "event_service").Logger(),
		hub: &watchHub{
			threads: make(map[string]map[*watcher]struct{}),
			log:     logger.With().Str("component", "watch_hub").Logger(),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *eventService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChan != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *eventService) Publish(ctx context.Context, event dto.ThreadEvent) {
	if event.At == "" {
		event.At = time.Now().UTC().Format(time.RFC3339Nano)
	}

	s.hub.broadcast(event)

	payload, err := json.Marshal(nodeEvent{Source: s.nodeID, Event: event})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal thread event")
		return
	}

	if s.redis != nil && s.redisChan != "" {
		if err := s.redis.Publish(ctx, s.redisChan, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish thread event to redis")
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish thread event to nats")
		}
	}
}

// Watch serves one websocket watcher until the peer disconnects.
func (s *eventService) Watch(conn *websocket.Conn, threadID string) {
	client := &watcher{
		conn:   conn,
		send:   make(chan dto.ThreadEvent, watcherSendBufferSize),
		closed: make(chan struct{}),
		hub:    s.hub,
		thread: threadID,
	}

	s.hub.register(client)
	observability.WatchConnections().Inc()

	go client.writer()
	client.reader()
}

func (s *eventService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChan)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("event redis subscription closed")
			return
		}
		s.handleRemote([]byte(msg.Payload))
	}
}

func (s *eventService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "schoolchat-events", func(msg *nats.Msg) {
		s.handleRemote(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats event subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain nats event subscription")
		}
	}()
}

func (s *eventService) handleRemote(data []byte) {
	var event nodeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid thread event payload")
		return
	}
	if event.Source == s.nodeID {
		return
	}
	s.hub.broadcast(event.Event)
}

func (h *watchHub) register(client *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.threads[client.thread]; !exists {
		h.threads[client.thread] = make(map[*watcher]struct{})
	}
	h.threads[client.thread][client] = struct{}{}
	h.log.Debug().Str("thread_id", client.thread).Msg("watcher connected")
}

func (h *watchHub) unregister(client *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.threads[client.thread]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.threads, client.thread)
		}
	}
	h.log.Debug().Str("thread_id", client.thread).Msg("watcher disconnected")
}

func (h *watchHub) broadcast(event dto.ThreadEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.threads[event.ThreadID] {
		select {
		case client.send <- event:
		default:
			h.log.Warn().Str("thread_id", event.ThreadID).Msg("dropping thread event for slow watcher")
		}
	}
}

// reader drains the connection so close frames are processed; watchers are
// read-only consumers.
func (c *watcher) reader() {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *watcher) writer() {
	defer c.close()
	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *watcher) close() {
	c.once.Do(func() {
		close(c.closed)
		c.hub.unregister(c)
		_ = c.conn.Close()
	})
}
