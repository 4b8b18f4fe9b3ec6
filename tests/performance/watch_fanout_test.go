package performance_test

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/noah-isme/schoolchat-api/internal/dto"
	"github.com/noah-isme/schoolchat-api/internal/handler"
	"github.com/noah-isme/schoolchat-api/internal/middleware"
	"github.com/noah-isme/schoolchat-api/internal/service"
)

func TestWatchEventDeliveryP95Under250ms(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())

	events := service.NewEventService(nil, "", nil, zerolog.Nop())
	chatHandler := handler.NewChatHandler(nil, nil, nil, nil, events, validator.New(), zerolog.Nop())
	chatHandler.Register(app.Group("/api/v1/chat"))

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/chat/watch?thread_id=thread-1"
	clients := 200
	durations := make([]time.Duration, 0, clients)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	for i := 0; i < clients; i++ {
		conn, resp, err := dialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("websocket dial failed: %v", err)
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		// Give the hub a moment to register the watcher before publishing.
		time.Sleep(time.Millisecond)

		start := time.Now()
		events.Publish(context.Background(), dto.ThreadEvent{
			Type:     service.EventMessageCreated,
			ThreadID: "thread-1",
		})

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var received dto.ThreadEvent
		if err := conn.ReadJSON(&received); err != nil {
			t.Fatalf("failed to read event for client %d: %v", i, err)
		}
		if received.ThreadID != "thread-1" {
			t.Fatalf("expected event for thread-1, got %q", received.ThreadID)
		}

		durations = append(durations, time.Since(start))
		_ = conn.Close()
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 250*time.Millisecond {
		t.Fatalf("expected watch event P95 <= 250ms, got %s", p95)
	}
}

func percentile(values []time.Duration, pct float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	index := int(math.Ceil(pct*float64(len(values)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index]
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}
