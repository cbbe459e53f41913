package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"healthtrack-realtime/internal/pkg/logger"
	"healthtrack-realtime/internal/pkg/serverutils"
	"healthtrack-realtime/internal/realtime"
	internalWS "healthtrack-realtime/internal/websocket"
	"healthtrack-realtime/pkg/events"
	"healthtrack-realtime/pkg/protocol"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "relay-test-secret"

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

type relayFixture struct {
	app     *fiber.App
	hub     *internalWS.Hub
	pub     *fakePublisher
	addr    string
	stopHub context.CancelFunc
}

func startRelay(t *testing.T) *relayFixture {
	t.Helper()

	hub := internalWS.NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	pub := &fakePublisher{}
	h := NewNotificationHandler(pub, hub, testSecret, logger.NewNopLogger())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(serverutils.ErrorHandlerMiddleware())
	h.RegisterRoutes(app.Group("/api"), true)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)

	t.Cleanup(func() {
		cancel()
		app.ShutdownWithTimeout(time.Second)
	})
	return &relayFixture{app: app, hub: hub, pub: pub, addr: ln.Addr().String(), stopHub: cancel}
}

func (f *relayFixture) dial(t *testing.T) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial("ws://"+f.addr+"/api/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *gws.Conn) protocol.InboundEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	evt, err := protocol.DecodeEvent(data)
	require.NoError(t, err)
	return evt
}

func authenticate(t *testing.T, conn *gws.Conn, userID uuid.UUID) {
	t.Helper()
	token, err := serverutils.IssueToken(testSecret, userID, time.Minute)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(protocol.AuthFrame(token)))
	assert.Equal(t, protocol.EventAuthOK, readEvent(t, conn).Type)
}

func TestServeWs_AuthThenDelivery(t *testing.T) {
	f := startRelay(t)
	userID := uuid.New()
	conn := f.dial(t)

	authenticate(t, conn, userID)
	require.Eventually(t, func() bool { return f.hub.ConnectionCount(userID) == 1 }, 2*time.Second, 10*time.Millisecond)

	frame, err := protocol.Encode(protocol.EventMessageDelivered, protocol.MessageDeliveredPayload{MessageID: "m1", ConversationID: "c1"})
	require.NoError(t, err)
	f.hub.Send(userID, frame)

	evt := readEvent(t, conn)
	assert.Equal(t, protocol.EventMessageDelivered, evt.Type)

	require.NoError(t, conn.WriteJSON(protocol.PingFrame()))
	assert.Equal(t, protocol.EventPong, readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "typing"}))
	unknown := readEvent(t, conn)
	assert.Equal(t, protocol.EventError, unknown.Type)
	assert.Equal(t, "unknown frame type", unknown.ErrorReason())

	require.NoError(t, conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, "bye")))
	require.Eventually(t, func() bool { return f.hub.ConnectionCount(userID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWs_InvalidTokenRejectedWith1008(t *testing.T) {
	f := startRelay(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(protocol.AuthFrame("not-a-jwt")))

	evt := readEvent(t, conn)
	assert.Equal(t, protocol.EventAuthError, evt.Type)
	assert.Equal(t, "invalid token", evt.ErrorReason())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *gws.CloseError
	require.True(t, errors.As(err, &closeErr), "got %v", err)
	assert.Equal(t, gws.ClosePolicyViolation, closeErr.Code)
}

func TestServeWs_FirstFrameMustBeAuth(t *testing.T) {
	f := startRelay(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(protocol.PingFrame()))

	evt := readEvent(t, conn)
	assert.Equal(t, protocol.EventAuthError, evt.Type)
	assert.Equal(t, "authentication required", evt.ErrorReason())
}

// readUntilClose drains frames and returns the close error the relay ended with.
func readUntilClose(t *testing.T, conn *gws.Conn) *gws.CloseError {
	t.Helper()
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *gws.CloseError
		require.True(t, errors.As(err, &closeErr), "got %v", err)
		return closeErr
	}
}

func TestServeWs_SlowClientClosedWithRetryableCode(t *testing.T) {
	f := startRelay(t)
	userID := uuid.New()
	conn := f.dial(t)

	authenticate(t, conn, userID)
	require.Eventually(t, func() bool { return f.hub.ConnectionCount(userID) == 1 }, 2*time.Second, 10*time.Millisecond)

	frame, err := protocol.Encode(protocol.EventNewMessage, protocol.NewMessagePayload{
		Message: protocol.Message{ID: "m1", ConversationID: "c1", Content: strings.Repeat("x", 32*1024)},
	})
	require.NoError(t, err)

	// stop reading until the hub gives up on the connection
	for i := 0; i < 5000 && f.hub.ConnectionCount(userID) > 0; i++ {
		f.hub.Send(userID, frame)
	}
	require.Eventually(t, func() bool { return f.hub.ConnectionCount(userID) == 0 }, 2*time.Second, 10*time.Millisecond)

	closeErr := readUntilClose(t, conn)
	assert.Equal(t, gws.CloseTryAgainLater, closeErr.Code)
	assert.False(t, realtime.IsNormalClose(closeErr.Code))
}

func TestServeWs_HubShutdownClosesWithServiceRestart(t *testing.T) {
	f := startRelay(t)
	userID := uuid.New()
	conn := f.dial(t)

	authenticate(t, conn, userID)
	require.Eventually(t, func() bool { return f.hub.ConnectionCount(userID) == 1 }, 2*time.Second, 10*time.Millisecond)

	f.stopHub()

	closeErr := readUntilClose(t, conn)
	assert.Equal(t, gws.CloseServiceRestart, closeErr.Code)
	assert.False(t, realtime.IsNormalClose(closeErr.Code))
}

func TestServeWs_PlainHTTPNeedsUpgrade(t *testing.T) {
	f := startRelay(t)

	resp, err := f.app.Test(httptest.NewRequest("GET", "/api/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestDebugTriggerEvent(t *testing.T) {
	f := startRelay(t)

	body := `{"type":"UNREAD_COUNT_CHANGED","payload":{"user_id":"u1"}}`
	req := httptest.NewRequest("POST", "/api/debug/trigger-event", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, events.UnreadCountChanged, f.pub.events[0].EventType())
	assert.Equal(t, "u1", events.String(f.pub.events[0].Payload(), "user_id"))
}

func TestDebugTriggerEvent_Validation(t *testing.T) {
	f := startRelay(t)

	req := httptest.NewRequest("POST", "/api/debug/trigger-event", bytes.NewBufferString(`{"payload":{}}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var envelope serverutils.Response[any]
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.False(t, envelope.Success)
	assert.Empty(t, f.pub.events)
}

func TestDebugTriggerEvent_PublisherFailure(t *testing.T) {
	f := startRelay(t)
	f.pub.err = errors.New("nats down")

	req := httptest.NewRequest("POST", "/api/debug/trigger-event", bytes.NewBufferString(`{"type":"X"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
