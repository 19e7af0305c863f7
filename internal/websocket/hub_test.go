package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gctidash/internal/dashboard"
	apierrors "gctidash/internal/errors"
	"gctidash/pkg/contracts/events"
)

type countingRecorder struct {
	open atomic.Int64
}

func (r *countingRecorder) WebSocketDelta(_ context.Context, delta int64) {
	r.open.Add(delta)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) (*Hub, *countingRecorder) {
	t.Helper()
	rec := &countingRecorder{}
	hub := NewHub(Options{Version: "test"}, rec, quietLogger())
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub, rec
}

func decode(t *testing.T, frame []byte) events.WebSocketMessage {
	t.Helper()
	var msg events.WebSocketMessage
	require.NoError(t, json.Unmarshal(frame, &msg))
	return msg
}

func waitFrames(t *testing.T, conn *MockConnection, n int) [][]byte {
	t.Helper()
	require.Eventually(t, func() bool { return len(conn.Written()) >= n }, time.Second, 5*time.Millisecond)
	return conn.Written()
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, defaultPongWait, o.PongWait)
	assert.Less(t, o.PingPeriod, o.PongWait)

	o = Options{PingPeriod: time.Minute, PongWait: 30 * time.Second}.withDefaults()
	assert.Equal(t, 27*time.Second, o.PingPeriod)
}

func TestHub_GreetsAndRoutesBySession(t *testing.T) {
	hub, rec := startHub(t)

	connA, connB := NewMockConnection(), NewMockConnection()
	Serve(hub, connA, "s1", "trace-1", quietLogger())
	Serve(hub, connB, "s2", "", quietLogger())
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), rec.open.Load())

	greeting := decode(t, waitFrames(t, connA, 1)[0])
	assert.Equal(t, events.MessageTypeConnect, greeting.Type)
	assert.Equal(t, "s1", greeting.SessionID)
	assert.Equal(t, "trace-1", greeting.TraceID)
	assert.NotEmpty(t, decode(t, waitFrames(t, connB, 1)[0]).TraceID, "connections without a request id get one")

	hub.Publish(context.Background(), dashboard.Event{
		Type:      dashboard.EventPageChanged,
		SessionID: "s1",
		Page:      dashboard.PageTMTI,
	})

	frames := waitFrames(t, connA, 2)
	msg := decode(t, frames[1])
	assert.Equal(t, events.MessageTypeSessionEvent, msg.Type)
	assert.Equal(t, "s1", msg.SessionID)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, dashboard.EventPageChanged, data["event"])
	assert.Equal(t, "tmti", data["page"])

	// the other session only saw its greeting
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, connB.Written(), 1)
}

func TestHub_Broadcast(t *testing.T) {
	hub, _ := startHub(t)

	conns := []*MockConnection{NewMockConnection(), NewMockConnection(), NewMockConnection()}
	for i, c := range conns {
		Serve(hub, c, []string{"a", "b", ""}[i], "", quietLogger())
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(context.Background(), events.MessageTypeSystemStatus, events.SystemStatusData{Status: "healthy"})

	for _, c := range conns {
		frames := waitFrames(t, c, 2)
		msg := decode(t, frames[1])
		assert.Equal(t, events.MessageTypeSystemStatus, msg.Type)
		assert.NotEmpty(t, msg.TraceID)
	}
	assert.GreaterOrEqual(t, hub.Stats().MessagesSent, int64(6))
}

func TestHub_UnregistersOnReadFailure(t *testing.T) {
	hub, rec := startHub(t)

	conn := NewMockConnection()
	Serve(hub, conn, "s1", "", quietLogger())
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Push(`{"type":"heartbeat"}`)
	conn.Push(`{"type":"navigate"}`)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(0), rec.open.Load())
}

func TestHub_StopClosesClients(t *testing.T) {
	rec := &countingRecorder{}
	hub := NewHub(Options{}, rec, quietLogger())
	hub.Start()

	conn := NewMockConnection()
	Serve(hub, conn, "s1", "", quietLogger())
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Stop()
	hub.Stop()

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, int64(0), rec.open.Load())
	require.Eventually(t, conn.IsClosed, time.Second, 5*time.Millisecond)

	// publishing after stop must not block
	hub.Publish(context.Background(), dashboard.Event{SessionID: "s1"})
}

func TestHub_FollowsSessionStore(t *testing.T) {
	hub, _ := startHub(t)
	store := dashboard.NewStore(quietLogger())
	store.Subscribe(hub.Publish)

	ctx := context.Background()
	sess := store.Create(ctx)

	conn := NewMockConnection()
	Serve(hub, conn, sess.ID, "", quietLogger())
	waitFrames(t, conn, 1)

	_, err := store.Navigate(ctx, sess.ID, dashboard.PageImpact)
	require.NoError(t, err)

	frames := waitFrames(t, conn, 2)
	msg := decode(t, frames[1])
	assert.Equal(t, sess.ID, msg.SessionID)
	assert.Equal(t, "impact", msg.Data.(map[string]interface{})["page"])
}

func TestHandler(t *testing.T) {
	hub, _ := startHub(t)
	h := NewHandler(hub, HandlerOptions{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		AllowedOrigins:  []string{"http://dashboard.local"},
		SessionCookie:   "gcti_session",
	}, apierrors.NewErrorHandler(quietLogger(), false), quietLogger())

	server := httptest.NewServer(h)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	t.Run("session from query", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?session=abc", nil)
		require.NoError(t, err)
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)

		msg := decode(t, frame)
		assert.Equal(t, events.MessageTypeConnect, msg.Type)
		assert.Equal(t, "abc", msg.SessionID)
	})

	t.Run("session from cookie and allowed origin", func(t *testing.T) {
		header := http.Header{}
		header.Set("Origin", "http://dashboard.local")
		header.Set("Cookie", "gcti_session=from-cookie")

		conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.NoError(t, err)
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "from-cookie", decode(t, frame).SessionID)
	})

	t.Run("foreign origin", func(t *testing.T) {
		header := http.Header{}
		header.Set("Origin", "http://evil.example")

		_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
