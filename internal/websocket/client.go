package websocket

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gctidash/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var heartbeat = []byte(`{"type":"heartbeat"}`)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages
	send chan []byte

	id          string
	sessionID   string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger

	messagesSent     int64
	messagesReceived int64
}

// NewClient creates a client bound to sessionID. An empty sessionID only
// receives broadcasts.
func NewClient(hub *Hub, conn Connection, sessionID, traceID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	// Connections opened without a request id still get one for the life of the socket.
	if traceID == "" {
		traceID = infrastructure.GetTraceID(infrastructure.EnsureTraceID(context.Background()))
	}

	id := uuid.NewString()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, clientSendBuffer),
		id:          id,
		sessionID:   sessionID,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// ID returns the client identifier
func (c *Client) ID() string {
	return c.id
}

// SessionID returns the dashboard session the client follows
func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) context() context.Context {
	ctx := infrastructure.WithTraceID(context.Background(), c.traceID)
	if c.sessionID != "" {
		ctx = infrastructure.WithSessionID(ctx, c.sessionID)
	}
	return ctx
}

// ReadPump reads from the connection until it fails, then unregisters the client
func (c *Client) ReadPump() {
	pongWait := c.hub.opts.PongWait
	defer func() {
		c.logger.InfoContext(c.context(), "client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived))
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(c.context(), "unexpected close",
					slog.String("error", err.Error()))
			}
			return
		}
		c.messagesReceived++

		message = bytes.TrimSpace(message)
		if bytes.Equal(message, heartbeat) {
			continue
		}
		// Clients change state through the HTTP API; other frames are ignored.
		c.logger.DebugContext(c.context(), "ignoring client message",
			slog.Int("size", len(message)))
	}
}

// WritePump writes queued messages and keep-alive pings to the connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.DebugContext(c.context(), "write pump stopped",
			slog.Int64("messages_sent", c.messagesSent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(c.context(), "error writing message",
					slog.String("error", err.Error()))
				return
			}
			c.messagesSent++

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "failed to send ping",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// Serve registers a client for conn and starts its pumps
func Serve(hub *Hub, conn Connection, sessionID, traceID string, logger *slog.Logger) *Client {
	client := NewClient(hub, conn, sessionID, traceID, logger)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
	return client
}
