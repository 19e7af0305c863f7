package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gctidash/internal/dashboard"
	"gctidash/internal/infrastructure"
	"gctidash/pkg/contracts/events"
)

const (
	defaultPongWait  = 60 * time.Second
	broadcastBacklog = 64
	clientSendBuffer = 64
)

// Options tunes the keep-alive of every client of a hub
type Options struct {
	PingPeriod time.Duration
	PongWait   time.Duration
	Version    string
}

func (o Options) withDefaults() Options {
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	return o
}

// outbound is a message queued for delivery. An empty sessionID reaches
// every client.
type outbound struct {
	sessionID string
	payload   []byte
}

// HubStats is a snapshot of hub counters
type HubStats struct {
	Clients      int   `json:"clients"`
	MessagesSent int64 `json:"messages_sent"`
	Dropped      int64 `json:"dropped"`
}

// Hub maintains the set of active clients and routes session events to the
// clients of that session
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	opts     Options
	recorder ConnectionRecorder
	logger   *slog.Logger

	messagesSent atomic.Int64
	dropped      atomic.Int64
}

// NewHub creates a new Hub. recorder may be nil.
func NewHub(opts Options, recorder ConnectionRecorder, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, broadcastBacklog),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		opts:       opts.withDefaults(),
		recorder:   recorder,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start starts the hub loop
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop closes every client and waits for the hub loop to exit
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			n := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.record(ctx, -int64(n))
			h.logger.Info("hub stopped", slog.Int("closed_clients", n))
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.record(ctx, 1)

			cctx := client.context()
			h.logger.InfoContext(cctx, "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			h.greet(cctx, client)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				h.record(ctx, -1)
				h.logger.InfoContext(client.context(), "client unregistered",
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", count))
			}

		case msg := <-h.broadcast:
			h.deliver(ctx, msg)
		}
	}
}

func (h *Hub) deliver(ctx context.Context, msg outbound) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if msg.sessionID == "" || client.sessionID == msg.sessionID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- msg.payload:
			h.messagesSent.Add(1)
		default:
			// slow consumer
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.record(ctx, -1)
			}
			h.mu.Unlock()
			h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	h.logger.DebugContext(ctx, "message delivered",
		slog.String("session_id", msg.sessionID),
		slog.Int("clients", len(targets)),
		slog.Int("payload_size", len(msg.payload)))
}

func (h *Hub) greet(ctx context.Context, client *Client) {
	payload, err := h.encode(ctx, events.MessageTypeConnect, client.sessionID, events.ConnectData{
		ClientID:  client.id,
		SessionID: client.sessionID,
		Version:   h.opts.Version,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
		h.messagesSent.Add(1)
	default:
		h.logger.WarnContext(ctx, "failed to send connection message, client buffer full",
			slog.String("client_id", client.id))
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		client.conn.Close()
	}
}

// Unregister removes a client from the hub and closes its send channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Publish forwards a session event to the clients of that session. Its
// signature matches dashboard.Listener.
func (h *Hub) Publish(ctx context.Context, e dashboard.Event) {
	payload, err := h.encode(ctx, events.MessageTypeSessionEvent, e.SessionID, events.SessionEvent{
		Event:  e.Type,
		Page:   string(e.Page),
		Detail: e.Detail,
	})
	if err != nil {
		return
	}
	h.enqueue(ctx, outbound{sessionID: e.SessionID, payload: payload})
}

// Broadcast sends a message to every connected client
func (h *Hub) Broadcast(ctx context.Context, msgType events.MessageType, data interface{}) {
	ctx = infrastructure.EnsureTraceID(ctx)
	payload, err := h.encode(ctx, msgType, "", data)
	if err != nil {
		return
	}
	h.enqueue(ctx, outbound{payload: payload})
}

func (h *Hub) enqueue(ctx context.Context, msg outbound) {
	select {
	case h.broadcast <- msg:
	case <-h.quit:
	default:
		h.dropped.Add(1)
		h.logger.WarnContext(ctx, "broadcast backlog full, message dropped",
			slog.String("session_id", msg.sessionID))
	}
}

func (h *Hub) encode(ctx context.Context, msgType events.MessageType, sessionID string, data interface{}) ([]byte, error) {
	msg := events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.NewString(),
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   infrastructure.GetTraceID(ctx),
		},
		SessionID: sessionID,
		Data:      data,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "error marshaling message",
			slog.String("message_type", string(msgType)),
			slog.String("error", err.Error()))
		return nil, err
	}
	return payload, nil
}

func (h *Hub) record(ctx context.Context, delta int64) {
	if h.recorder != nil && delta != 0 {
		h.recorder.WebSocketDelta(ctx, delta)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns the hub counters
func (h *Hub) Stats() HubStats {
	return HubStats{
		Clients:      h.ClientCount(),
		MessagesSent: h.messagesSent.Load(),
		Dropped:      h.dropped.Load(),
	}
}
