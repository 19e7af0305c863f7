package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errConnClosed = errors.New("connection closed")

// MockConnection is an in-memory Connection. Reads block until a frame is
// pushed or the connection is closed.
type MockConnection struct {
	mu      sync.Mutex
	written [][]byte
	closed  bool

	incoming chan []byte
	done     chan struct{}
	once     sync.Once
}

func NewMockConnection() *MockConnection {
	return &MockConnection{
		incoming: make(chan []byte, 8),
		done:     make(chan struct{}),
	}
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errConnClosed
	}
	if messageType == websocket.TextMessage {
		m.written = append(m.written, append([]byte(nil), data...))
	}
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.incoming:
		return websocket.TextMessage, msg, nil
	case <-m.done:
		return 0, nil, errConnClosed
	}
}

func (m *MockConnection) Push(msg string) {
	m.incoming <- []byte(msg)
}

func (m *MockConnection) Close() error {
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.done)
	})
	return nil
}

func (m *MockConnection) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Written returns the text frames written so far
func (m *MockConnection) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.written))
	copy(out, m.written)
	return out
}

func (m *MockConnection) SetReadDeadline(time.Time) error { return nil }

func (m *MockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *MockConnection) SetReadLimit(int64) {}

func (m *MockConnection) SetPongHandler(func(string) error) {}

func (m *MockConnection) RemoteAddr() string { return "127.0.0.1:50000" }
