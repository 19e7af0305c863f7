package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"gctidash/internal/ingest"
)

// ErrSessionNotFound is returned for unknown or expired session ids
var ErrSessionNotFound = errors.New("session not found")

// Session is the state of one browser session
type Session struct {
	ID          string        `json:"id"`
	Page        Page          `json:"page"`
	ShowPreview bool          `json:"show_preview"`
	Upload      *ingest.Table `json:"-"`
	UploadName  string        `json:"upload_name,omitempty"`
	UploadError string        `json:"upload_error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	LastSeen    time.Time     `json:"last_seen"`
}

// HasUpload reports whether the session holds a parsed upload
func (s Session) HasUpload() bool {
	return s.Upload != nil
}

// Listener is notified after a session changes
type Listener func(ctx context.Context, event Event)

// Event describes a session change
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Page      Page      `json:"page,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventSessionCreated = "session_created"
	EventPageChanged    = "page_changed"
	EventPreviewToggled = "preview_toggled"
	EventUploadParsed   = "upload_parsed"
	EventUploadFailed   = "upload_failed"
	EventUploadCleared  = "upload_cleared"
)

// Store keeps sessions in memory. Get returns copies; mutations go through
// the Store methods.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
	logger   *slog.Logger

	listenerMu sync.RWMutex
	listeners  []Listener
}

// NewStore creates an empty session store
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_store")),
	}
}

// Subscribe registers l for every subsequent session event
func (s *Store) Subscribe(l Listener) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenerMu.Unlock()
}

// Create starts a new session on the home page
func (s *Store) Create(ctx context.Context) Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Page:      PageHome,
		CreatedAt: now,
		LastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	snapshot := *sess
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "session created", slog.String("session_id", sess.ID))
	s.emit(ctx, Event{Type: EventSessionCreated, SessionID: sess.ID, Page: sess.Page})
	return snapshot
}

// Get returns a copy of the session and refreshes its idle timer
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	sess.LastSeen = s.now()
	return *sess, nil
}

// Navigate moves the session to page. Any page may follow any other.
func (s *Store) Navigate(ctx context.Context, id string, page Page) (Session, error) {
	if _, err := ParsePage(string(page)); err != nil {
		return Session{}, err
	}
	sess, err := s.update(id, func(sess *Session) { sess.Page = page })
	if err != nil {
		return Session{}, err
	}
	s.emit(ctx, Event{Type: EventPageChanged, SessionID: id, Page: page})
	return sess, nil
}

// SetPreview sets whether the raw-table preview is shown
func (s *Store) SetPreview(ctx context.Context, id string, show bool) (Session, error) {
	sess, err := s.update(id, func(sess *Session) { sess.ShowPreview = show })
	if err != nil {
		return Session{}, err
	}
	s.emit(ctx, Event{Type: EventPreviewToggled, SessionID: id, Page: sess.Page})
	return sess, nil
}

// TogglePreview flips the raw-table preview flag in one locked update
func (s *Store) TogglePreview(ctx context.Context, id string) (Session, error) {
	sess, err := s.update(id, func(sess *Session) { sess.ShowPreview = !sess.ShowPreview })
	if err != nil {
		return Session{}, err
	}
	s.emit(ctx, Event{Type: EventPreviewToggled, SessionID: id, Page: sess.Page})
	return sess, nil
}

// SetUpload stores a parsed upload and clears any previous upload error
func (s *Store) SetUpload(ctx context.Context, id string, table *ingest.Table) (Session, error) {
	sess, err := s.update(id, func(sess *Session) {
		sess.Upload = table
		sess.UploadName = table.Name
		sess.UploadError = ""
	})
	if err != nil {
		return Session{}, err
	}
	s.emit(ctx, Event{Type: EventUploadParsed, SessionID: id, Page: sess.Page, Detail: table.Name})
	return sess, nil
}

// SetUploadError records a failed upload. The session drops any previous
// upload and keeps working without one.
func (s *Store) SetUploadError(ctx context.Context, id, name string, uploadErr error) (Session, error) {
	sess, err := s.update(id, func(sess *Session) {
		sess.Upload = nil
		sess.UploadName = name
		sess.UploadError = uploadErr.Error()
	})
	if err != nil {
		return Session{}, err
	}
	s.emit(ctx, Event{Type: EventUploadFailed, SessionID: id, Page: sess.Page, Detail: sess.UploadError})
	return sess, nil
}

// ClearUpload removes the uploaded table and any upload error
func (s *Store) ClearUpload(ctx context.Context, id string) (Session, error) {
	sess, err := s.update(id, func(sess *Session) {
		sess.Upload = nil
		sess.UploadName = ""
		sess.UploadError = ""
	})
	if err != nil {
		return Session{}, err
	}
	s.emit(ctx, Event{Type: EventUploadCleared, SessionID: id, Page: sess.Page})
	return sess, nil
}

// Delete discards a session and its upload
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Expire removes sessions idle for longer than idle and returns how many were removed
func (s *Store) Expire(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Info("expired idle sessions", slog.Int("count", removed))
	}
	return removed
}

// RunJanitor expires idle sessions every interval until ctx is done
func (s *Store) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Expire(idle)
		}
	}
}

func (s *Store) update(id string, mutate func(*Session)) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	mutate(sess)
	sess.LastSeen = s.now()
	return *sess, nil
}

func (s *Store) emit(ctx context.Context, e Event) {
	e.Timestamp = s.now()

	s.listenerMu.RLock()
	listeners := s.listeners
	s.listenerMu.RUnlock()

	for _, l := range listeners {
		l(ctx, e)
	}
}
