package sessions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// DefaultName is the session cookie name used when none is configured.
const DefaultName = "GOSESSID"

// Option configures a Session.
type Option func(*Session)

// WithName sets the session name, usually the cookie name.
func WithName(name string) Option {
	return func(s *Session) { s.name = name }
}

// WithID seeds the session ID, usually from a request cookie.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithLogger sets the logger used by the session. If not provided, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Session is a key/value view of one client's server-side state. Items are
// readable and writable before Start; they are only persisted to the backend
// while the session is started.
type Session struct {
	backend Backend
	log     *slog.Logger

	mu      sync.RWMutex
	id      string
	name    string
	started bool
	items   map[string]any
}

// New creates a session that is not yet started.
func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		name:    DefaultName,
		items:   make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the current session ID, or "" before the first Start.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// SetID sets the ID Start will bind to. It has no effect once started.
func (s *Session) SetID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.log.Debug("session.set_id.ignored", slog.String("id", s.id))
		return
	}
	s.id = id
}

// Name returns the session name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName sets the session name. It has no effect once started.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.log.Debug("session.set_name.ignored", slog.String("name", s.name))
		return
	}
	s.name = name
}

// Start binds the session to the backend, creating an ID when none is set,
// and loads the stored items, replacing anything set locally before. Calling
// Start on a started session does nothing.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	id, err := s.backend.Open(ctx, s.name, s.id)
	if err != nil {
		s.log.ErrorContext(ctx, "session.open.fail", slog.String("name", s.name), slog.String("err", err.Error()))
		return fmt.Errorf("open session: %w", err)
	}
	if id == "" {
		return fmt.Errorf("open session: %w", ErrInvalidID)
	}

	items, err := s.backend.Read(ctx, id)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		s.log.ErrorContext(ctx, "session.read.fail", slog.String("id", id), slog.String("err", err.Error()))
		return fmt.Errorf("read session: %w", err)
	}

	s.id = id
	s.items = CloneItems(items)
	s.started = true
	s.log.DebugContext(ctx, "session.start.ok", slog.String("id", id), slog.String("name", s.name), slog.Int("items", len(items)))
	return nil
}

// IsStarted reports whether the session is bound to the backend.
func (s *Session) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Get returns the item stored under key, or nil.
func (s *Session) Get(key string) any {
	return s.GetOr(key, nil)
}

// GetOr returns the item stored under key, or def when there is none.
func (s *Session) GetOr(key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.items[key]; ok {
		return v
	}
	return def
}

// Has reports whether an item is stored under key.
func (s *Session) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[key]
	return ok
}

// All returns a copy of every item.
func (s *Session) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneItems(s.items)
}

// Set stores value under key. A started session writes through to the
// backend; the local item only changes if that write succeeds.
func (s *Session) Set(ctx context.Context, key string, value any) error {
	return s.mutate(ctx, func(items map[string]any) { items[key] = value })
}

// Remove deletes the item stored under key.
func (s *Session) Remove(ctx context.Context, key string) error {
	return s.mutate(ctx, func(items map[string]any) { delete(items, key) })
}

// Clear deletes every item.
func (s *Session) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(items map[string]any) { clear(items) })
}

// RegenerateID replaces the session ID with a fresh one, keeping all items.
func (s *Session) RegenerateID(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}

	old := s.id
	id, err := s.backend.Regenerate(ctx, old)
	if err != nil {
		s.log.ErrorContext(ctx, "session.regenerate.fail", slog.String("id", old), slog.String("err", err.Error()))
		return fmt.Errorf("regenerate session id: %w", err)
	}
	if id == "" || id == old {
		return fmt.Errorf("regenerate session id: %w", ErrInvalidID)
	}

	s.id = id
	s.log.DebugContext(ctx, "session.regenerate.ok", slog.String("old_id", old), slog.String("id", id))
	return nil
}

// Destroy ends the session. With removeData unset the stored items survive
// in the backend and stay readable through this Session. With removeData set
// they are purged from both, and the ID is cleared so a later Start creates
// a new session.
func (s *Session) Destroy(ctx context.Context, removeData bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		if err := s.backend.Destroy(ctx, s.id, removeData); err != nil {
			s.log.ErrorContext(ctx, "session.destroy.fail", slog.String("id", s.id), slog.String("err", err.Error()))
			return fmt.Errorf("destroy session: %w", err)
		}
		s.log.DebugContext(ctx, "session.destroy.ok", slog.String("id", s.id), slog.Bool("purge", removeData))
	}

	s.started = false
	if removeData {
		s.items = make(map[string]any)
		s.id = ""
	}
	return nil
}

func (s *Session) mutate(ctx context.Context, fn func(map[string]any)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		fn(s.items)
		return nil
	}

	next := CloneItems(s.items)
	fn(next)
	if err := s.backend.Write(ctx, s.id, next); err != nil {
		s.log.ErrorContext(ctx, "session.write.fail", slog.String("id", s.id), slog.String("err", err.Error()))
		return fmt.Errorf("write session: %w", err)
	}
	s.items = next
	return nil
}
