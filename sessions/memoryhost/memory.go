package memoryhost

import (
	"context"
	"sync"
	"time"

	"github.com/ggoodman/httpkit/sessions"
	"github.com/google/uuid"
)

// Host is an in-memory implementation of sessions.Backend.
type Host struct {
	mu       sync.RWMutex
	sessions map[string]*sessionData

	ttl    time.Duration
	strict bool
	newID  func() string
	now    func() time.Time
}

type sessionData struct {
	name      string
	items     map[string]any
	touchedAt time.Time
}

// Option configures a Host.
type Option func(*Host)

// WithTTL expires sessions that have not been opened or written for ttl.
// Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(h *Host) { h.ttl = ttl }
}

// WithStrictMode makes Open refuse client-supplied IDs the host does not
// know, minting a new ID instead.
func WithStrictMode(strict bool) Option {
	return func(h *Host) { h.strict = strict }
}

// WithIDGenerator replaces the ID generator. It must not return the same ID
// twice.
func WithIDGenerator(fn func() string) Option {
	return func(h *Host) { h.newID = fn }
}

func New(opts ...Option) *Host {
	h := &Host{
		sessions: make(map[string]*sessionData),
		newID:    newID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) Open(ctx context.Context, name, id string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if id != "" && sessions.ValidID(id) {
		if sd, ok := h.liveLocked(id, now); ok {
			sd.name = name
			sd.touchedAt = now
			return id, nil
		}
		if !h.strict {
			h.sessions[id] = &sessionData{name: name, items: make(map[string]any), touchedAt: now}
			return id, nil
		}
	}

	id = h.freshIDLocked()
	h.sessions[id] = &sessionData{name: name, items: make(map[string]any), touchedAt: now}
	return id, nil
}

func (h *Host) Read(ctx context.Context, id string) (map[string]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sd, ok := h.liveLocked(id, h.now())
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	return sessions.CloneItems(sd.items), nil
}

func (h *Host) Write(ctx context.Context, id string, items map[string]any) error {
	if !sessions.ValidID(id) {
		return sessions.ErrInvalidID
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	sd, ok := h.liveLocked(id, now)
	if !ok {
		sd = &sessionData{}
		h.sessions[id] = sd
	}
	sd.items = sessions.CloneItems(items)
	sd.touchedAt = now
	return nil
}

func (h *Host) Regenerate(ctx context.Context, id string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sd, ok := h.liveLocked(id, h.now())
	if !ok {
		return "", sessions.ErrSessionNotFound
	}
	next := h.freshIDLocked()
	delete(h.sessions, id)
	sd.touchedAt = h.now()
	h.sessions[next] = sd
	return next, nil
}

func (h *Host) Destroy(ctx context.Context, id string, purge bool) error {
	if !purge {
		return nil
	}
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
	return nil
}

// Len returns the number of live sessions.
func (h *Host) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	now := h.now()
	for id := range h.sessions {
		if _, ok := h.liveLocked(id, now); ok {
			n++
		}
	}
	return n
}

// Sweep removes expired sessions and returns how many were removed.
func (h *Host) Sweep() int {
	if h.ttl <= 0 {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	before := len(h.sessions)
	now := h.now()
	for id := range h.sessions {
		h.liveLocked(id, now)
	}
	return before - len(h.sessions)
}

// Run sweeps expired sessions every interval until ctx is done.
func (h *Host) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// liveLocked returns the session for id, dropping it if it has expired.
func (h *Host) liveLocked(id string, now time.Time) (*sessionData, bool) {
	sd, ok := h.sessions[id]
	if !ok {
		return nil, false
	}
	if h.ttl > 0 && now.Sub(sd.touchedAt) > h.ttl {
		delete(h.sessions, id)
		return nil, false
	}
	return sd, true
}

func (h *Host) freshIDLocked() string {
	for {
		id := h.newID()
		if _, exists := h.sessions[id]; !exists {
			return id
		}
	}
}

func newID() string {
	return uuid.NewString()
}

// Ensure interface compliance
var _ sessions.Backend = (*Host)(nil)
