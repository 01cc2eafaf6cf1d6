package sessions

import (
	"context"
	"errors"
)

var (
	// ErrNotStarted is returned by operations that need a started session.
	ErrNotStarted = errors.New("session not started")
	// ErrSessionNotFound is returned by a Backend when no data exists for an ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidID is returned by a Backend for a malformed session ID, and by
	// Session when a backend hands back an unusable ID.
	ErrInvalidID = errors.New("invalid session id")
)

// Backend is the persistence contract a Session delegates to. A backend owns
// the per-session key/value maps and any cross-request locking; Session only
// mirrors the map of the session it is bound to.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// Open binds to the session identified by id under the given cookie
	// name and returns the ID actually in use. An empty id, or an id the
	// backend refuses to adopt, yields a freshly generated one.
	Open(ctx context.Context, name, id string) (string, error)

	// Read returns a copy of the items stored for id. A session that has
	// been opened but never written reads as an empty map. ErrSessionNotFound
	// is returned for IDs the backend knows nothing about.
	Read(ctx context.Context, id string) (map[string]any, error)

	// Write replaces the items stored for id.
	Write(ctx context.Context, id string, items map[string]any) error

	// Regenerate moves the items stored for id to a new ID and returns it.
	// The new ID never equals id.
	Regenerate(ctx context.Context, id string) (string, error)

	// Destroy ends the association with id. When purge is set the stored
	// items are removed as well; otherwise they remain readable by a later
	// Open of the same ID.
	Destroy(ctx context.Context, id string, purge bool) error
}

// CloneItems returns a shallow copy of items. A nil map yields an empty one.
func CloneItems(items map[string]any) map[string]any {
	out := make(map[string]any, len(items))
	for k, v := range items {
		out[k] = v
	}
	return out
}

// MaxIDLength bounds the length of a session ID accepted by ValidID.
const MaxIDLength = 256

// ValidID reports whether id is non-empty, at most MaxIDLength bytes, and
// made only of ASCII letters, digits, '-' and ','.
func ValidID(id string) bool {
	if id == "" || len(id) > MaxIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == ',':
		default:
			return false
		}
	}
	return true
}
