package sessions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ggoodman/httpkit/sessions"
	"github.com/ggoodman/httpkit/sessions/memoryhost"
	"github.com/google/go-cmp/cmp"
)

// failingBackend wraps a real backend and fails selected operations.
type failingBackend struct {
	sessions.Backend
	openErr, readErr, writeErr, regenErr, destroyErr error
	regenID                                          string
}

func (f *failingBackend) Open(ctx context.Context, name, id string) (string, error) {
	if f.openErr != nil {
		return "", f.openErr
	}
	return f.Backend.Open(ctx, name, id)
}

func (f *failingBackend) Read(ctx context.Context, id string) (map[string]any, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.Backend.Read(ctx, id)
}

func (f *failingBackend) Write(ctx context.Context, id string, items map[string]any) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.Backend.Write(ctx, id, items)
}

func (f *failingBackend) Regenerate(ctx context.Context, id string) (string, error) {
	if f.regenErr != nil {
		return "", f.regenErr
	}
	if f.regenID != "" {
		return f.regenID, nil
	}
	return f.Backend.Regenerate(ctx, id)
}

func (f *failingBackend) Destroy(ctx context.Context, id string, purge bool) error {
	if f.destroyErr != nil {
		return f.destroyErr
	}
	return f.Backend.Destroy(ctx, id, purge)
}

var errBackend = errors.New("backend unavailable")

func TestStartFailure(t *testing.T) {
	tests := []struct {
		name    string
		backend *failingBackend
	}{
		{name: "open", backend: &failingBackend{Backend: memoryhost.New(), openErr: errBackend}},
		{name: "read", backend: &failingBackend{Backend: memoryhost.New(), readErr: errBackend}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sessions.New(tt.backend)
			if err := s.Start(context.Background()); !errors.Is(err, errBackend) {
				t.Fatalf("Start() = %v, want %v", err, errBackend)
			}
			if s.IsStarted() {
				t.Fatal("session started despite backend failure")
			}
			if s.ID() != "" {
				t.Fatalf("ID() = %q after failed start", s.ID())
			}
		})
	}
}

func TestWriteFailureKeepsLocalItems(t *testing.T) {
	fb := &failingBackend{Backend: memoryhost.New()}
	s := sessions.New(fb)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Set(ctx, "kept", "yes"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	fb.writeErr = errBackend
	if err := s.Set(ctx, "lost", "no"); !errors.Is(err, errBackend) {
		t.Fatalf("Set() = %v, want %v", err, errBackend)
	}
	if err := s.Remove(ctx, "kept"); !errors.Is(err, errBackend) {
		t.Fatalf("Remove() = %v, want %v", err, errBackend)
	}

	if diff := cmp.Diff(map[string]any{"kept": "yes"}, s.All()); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestRegenerateRejectsSameID(t *testing.T) {
	fb := &failingBackend{Backend: memoryhost.New()}
	s := sessions.New(fb, sessions.WithID("fixed-id"))
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	fb.regenID = "fixed-id"
	if err := s.RegenerateID(ctx); !errors.Is(err, sessions.ErrInvalidID) {
		t.Fatalf("RegenerateID() = %v, want %v", err, sessions.ErrInvalidID)
	}
	if s.ID() != "fixed-id" {
		t.Fatalf("ID() = %q", s.ID())
	}
}

func TestDestroyFailureKeepsSessionStarted(t *testing.T) {
	fb := &failingBackend{Backend: memoryhost.New(), destroyErr: errBackend}
	s := sessions.New(fb)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Destroy(ctx, true); !errors.Is(err, errBackend) {
		t.Fatalf("Destroy() = %v, want %v", err, errBackend)
	}
	if !s.IsStarted() {
		t.Fatal("session stopped despite destroy failure")
	}
}

func TestDestroyBeforeStart(t *testing.T) {
	s := sessions.New(memoryhost.New())
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Destroy(ctx, false); err != nil {
		t.Fatalf("Destroy(false): %v", err)
	}
	if !s.Has("k") {
		t.Fatal("Destroy(false) dropped local items")
	}
	if err := s.Destroy(ctx, true); err != nil {
		t.Fatalf("Destroy(true): %v", err)
	}
	if s.Has("k") {
		t.Fatal("Destroy(true) kept local items")
	}
}

func TestRestartAfterDestroy(t *testing.T) {
	host := memoryhost.New()
	s := sessions.New(host)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := s.ID()
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := s.Destroy(ctx, false); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if s.ID() != id || s.Get("k") != "v" {
		t.Fatalf("restart after Destroy(false) = %q %v, want %q v", s.ID(), s.Get("k"), id)
	}

	if err := s.Destroy(ctx, true); err != nil {
		t.Fatalf("Destroy purge: %v", err)
	}
	if s.ID() != "" {
		t.Fatalf("ID() = %q after purge", s.ID())
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("restart after purge: %v", err)
	}
	if s.ID() == id || s.Has("k") {
		t.Fatalf("restart after purge reused state: %q %v", s.ID(), s.All())
	}
}

func TestClear(t *testing.T) {
	s := sessions.New(memoryhost.New())
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, k := range []string{"a", "b"} {
		if err := s.Set(ctx, k, k); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n := len(s.All()); n != 0 {
		t.Fatalf("%d items after Clear", n)
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{id: "0123456789abcdef", want: true},
		{id: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", want: true},
		{id: "a,b-C", want: true},
		{id: "", want: false},
		{id: "has space", want: false},
		{id: "semi;colon", want: false},
		{id: string(make([]byte, sessions.MaxIDLength+1)), want: false},
	}

	for _, tt := range tests {
		if got := sessions.ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
