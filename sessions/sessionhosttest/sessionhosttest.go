package sessionhosttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ggoodman/httpkit/sessions"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// BackendFactory creates a new Backend instance for testing. The backend must
// accept client-supplied IDs it does not know yet (non-strict mode).
type BackendFactory func(t *testing.T) sessions.Backend

// RunBackendTests runs the complete Backend test suite against the provided factory.
func RunBackendTests(t *testing.T, factory BackendFactory) {
	t.Run("Open_EmptyIDMintsFresh", func(t *testing.T) { testOpenEmptyIDMintsFresh(t, factory) })
	t.Run("Open_AdoptsClientID", func(t *testing.T) { testOpenAdoptsClientID(t, factory) })
	t.Run("Open_InvalidIDMintsFresh", func(t *testing.T) { testOpenInvalidIDMintsFresh(t, factory) })
	t.Run("Read_UnknownIsNotFound", func(t *testing.T) { testReadUnknown(t, factory) })
	t.Run("Write_RoundTrip", func(t *testing.T) { testWriteRoundTrip(t, factory) })
	t.Run("Write_Replaces", func(t *testing.T) { testWriteReplaces(t, factory) })
	t.Run("Write_Isolation", func(t *testing.T) { testWriteIsolation(t, factory) })
	t.Run("Regenerate_MovesItems", func(t *testing.T) { testRegenerateMovesItems(t, factory) })
	t.Run("Regenerate_UnknownIsNotFound", func(t *testing.T) { testRegenerateUnknown(t, factory) })
	t.Run("Destroy_KeepsItems", func(t *testing.T) { testDestroyKeepsItems(t, factory) })
	t.Run("Destroy_Purge", func(t *testing.T) { testDestroyPurge(t, factory) })

	t.Run("Session_DefaultsBeforeStart", func(t *testing.T) { testSessionDefaultsBeforeStart(t, factory) })
	t.Run("Session_StartAssignsID", func(t *testing.T) { testSessionStartAssignsID(t, factory) })
	t.Run("Session_Resume", func(t *testing.T) { testSessionResume(t, factory) })
	t.Run("Session_RegenerateID", func(t *testing.T) { testSessionRegenerateID(t, factory) })
	t.Run("Session_Destroy", func(t *testing.T) { testSessionDestroy(t, factory) })
	t.Run("Session_DestroyRemoveData", func(t *testing.T) { testSessionDestroyRemoveData(t, factory) })
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func clientID() string {
	return "suite-" + uuid.NewString()
}

// --- Backend tests ---

func testOpenEmptyIDMintsFresh(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	id1, err := b.Open(ctx, sessions.DefaultName, "")
	if err != nil {
		t.Fatalf("open 1: %v", err)
	}
	id2, err := b.Open(ctx, sessions.DefaultName, "")
	if err != nil {
		t.Fatalf("open 2: %v", err)
	}
	if id1 == "" || id2 == "" {
		t.Fatalf("expected non-empty ids, got %q and %q", id1, id2)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %q twice", id1)
	}
	if !sessions.ValidID(id1) {
		t.Fatalf("minted id %q is not valid", id1)
	}
}

func testOpenAdoptsClientID(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	want := clientID()
	got, err := b.Open(ctx, sessions.DefaultName, want)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got != want {
		t.Fatalf("expected id %q, got %q", want, got)
	}
	items, err := b.Read(ctx, got)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty items, got %v", items)
	}
}

func testOpenInvalidIDMintsFresh(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	got, err := b.Open(ctx, sessions.DefaultName, "not a valid id!")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got == "not a valid id!" || !sessions.ValidID(got) {
		t.Fatalf("expected a freshly minted id, got %q", got)
	}
}

func testReadUnknown(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	if _, err := b.Read(ctx, clientID()); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func testWriteRoundTrip(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	id := mustOpen(t, ctx, b, "")
	want := map[string]any{
		"foo":     "bar",
		"foo.bar": "too much beer",
		"great":   "go is great",
		"flag":    true,
	}
	if err := b.Write(ctx, id, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := b.Read(ctx, id)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func testWriteReplaces(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	id := mustOpen(t, ctx, b, "")
	if err := b.Write(ctx, id, map[string]any{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	if err := b.Write(ctx, id, map[string]any{"b": "3"}); err != nil {
		t.Fatalf("write 2: %v", err)
	}
	got, err := b.Read(ctx, id)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"b": "3"}, got); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}

	if err := b.Write(ctx, id, map[string]any{}); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	got, err = b.Read(ctx, id)
	if err != nil {
		t.Fatalf("read after empty write: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty items, got %v", got)
	}
}

func testWriteIsolation(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	id1 := mustOpen(t, ctx, b, "")
	id2 := mustOpen(t, ctx, b, "")
	if err := b.Write(ctx, id1, map[string]any{"who": "one"}); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	if err := b.Write(ctx, id2, map[string]any{"who": "two"}); err != nil {
		t.Fatalf("write 2: %v", err)
	}
	got1, _ := b.Read(ctx, id1)
	got2, _ := b.Read(ctx, id2)
	if got1["who"] != "one" || got2["who"] != "two" {
		t.Fatalf("sessions not isolated: %v / %v", got1, got2)
	}
}

func testRegenerateMovesItems(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	id := mustOpen(t, ctx, b, "")
	if err := b.Write(ctx, id, map[string]any{"k": "v"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	next, err := b.Regenerate(ctx, id)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if next == "" || next == id {
		t.Fatalf("expected a new id, got %q (old %q)", next, id)
	}
	got, err := b.Read(ctx, next)
	if err != nil {
		t.Fatalf("read new: %v", err)
	}
	if got["k"] != "v" {
		t.Fatalf("items not moved: %v", got)
	}
	if _, err := b.Read(ctx, id); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("expected old id to be gone, got %v", err)
	}

	again, err := b.Regenerate(ctx, next)
	if err != nil {
		t.Fatalf("regenerate again: %v", err)
	}
	if again == next || again == id {
		t.Fatalf("expected a third distinct id, got %q", again)
	}
}

func testRegenerateUnknown(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	if _, err := b.Regenerate(ctx, clientID()); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func testDestroyKeepsItems(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	id := mustOpen(t, ctx, b, "")
	if err := b.Write(ctx, id, map[string]any{"k": "v"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := b.Destroy(ctx, id, false); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if got := mustOpen(t, ctx, b, id); got != id {
		t.Fatalf("expected to reopen %q, got %q", id, got)
	}
	got, err := b.Read(ctx, id)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["k"] != "v" {
		t.Fatalf("items lost on destroy without purge: %v", got)
	}
}

func testDestroyPurge(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	id := mustOpen(t, ctx, b, "")
	if err := b.Write(ctx, id, map[string]any{"k": "v"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := b.Destroy(ctx, id, true); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := b.Read(ctx, id); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after purge, got %v", err)
	}
	if err := b.Destroy(ctx, id, true); err != nil {
		t.Fatalf("second destroy: %v", err)
	}
}

// --- Session facade tests ---

func testSessionDefaultsBeforeStart(t *testing.T, factory BackendFactory) {
	s := sessions.New(factory(t))
	ctx := testContext(t)

	if s.ID() != "" {
		t.Fatalf("expected empty id, got %q", s.ID())
	}
	if s.Name() != sessions.DefaultName {
		t.Fatalf("expected default name, got %q", s.Name())
	}
	if s.IsStarted() {
		t.Fatal("expected not started")
	}
	if got := s.Get("foo"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := s.GetOr("foo", 1); got != 1 {
		t.Fatalf("expected default 1, got %v", got)
	}

	for _, key := range []string{"foo", "foo.bar", "great"} {
		if err := s.Set(ctx, key, "value of "+key); err != nil {
			t.Fatalf("set %q: %v", key, err)
		}
		if got := s.Get(key); got != "value of "+key {
			t.Fatalf("get %q: %v", key, got)
		}
		if !s.Has(key) || s.Has(key+"non_value") {
			t.Fatalf("has %q mismatch", key)
		}
		if err := s.Remove(ctx, key); err != nil {
			t.Fatalf("remove %q: %v", key, err)
		}
		if s.Has(key) {
			t.Fatalf("expected %q removed", key)
		}
	}
}

func testSessionStartAssignsID(t *testing.T, factory BackendFactory) {
	s := sessions.New(factory(t))
	ctx := testContext(t)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsStarted() {
		t.Fatal("expected started")
	}
	id := s.ID()
	if id == "" {
		t.Fatal("expected non-empty id after start")
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if s.ID() != id {
		t.Fatalf("second start changed id from %q to %q", id, s.ID())
	}

	s.SetID("ignored")
	s.SetName("ignored")
	if s.ID() != id || s.Name() != sessions.DefaultName {
		t.Fatalf("SetID/SetName took effect after start: %q %q", s.ID(), s.Name())
	}
}

func testSessionResume(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testContext(t)

	want := clientID()
	s := sessions.New(b)
	s.SetID(want)
	s.SetName("session.test.com")
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.ID() != want || s.Name() != "session.test.com" {
		t.Fatalf("expected %q/%q, got %q/%q", want, "session.test.com", s.ID(), s.Name())
	}
	if err := s.Set(ctx, "hi.there", "have a nice day"); err != nil {
		t.Fatalf("set: %v", err)
	}

	next := sessions.New(b, sessions.WithID(want), sessions.WithName("session.test.com"))
	if err := next.Set(ctx, "local", "dropped on start"); err != nil {
		t.Fatalf("set before start: %v", err)
	}
	if err := next.Start(ctx); err != nil {
		t.Fatalf("start resumed: %v", err)
	}
	if got := next.Get("hi.there"); got != "have a nice day" {
		t.Fatalf("expected resumed value, got %v", got)
	}
	if next.Has("local") {
		t.Fatal("expected pre-start item to be replaced by stored items")
	}
}

func testSessionRegenerateID(t *testing.T, factory BackendFactory) {
	s := sessions.New(factory(t))
	ctx := testContext(t)

	if err := s.RegenerateID(ctx); !errors.Is(err, sessions.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}

	seen := map[string]bool{s.ID(): true}
	for i := 0; i < 2; i++ {
		if err := s.RegenerateID(ctx); err != nil {
			t.Fatalf("regenerate #%d: %v", i, err)
		}
		if seen[s.ID()] {
			t.Fatalf("regenerate #%d reused id %q", i, s.ID())
		}
		seen[s.ID()] = true
		if !s.IsStarted() || s.Get("k") != "v" {
			t.Fatalf("regenerate #%d lost state", i)
		}
	}

	if err := s.Set(ctx, "k2", "v2"); err != nil {
		t.Fatalf("set after regenerate: %v", err)
	}
}

func testSessionDestroy(t *testing.T, factory BackendFactory) {
	s := sessions.New(factory(t))
	ctx := testContext(t)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Set(ctx, "hi.there", "have a nice day"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Destroy(ctx, false); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if got := s.Get("hi.there"); got != "have a nice day" {
		t.Fatalf("expected value to survive destroy, got %v", got)
	}
	if s.IsStarted() {
		t.Fatal("expected not started after destroy")
	}
}

func testSessionDestroyRemoveData(t *testing.T, factory BackendFactory) {
	b := factory(t)
	s := sessions.New(b)
	ctx := testContext(t)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	id := s.ID()
	if err := s.Set(ctx, "hi.there", "have a nice day"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Destroy(ctx, true); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if s.Has("hi.there") {
		t.Fatal("expected item purged")
	}
	if s.IsStarted() {
		t.Fatal("expected not started after destroy")
	}
	if _, err := b.Read(ctx, id); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("expected backend purge, got %v", err)
	}
}

func mustOpen(t *testing.T, ctx context.Context, b sessions.Backend, id string) string {
	t.Helper()
	got, err := b.Open(ctx, sessions.DefaultName, id)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return got
}
