package httpsink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ggoodman/httpkit/response"
)

func TestBuilderThroughRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	sink := New(w)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	b := response.New(sink)
	b.SetStatusCode(http.StatusCreated).
		SetContentType("text/plain").
		SetHeader("Cache-Control: max-age=0", "").
		SetHeader("X-Bare", "").
		SetCookie("hello", "hi cookie", response.WithMaxAge(60), response.WithDomain("example.com")).
		SetCookie("gone", "", response.WithMaxAge(-1)).
		SetContentString("hello")

	if err := b.Send(context.Background()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	res := w.Result()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if got := res.Header.Get("Content-Type"); got != "text/plain; charset=UTF-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := res.Header.Get("Cache-Control"); got != "max-age=0" {
		t.Errorf("Cache-Control = %q", got)
	}
	if _, ok := res.Header["X-Bare"]; !ok {
		t.Errorf("X-Bare header missing: %v", res.Header)
	}
	if got := w.Body.String(); got != "hello" {
		t.Errorf("body = %q", got)
	}

	cookies := map[string]*http.Cookie{}
	for _, c := range res.Cookies() {
		cookies[c.Name] = c
	}
	hello, ok := cookies["hello"]
	if !ok {
		t.Fatalf("hello cookie missing: %v", res.Header["Set-Cookie"])
	}
	if hello.Value != "hi cookie" || hello.MaxAge != 60 || hello.Path != "/" || hello.Domain != "example.com" || !hello.HttpOnly || hello.Secure {
		t.Errorf("unexpected hello cookie: %+v", hello)
	}
	if !hello.Expires.Equal(fixed.Add(time.Minute)) {
		t.Errorf("hello expires = %v", hello.Expires)
	}
	gone, ok := cookies["gone"]
	if !ok {
		t.Fatalf("gone cookie missing")
	}
	if gone.MaxAge >= 0 {
		t.Errorf("gone cookie MaxAge = %d, want negative", gone.MaxAge)
	}
}

func TestLocationRedirect(t *testing.T) {
	w := httptest.NewRecorder()
	b := response.New(New(w))
	b.SetHeader("Location", "/next")

	if err := b.Send(context.Background()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if got := w.Header().Get("Location"); got != "/next" {
		t.Fatalf("Location = %q", got)
	}
}

func TestAlreadySentAfterFinish(t *testing.T) {
	w := httptest.NewRecorder()
	sink := New(w)
	if sink.AlreadySent() {
		t.Fatal("fresh sink reports sent")
	}

	b := response.New(sink)
	if err := b.Send(context.Background()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !sink.AlreadySent() {
		t.Fatal("sink not marked sent after Send")
	}
	if !w.Flushed {
		t.Error("recorder was not flushed")
	}

	// A second response on the same sink cannot change the status line.
	b.SetStatusCode(http.StatusInternalServerError).SetContentString("late")
	if err := b.Send(context.Background()); err != nil {
		t.Fatalf("second Send: %v", err)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status changed to %d", w.Code)
	}
	if sink.WrittenStatusCode != http.StatusOK {
		t.Fatalf("WrittenStatusCode = %d", sink.WrittenStatusCode)
	}
}
