package logctx

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerAddsGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(Handler{Handler: slog.NewTextHandler(&buf, nil)}).With(slog.String("component", "test"))

	sd := &SessionData{Name: "GOSESSID"}
	ctx := WithRequestData(context.Background(), &RequestData{RequestID: "r-1", Method: "GET", Path: "/"})
	ctx = WithSessionData(ctx, sd)

	sd.SessionID = "s-1"
	log.InfoContext(ctx, "hello")

	out := buf.String()
	for _, want := range []string{"component=test", "req.id=r-1", "req.method=GET", "sess.id=s-1", "sess.name=GOSESSID"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestHandlerWithoutContextData(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(Handler{Handler: slog.NewTextHandler(&buf, nil)})

	log.InfoContext(context.Background(), "plain")

	if out := buf.String(); strings.Contains(out, "req.") || strings.Contains(out, "sess.") {
		t.Fatalf("unexpected groups in %q", out)
	}
}
