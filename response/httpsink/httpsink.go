// Package httpsink adapts an http.ResponseWriter to response.Sink.
//
// net/http commits headers on the first call to WriteHeader, while a
// response.Builder writes the status before headers and cookies. The sink
// therefore buffers the status and commits it right before the first body
// byte, or on Finish.
package httpsink

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ggoodman/httpkit/response"
)

var _ response.Sink = (*Sink)(nil)
var _ response.Finisher = (*Sink)(nil)

// Sink writes a response into an http.ResponseWriter.
type Sink struct {
	w   http.ResponseWriter
	now func() time.Time

	statusCode        int
	WriteHeaderCalled bool
	WrittenStatusCode int
}

// New wraps w.
func New(w http.ResponseWriter) *Sink {
	return &Sink{w: w, now: time.Now, statusCode: http.StatusOK}
}

// WriteStatus buffers the status code. net/http derives the reason phrase
// from the code, so message is not transmitted.
func (s *Sink) WriteStatus(code int, message string) {
	s.statusCode = code
}

// WriteHeader sets name to value. A bare header of the form "Name: value"
// is split into its parts; any other bare header is sent with an empty
// value.
func (s *Sink) WriteHeader(name, value string) {
	if value == "" {
		if n, v, ok := strings.Cut(name, ":"); ok {
			name, value = strings.TrimSpace(n), strings.TrimSpace(v)
		}
	}
	s.w.Header().Set(name, value)
}

// WriteCookie adds a Set-Cookie header.
func (s *Sink) WriteCookie(c response.Cookie) {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	switch {
	case c.MaxAge > 0:
		hc.MaxAge = c.MaxAge
		hc.Expires = s.now().Add(time.Duration(c.MaxAge) * time.Second).UTC()
	case c.MaxAge < 0:
		hc.MaxAge = -1
		hc.Expires = time.Unix(0, 0).UTC()
	}
	http.SetCookie(s.w, hc)
}

// WriteBody commits the status, if needed, and writes p.
func (s *Sink) WriteBody(p []byte) error {
	s.commit()
	if _, err := s.w.Write(p); err != nil {
		return fmt.Errorf("http response writer write: %w", err)
	}
	return nil
}

// AlreadySent reports whether the status line has been committed.
func (s *Sink) AlreadySent() bool {
	return s.WriteHeaderCalled
}

// Finish commits the status, if needed, and flushes buffered data to the
// client when the underlying writer supports it.
func (s *Sink) Finish() error {
	s.commit()
	if err := http.NewResponseController(s.w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (s *Sink) commit() {
	if s.WriteHeaderCalled {
		return
	}
	s.WriteHeaderCalled = true
	s.WrittenStatusCode = s.statusCode
	s.w.WriteHeader(s.statusCode)
}
