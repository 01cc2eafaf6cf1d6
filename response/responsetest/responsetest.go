// Package responsetest provides a recording response.Sink for tests.
package responsetest

import (
	"sync"

	"github.com/ggoodman/httpkit/response"
)

// Call kinds recorded by Recorder.
const (
	KindStatus = "status"
	KindHeader = "header"
	KindCookie = "cookie"
	KindBody   = "body"
	KindFinish = "finish"
)

// Call is one recorded sink invocation. Only the fields relevant to Kind
// are populated.
type Call struct {
	Kind    string
	Code    int
	Message string
	Name    string
	Value   string
	Cookie  response.Cookie
	Body    string
}

// Recorder implements response.Sink and response.Finisher by recording
// every call in order.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// Sent is returned by AlreadySent. Tests set it to exercise the
	// already-sent guard.
	Sent bool
	// CommitOnStatus makes WriteStatus flip Sent, mimicking a transport
	// that commits the status line immediately.
	CommitOnStatus bool
	// BodyErr, when set, is returned from WriteBody.
	BodyErr error
}

var _ response.Sink = (*Recorder)(nil)
var _ response.Finisher = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) WriteStatus(code int, message string) {
	r.record(Call{Kind: KindStatus, Code: code, Message: message})
	if r.CommitOnStatus {
		r.mu.Lock()
		r.Sent = true
		r.mu.Unlock()
	}
}

func (r *Recorder) WriteHeader(name, value string) {
	r.record(Call{Kind: KindHeader, Name: name, Value: value})
}

func (r *Recorder) WriteCookie(c response.Cookie) {
	r.record(Call{Kind: KindCookie, Cookie: c})
}

func (r *Recorder) WriteBody(p []byte) error {
	if r.BodyErr != nil {
		return r.BodyErr
	}
	r.record(Call{Kind: KindBody, Body: string(p)})
	return nil
}

func (r *Recorder) AlreadySent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Sent
}

func (r *Recorder) Finish() error {
	r.record(Call{Kind: KindFinish})
	return nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Kinds returns the Kind of every recorded call, in order.
func (r *Recorder) Kinds() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Kind
	}
	return out
}

// Status returns the last recorded status code, or 0.
func (r *Recorder) Status() int {
	code := 0
	for _, c := range r.Calls() {
		if c.Kind == KindStatus {
			code = c.Code
		}
	}
	return code
}

// Reset discards recorded calls and clears Sent.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.Sent = false
	r.mu.Unlock()
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}
