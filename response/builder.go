// Package response assembles a single outgoing HTTP response (status,
// headers, cookies and body) and emits it through a Sink.
//
// A Builder is reusable: Send resets it to its defaults once the response
// has been handed to the sink, so one instance can serve a long-running
// worker that handles many requests in sequence.
//
//	b := response.New(httpsink.New(w))
//	b.SetStatusCode(http.StatusOK).
//		SetContentType("text/plain").
//		SetCookie("hello", "hi cookie", response.WithMaxAge(60)).
//		SetHeader("Cache-Control", "max-age=0").
//		SetContentString("hello")
//	if err := b.Send(ctx); err != nil {
//		// ...
//	}
package response

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// DefaultStatusCode is the status a fresh or reset Builder carries.
	DefaultStatusCode = http.StatusOK
	// DefaultCharset is appended by SetContentType when no charset is given.
	DefaultCharset = "UTF-8"

	headerContentType = "Content-Type"
	headerLocation    = "Location"
)

// Header is one entry of the ordered header set.
type Header struct {
	Name  string
	Value string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used by the builder. If not provided, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// WithValueEncoder installs the hook applied to every cookie value on send.
func WithValueEncoder(enc ValueEncoder) Option {
	return func(b *Builder) { b.encoder = enc }
}

// WithContent seeds the body of the first response.
func WithContent(p []byte) Option {
	return func(b *Builder) { b.content = p }
}

// WithStatus seeds the status of the first response.
func WithStatus(code int, message string) Option {
	return func(b *Builder) { b.code, b.message = code, message }
}

// Builder accumulates the parts of a response. It is not safe for
// concurrent use.
type Builder struct {
	sink    Sink
	log     *slog.Logger
	encoder ValueEncoder

	code        int
	message     string
	content     []byte
	contentType string

	headerOrder []string
	headers     map[string]string

	cookieOrder []string
	cookies     map[string]Cookie
}

// New creates a Builder emitting into sink.
func New(sink Sink, opts ...Option) *Builder {
	b := &Builder{
		sink:    sink,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		encoder: PassthroughEncoder,
	}
	b.Reset()
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetStatusCode sets the status code and optional reason phrase. The code is
// not validated.
func (b *Builder) SetStatusCode(code int, message ...string) *Builder {
	b.code = code
	b.message = ""
	if len(message) > 0 {
		b.message = message[0]
	}
	return b
}

// StatusCode returns the current status code and reason phrase.
func (b *Builder) StatusCode() (int, string) {
	return b.code, b.message
}

// SetContentType records the media type and writes the composite
// Content-Type header. charset defaults to UTF-8.
func (b *Builder) SetContentType(contentType string, charset ...string) *Builder {
	cs := DefaultCharset
	if len(charset) > 0 {
		cs = charset[0]
	}
	b.contentType = contentType
	b.SetHeader(headerContentType, fmt.Sprintf("%s; charset=%s", contentType, cs))
	return b
}

// ContentType returns the media type passed to SetContentType, or "".
func (b *Builder) ContentType() string {
	return b.contentType
}

// SetContent replaces the body. A nil slice means no body.
func (b *Builder) SetContent(p []byte) *Builder {
	b.content = p
	return b
}

// SetContentString replaces the body with s.
func (b *Builder) SetContentString(s string) *Builder {
	b.content = []byte(s)
	return b
}

// Content returns the current body.
func (b *Builder) Content() []byte {
	return b.content
}

// SetCookie stores a cookie built from the defaults and opts, replacing any
// cookie previously set under the same name.
func (b *Builder) SetCookie(name, value string, opts ...CookieOption) *Builder {
	c := NewCookie(name, value, opts...)
	if _, ok := b.cookies[c.Name]; !ok {
		b.cookieOrder = append(b.cookieOrder, c.Name)
	}
	b.cookies[c.Name] = c
	return b
}

// Cookies returns the stored cookies in the order their names were first set.
func (b *Builder) Cookies() []Cookie {
	out := make([]Cookie, 0, len(b.cookieOrder))
	for _, name := range b.cookieOrder {
		out = append(out, b.cookies[name])
	}
	return out
}

// SetHeader sets a header. Names are canonicalised; setting an existing name
// replaces its value but keeps its position. An empty name is ignored. An
// empty value is emitted as a bare header line.
func (b *Builder) SetHeader(name, value string) *Builder {
	if name == "" {
		b.log.Debug("response.header.ignored")
		return b
	}
	key := http.CanonicalHeaderKey(name)
	if _, ok := b.headers[key]; !ok {
		b.headerOrder = append(b.headerOrder, key)
	}
	b.headers[key] = value
	return b
}

// Header returns the value of a header and whether it is set.
func (b *Builder) Header(name string) (string, bool) {
	v, ok := b.headers[http.CanonicalHeaderKey(name)]
	return v, ok
}

// Headers returns the header set in insertion order.
func (b *Builder) Headers() []Header {
	out := make([]Header, 0, len(b.headerOrder))
	for _, name := range b.headerOrder {
		out = append(out, Header{Name: name, Value: b.headers[name]})
	}
	return out
}

// Send emits headers, cookies and body, asks the sink to finish the
// response when it can, and resets the builder. The reset happens even when
// emission fails, so anything needed after the response has gone out must be
// read before calling Send.
func (b *Builder) Send(ctx context.Context) error {
	defer b.Reset()

	if err := b.SendHeaders(ctx); err != nil {
		return err
	}
	if err := b.SendCookies(ctx); err != nil {
		return err
	}
	if err := b.SendContent(ctx); err != nil {
		return err
	}
	if f, ok := b.sink.(Finisher); ok {
		if err := f.Finish(); err != nil {
			b.log.ErrorContext(ctx, "response.finish.fail", slog.String("err", err.Error()))
			return fmt.Errorf("finish response: %w", err)
		}
	}
	b.log.DebugContext(ctx, "response.send.ok", slog.Int("status", b.code), slog.Int("bytes", len(b.content)))
	return nil
}

// SendHeaders writes the status line and headers. It does nothing if the
// sink has already committed headers. A Location header on a 200 response
// turns it into a 302.
func (b *Builder) SendHeaders(ctx context.Context) error {
	if b.sink.AlreadySent() {
		b.log.DebugContext(ctx, "response.headers.already_sent")
		return nil
	}

	if _, ok := b.headers[headerLocation]; ok && b.code == http.StatusOK {
		b.SetStatusCode(http.StatusFound)
	}

	b.sink.WriteStatus(b.code, b.message)
	for _, name := range b.headerOrder {
		b.sink.WriteHeader(name, b.headers[name])
	}
	return nil
}

// SendCookies writes one Set-Cookie per stored cookie. Values pass through
// the configured ValueEncoder.
func (b *Builder) SendCookies(ctx context.Context) error {
	for _, name := range b.cookieOrder {
		c := b.cookies[name]
		v, err := b.encoder.EncodeValue(c.Name, c.Value)
		if err != nil {
			b.log.ErrorContext(ctx, "response.cookie.encode.fail", slog.String("cookie", c.Name), slog.String("err", err.Error()))
			return fmt.Errorf("encode cookie %q: %w", c.Name, err)
		}
		c.Value = v
		b.sink.WriteCookie(c)
	}
	return nil
}

// SendContent writes the body, if any.
func (b *Builder) SendContent(ctx context.Context) error {
	if b.content == nil {
		return nil
	}
	if err := b.sink.WriteBody(b.content); err != nil {
		b.log.ErrorContext(ctx, "response.body.write.fail", slog.String("err", err.Error()))
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// Reset restores the builder to its defaults. The sink and options are kept.
func (b *Builder) Reset() {
	b.code = DefaultStatusCode
	b.message = ""
	b.content = nil
	b.contentType = ""
	b.headerOrder = nil
	b.headers = make(map[string]string)
	b.cookieOrder = nil
	b.cookies = make(map[string]Cookie)
}
