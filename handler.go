// Package httpkit binds a response.Builder and a sessions.Session to every
// request served through net/http.
//
// The Handler reads the session cookie, hands the request to a HandlerFunc
// together with a fresh Session and Builder, writes the session cookie back
// when the session was created, regenerated or purged, and finally sends the
// response.
//
//	cfg, _ := httpkit.LoadConfig()
//	backend, closer, _ := cfg.NewBackend()
//	defer closer.Close()
//	h := httpkit.NewHandler(cfg, backend, func(c *httpkit.Context) error {
//		if err := c.Session.Start(c.Context()); err != nil {
//			return err
//		}
//		c.Render(http.StatusOK, "text/plain", []byte("hello"))
//		return nil
//	})
//	http.ListenAndServe(":8080", h)
package httpkit

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ggoodman/httpkit/internal/logctx"
	"github.com/ggoodman/httpkit/response"
	"github.com/ggoodman/httpkit/response/httpsink"
	"github.com/ggoodman/httpkit/sessions"
	"github.com/google/uuid"
)

var (
	_ http.Handler = (*Handler)(nil)
)

const requestIDHeader = "X-Request-Id"

// HandlerFunc serves one request. A returned error turns the response into
// a plain 500.
type HandlerFunc func(c *Context) error

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	logger       *slog.Logger
	valueEncoder response.ValueEncoder
}

// WithLogger sets the slog logger used by the handler. If not provided, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithCookieValueEncoder installs a hook applied to every outgoing cookie
// value, including the session cookie.
func WithCookieValueEncoder(enc response.ValueEncoder) Option {
	return func(c *newConfig) { c.valueEncoder = enc }
}

// Handler implements http.Handler on top of a HandlerFunc.
type Handler struct {
	cfg     Config
	backend sessions.Backend
	fn      HandlerFunc
	log     *slog.Logger
	encoder response.ValueEncoder
}

// NewHandler creates a Handler serving fn with sessions stored in backend.
func NewHandler(cfg Config, backend sessions.Backend, fn HandlerFunc, opts ...Option) *Handler {
	nc := &newConfig{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		valueEncoder: response.PassthroughEncoder,
	}
	for _, opt := range opts {
		opt(nc)
	}
	if cfg.SessionName == "" {
		cfg.SessionName = sessions.DefaultName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = response.DefaultCookiePath
	}

	return &Handler{
		cfg:     cfg,
		backend: backend,
		fn:      fn,
		log:     slog.New(logctx.Handler{Handler: nc.logger.Handler()}),
		encoder: nc.valueEncoder,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	reqID := r.Header.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  reqID,
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})

	var cookieID string
	if ck, err := r.Cookie(h.cfg.SessionName); err == nil {
		cookieID = ck.Value
	}
	sd := &logctx.SessionData{SessionID: cookieID, Name: h.cfg.SessionName}
	ctx = logctx.WithSessionData(ctx, sd)

	h.log.DebugContext(ctx, "http.request.start")

	sess := sessions.New(h.backend,
		sessions.WithName(h.cfg.SessionName),
		sessions.WithID(cookieID),
		sessions.WithLogger(h.log),
	)
	res := response.New(httpsink.New(w),
		response.WithLogger(h.log),
		response.WithValueEncoder(h.encoder),
	)
	res.SetHeader(requestIDHeader, reqID)

	c := &Context{
		Request:  r.WithContext(ctx),
		Response: res,
		Session:  sess,
		Logger:   h.log,
	}

	if err := h.fn(c); err != nil {
		h.log.ErrorContext(ctx, "http.handler.fail", slog.String("err", err.Error()))
		res.Reset()
		res.SetHeader(requestIDHeader, reqID)
		res.SetStatusCode(http.StatusInternalServerError).
			SetContentType("text/plain").
			SetContentString(http.StatusText(http.StatusInternalServerError))
	}

	h.syncSessionCookie(sess, cookieID, res)
	sd.SessionID = sess.ID()

	status, _ := res.StatusCode()
	if err := res.Send(ctx); err != nil {
		h.log.ErrorContext(ctx, "http.response.send.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "http.request.ok", slog.Int("status", status), slog.Duration("dur", time.Since(start)))
}

// syncSessionCookie issues the session cookie when the client does not hold
// the current ID, and expires it when the session was purged.
func (h *Handler) syncSessionCookie(sess *sessions.Session, cookieID string, res *response.Builder) {
	id := sess.ID()
	switch {
	case sess.IsStarted() && id != cookieID:
		res.SetCookie(h.cfg.SessionName, id, h.cookieOptions(h.cfg.CookieMaxAge)...)
	case !sess.IsStarted() && id == "" && cookieID != "":
		res.SetCookie(h.cfg.SessionName, "", h.cookieOptions(-1)...)
	}
}

func (h *Handler) cookieOptions(maxAge int) []response.CookieOption {
	return []response.CookieOption{
		response.WithMaxAge(maxAge),
		response.WithPath(h.cfg.CookiePath),
		response.WithDomain(h.cfg.CookieDomain),
		response.WithSecure(h.cfg.CookieSecure),
		response.WithHTTPOnly(true),
	}
}
