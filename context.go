package httpkit

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/httpkit/response"
	"github.com/ggoodman/httpkit/sessions"
)

// Context carries the per-request state handed to a HandlerFunc.
type Context struct {
	Request  *http.Request
	Response *response.Builder
	Session  *sessions.Session
	Logger   *slog.Logger
}

// Context returns the request context, decorated with logging data.
func (c *Context) Context() context.Context {
	return c.Request.Context()
}

// Negotiate returns the offer that best matches the request's Accept header,
// or "" when none is acceptable.
func (c *Context) Negotiate(offers ...string) string {
	available := make([]contenttype.MediaType, 0, len(offers))
	for _, o := range offers {
		available = append(available, contenttype.NewMediaType(o))
	}
	accepted, _, err := contenttype.GetAcceptableMediaType(c.Request, available)
	if err != nil {
		return ""
	}
	return accepted.Type + "/" + accepted.Subtype
}

// RequestIs reports whether the request body is declared as mediaType.
func (c *Context) RequestIs(mediaType string) bool {
	ctype, err := contenttype.GetMediaType(c.Request)
	if err != nil {
		return false
	}
	return ctype.Matches(contenttype.NewMediaType(mediaType))
}

// Render sets the status, content type and body of the response.
func (c *Context) Render(code int, contentType string, body []byte) {
	c.Response.SetStatusCode(code).SetContentType(contentType).SetContent(body)
}

// Redirect points the client at url. A response still at 200 goes out as
// 302 Found.
func (c *Context) Redirect(url string) {
	c.Response.SetHeader("Location", url)
}
