package response

// Cookie is a single Set-Cookie record held by a Builder.
type Cookie struct {
	Name  string
	Value string
	// MaxAge is relative to the time the cookie is sent, in seconds. Zero
	// means a session cookie; a negative value asks the client to delete it.
	MaxAge   int
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
}

// Cookie defaults applied before any CookieOption.
const (
	DefaultCookiePath = "/"
)

// CookieOption adjusts a cookie record built by SetCookie.
type CookieOption func(*Cookie)

// NewCookie builds a cookie from the defaults and the given options. Options
// never see a previous record of the same name.
func NewCookie(name, value string, opts ...CookieOption) Cookie {
	c := Cookie{
		Name:     name,
		Value:    value,
		Path:     DefaultCookiePath,
		HTTPOnly: true,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithMaxAge sets the cookie lifetime in seconds relative to now.
func WithMaxAge(seconds int) CookieOption {
	return func(c *Cookie) { c.MaxAge = seconds }
}

// WithPath sets the cookie path.
func WithPath(path string) CookieOption {
	return func(c *Cookie) { c.Path = path }
}

// WithDomain sets the cookie domain.
func WithDomain(domain string) CookieOption {
	return func(c *Cookie) { c.Domain = domain }
}

// WithSecure restricts the cookie to secure transports.
func WithSecure(secure bool) CookieOption {
	return func(c *Cookie) { c.Secure = secure }
}

// WithHTTPOnly controls whether scripts may read the cookie.
func WithHTTPOnly(httpOnly bool) CookieOption {
	return func(c *Cookie) { c.HTTPOnly = httpOnly }
}

// ValueEncoder transforms a cookie value right before it is handed to the
// sink.
type ValueEncoder interface {
	EncodeValue(name, value string) (string, error)
}

// ValueEncoderFunc adapts a function to ValueEncoder.
type ValueEncoderFunc func(name, value string) (string, error)

func (f ValueEncoderFunc) EncodeValue(name, value string) (string, error) {
	return f(name, value)
}

// PassthroughEncoder returns cookie values unchanged.
var PassthroughEncoder ValueEncoder = ValueEncoderFunc(func(_, value string) (string, error) {
	return value, nil
})
