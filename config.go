package httpkit

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ggoodman/httpkit/sessions"
	"github.com/ggoodman/httpkit/sessions/memoryhost"
	"github.com/ggoodman/httpkit/sessions/redishost"
	"github.com/joeshaw/envdecode"
)

// Session backends selectable through Config.SessionBackend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ErrUnknownBackend is returned by Config.NewBackend for an unsupported
// SessionBackend value.
var ErrUnknownBackend = errors.New("unknown session backend")

// Config controls the session cookie and backend used by Handler. Defaults
// can be loaded via envdecode.
type Config struct {
	// SessionName is the cookie carrying the session ID. ENV: SESSION_NAME
	SessionName string `env:"SESSION_NAME,default=GOSESSID"`
	// SessionBackend is "memory" or "redis". ENV: SESSION_BACKEND
	SessionBackend string `env:"SESSION_BACKEND,default=memory"`
	// SessionTTL is the idle lifetime of a stored session. ENV: SESSION_TTL
	SessionTTL time.Duration `env:"SESSION_TTL,default=24h"`

	// CookiePath ENV: SESSION_COOKIE_PATH
	CookiePath string `env:"SESSION_COOKIE_PATH,default=/"`
	// CookieDomain ENV: SESSION_COOKIE_DOMAIN
	CookieDomain string `env:"SESSION_COOKIE_DOMAIN"`
	// CookieSecure ENV: SESSION_COOKIE_SECURE
	CookieSecure bool `env:"SESSION_COOKIE_SECURE,default=false"`
	// CookieMaxAge in seconds; 0 keeps the cookie for the browser session.
	// ENV: SESSION_COOKIE_MAX_AGE
	CookieMaxAge int `env:"SESSION_COOKIE_MAX_AGE,default=0"`

	Redis redishost.Config
}

// DefaultConfig returns the configuration used when nothing is set in the
// environment.
func DefaultConfig() Config {
	return Config{
		SessionName:    sessions.DefaultName,
		SessionBackend: BackendMemory,
		SessionTTL:     24 * time.Hour,
		CookiePath:     "/",
	}
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// NewBackend builds the configured session backend along with a closer that
// releases its resources.
func (c Config) NewBackend() (sessions.Backend, io.Closer, error) {
	switch c.SessionBackend {
	case "", BackendMemory:
		return memoryhost.New(memoryhost.WithTTL(c.SessionTTL)), io.NopCloser(nil), nil
	case BackendRedis:
		rc := c.Redis
		if c.SessionTTL > 0 {
			rc.TTL = c.SessionTTL
		}
		h, err := redishost.New(rc)
		if err != nil {
			return nil, nil, fmt.Errorf("redis session backend: %w", err)
		}
		return h, h, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, c.SessionBackend)
	}
}
