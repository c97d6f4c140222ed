package sdk

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ChiaYuChang/sharpai/pkgs/errors"
	"github.com/ChiaYuChang/sharpai/pkgs/utils"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// DefaultTimeoutMs is the response timeout applied when none is configured.
const DefaultTimeoutMs = 300000

var validate = validator.New(validator.WithRequiredStructEnabled())

// Credentials are used to derive a Basic authorization header.
type Credentials struct {
	Email    string `json:"email"    mapstructure:"email"`
	Password string `json:"password" mapstructure:"password"`
}

// Settings is the user-facing input to NewConfiguration. When both
// BearerToken and BasicAuth are set, BasicAuth is applied last and wins.
type Settings struct {
	Endpoint    string       `json:"endpoint"     mapstructure:"endpoint"     validate:"required,url"`
	BearerToken string       `json:"bearer_token" mapstructure:"bearer_token"`
	BasicAuth   *Credentials `json:"basic_auth"   mapstructure:"basic_auth"`
	TimeoutMs   int          `json:"timeout_ms"   mapstructure:"timeout_ms"   validate:"gte=0"`
	LogLevel    string       `json:"log_level"    mapstructure:"log_level"    validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
}

// Configuration is an immutable snapshot of the client settings. The With*
// methods return an updated copy and leave the receiver untouched, so a
// snapshot loaded at the start of a call stays consistent for its duration.
type Configuration struct {
	endpoint    string
	bearerToken string
	basicAuth   *Credentials
	headers     http.Header
	timeoutMs   int
	logLevel    zerolog.Level
}

// NewConfiguration validates s and builds the first configuration snapshot.
func NewConfiguration(s Settings) (*Configuration, error) {
	if strings.TrimSpace(s.Endpoint) == "" {
		return nil, errors.ArgumentNull("Endpoint")
	}

	if err := validate.Struct(s); err != nil {
		return nil, errors.InvalidArgument("invalid settings").
			WithDetails(err.Error()).
			Warp(err)
	}

	level, err := ParseLogLevel(s.LogLevel)
	if err != nil {
		return nil, err
	}

	c := &Configuration{
		endpoint:  utils.EnsureSuffix(s.Endpoint, "/"),
		headers:   http.Header{},
		timeoutMs: utils.DefaultIfZero(s.TimeoutMs, DefaultTimeoutMs),
		logLevel:  level,
	}

	if s.BearerToken != "" {
		if c, err = c.WithBearerToken(s.BearerToken); err != nil {
			return nil, err
		}
	}

	if s.BasicAuth != nil {
		if c, err = c.WithBasicAuth(s.BasicAuth); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ParseLogLevel maps a level name to a zerolog level. An empty name means
// everything is logged.
func ParseLogLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.TraceLevel, nil
	}

	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.NoLevel, errors.InvalidArgument(fmt.Sprintf("unknown log level %q", name)).Warp(err)
	}
	return level, nil
}

func (c *Configuration) clone() *Configuration {
	cp := *c
	cp.headers = c.headers.Clone()
	if c.basicAuth != nil {
		cred := *c.basicAuth
		cp.basicAuth = &cred
	}
	return &cp
}

// WithBearerToken replaces the authorization header with a bearer token.
func (c *Configuration) WithBearerToken(token string) (*Configuration, error) {
	if token == "" {
		return nil, errors.ArgumentNull("BearerToken")
	}

	cp := c.clone()
	cp.bearerToken = token
	cp.basicAuth = nil
	cp.headers.Set(HeaderAuthorization, BearerAuthHeader(token))
	return cp, nil
}

// WithBasicAuth replaces the authorization header with Basic credentials.
func (c *Configuration) WithBasicAuth(cred *Credentials) (*Configuration, error) {
	if cred == nil {
		return nil, errors.ArgumentNull("BasicAuth")
	}

	cp := c.clone()
	stored := *cred
	cp.basicAuth = &stored
	cp.bearerToken = ""
	cp.headers.Set(HeaderAuthorization, BasicAuthHeader(cred.Email, cred.Password))
	return cp, nil
}

func (c *Configuration) WithEndpoint(endpoint string) (*Configuration, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.ArgumentNull("Endpoint")
	}

	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() {
		return nil, errors.InvalidArgument(fmt.Sprintf("endpoint %q is not an absolute URL", endpoint)).Warp(err)
	}

	cp := c.clone()
	cp.endpoint = utils.EnsureSuffix(endpoint, "/")
	return cp, nil
}

func (c *Configuration) WithTimeoutMs(ms int) (*Configuration, error) {
	if ms < 1 {
		return nil, errors.InvalidArgument("TimeoutMs must be greater than 0.")
	}

	cp := c.clone()
	cp.timeoutMs = ms
	return cp, nil
}

func (c *Configuration) WithLogLevel(level zerolog.Level) *Configuration {
	cp := c.clone()
	cp.logLevel = level
	return cp
}

// WithHeader adds a default header sent on every call. Setting the
// Authorization header this way overrides the configured credentials.
func (c *Configuration) WithHeader(key, value string) *Configuration {
	cp := c.clone()
	cp.headers.Set(key, value)
	return cp
}

// Endpoint returns the base URL, always ending with a slash.
func (c *Configuration) Endpoint() string {
	return c.endpoint
}

func (c *Configuration) BearerToken() string {
	return c.bearerToken
}

func (c *Configuration) BasicAuth() *Credentials {
	if c.basicAuth == nil {
		return nil
	}
	cred := *c.basicAuth
	return &cred
}

// Headers returns a copy of the default headers.
func (c *Configuration) Headers() http.Header {
	return c.headers.Clone()
}

func (c *Configuration) TimeoutMs() int {
	return c.timeoutMs
}

func (c *Configuration) Timeout() time.Duration {
	return time.Duration(c.timeoutMs) * time.Millisecond
}

func (c *Configuration) LogLevel() zerolog.Level {
	return c.logLevel
}

// MarshalZerologObject logs the configuration with credentials masked.
func (c *Configuration) MarshalZerologObject(e *zerolog.Event) {
	e.Str("endpoint", c.endpoint).
		Int("timeout_ms", c.timeoutMs).
		Str("log_level", c.logLevel.String())
	if c.bearerToken != "" {
		e.Str("bearer_token", utils.Mask(c.bearerToken))
	}
	if c.basicAuth != nil {
		e.Str("email", c.basicAuth.Email).
			Str("password", utils.Mask(c.basicAuth.Password))
	}
}
