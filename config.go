package tarantool

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tarantool-go/tarantool/wire"
)

// Default connection parameters, matching the server's own published
// defaults.
const (
	DefaultHost           = "localhost"
	DefaultPort           = 3301
	DefaultUser           = "admin"
	DefaultPassword       = "password"
	DefaultConnectTimeout = 1000 * time.Millisecond
	DefaultReadTimeout    = 1000 * time.Millisecond
	DefaultRequestTimeout = 2000 * time.Millisecond
)

// Credentials holds a Tarantool user's login and password. Both fields
// are immutable once a Credentials value is constructed and passed into
// a ClientConfig.
type Credentials struct {
	Username string
	Password string
}

// ClientConfig holds everything needed to dial and authenticate a single
// connection. It is immutable after NewClient validates and copies it.
type ClientConfig struct {
	Host string
	Port int

	Credentials Credentials

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	RequestTimeout time.Duration

	// ObjectMapper/ValueMapper override how space operations encode
	// request tuples and decode response tuples. A nil ValueMapper means
	// wire.NewDefaultMapper(); a nil ObjectMapper means the ValueMapper
	// in effect.
	ObjectMapper wire.ObjectMapper
	ValueMapper  *wire.Registry

	// Logger receives connection lifecycle and protocol diagnostics.
	// Nil means slog.Default().
	Logger *slog.Logger

	// Breaker configures the circuit breaker guarding the write path.
	// Nil disables the breaker entirely (every dispatch is attempted).
	Breaker *gobreaker.Settings
}

// withDefaults returns a copy of c with every zero-valued field replaced
// by its documented default.
func (c ClientConfig) withDefaults() ClientConfig {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Credentials.Username == "" {
		c.Credentials.Username = DefaultUser
	}
	if c.Credentials.Password == "" {
		c.Credentials.Password = DefaultPassword
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ValueMapper == nil {
		c.ValueMapper = wire.NewDefaultMapper()
	}
	if c.ObjectMapper == nil {
		c.ObjectMapper = c.ValueMapper
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Validate reports a ConfigurationError for any field that cannot be
// made sense of even after defaults are applied.
func (c ClientConfig) Validate() error {
	if c.ConnectTimeout < 0 || c.ReadTimeout < 0 || c.RequestTimeout < 0 {
		return &ConfigurationError{Message: "timeouts must be positive"}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &ConfigurationError{Message: "port out of range"}
	}
	return nil
}
