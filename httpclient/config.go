package httpclient

import (
	"time"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/security"
)

const (
	defaultTimeout             = 60 * time.Second
	defaultMaxIdleConnsPerHost = 16
)

// Config configures the HTTP transport.
type Config struct {
	// Timeout bounds a non-streaming request including reading the body.
	// Streaming requests are bounded by their context only. Defaults to 60s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// TLS configures TLS settings for the HTTP transport.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// MaxIdleConnsPerHost sizes the connection pool. Defaults to 16.
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host"`

	// DisableHTTP2 keeps the transport on HTTP/1.1.
	DisableHTTP2 bool `yaml:"disable_http2" mapstructure:"disable_http2"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.Configuration("httpclient: timeout must be positive")
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	return nil
}
