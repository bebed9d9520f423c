// Package config holds server configuration assembled from defaults, an
// optional YAML file, environment variables and command-line flags, in
// that precedence order (flags win).
package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "3s" or "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "duration %q", s)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all application configuration.
type Config struct {
	// Addr is the listen address, host:port.
	Addr string `yaml:"addr"`

	// TLSCert/TLSKey enable TLS when both are set.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`

	// MaxConnections caps concurrently served connections; 0 is unlimited.
	MaxConnections int `yaml:"max_connections"`

	// ReadBufferSize is the per-session read chunk size in bytes.
	ReadBufferSize int `yaml:"read_buffer_size"`

	// MaxFrameSize bounds a single Fast frame body in bytes.
	MaxFrameSize int `yaml:"max_frame_size"`

	// Workers sizes the Fast dispatch worker pool.
	Workers int `yaml:"workers"`

	// StaticRoot serves files for unrouted HTTP requests when non-empty.
	StaticRoot string `yaml:"static_root"`

	// HandshakeTimeout bounds the TLS handshake.
	HandshakeTimeout Duration `yaml:"handshake_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:             ":8712",
		MaxFrameSize:     4 << 20,
		HandshakeTimeout: Duration(10 * time.Second),
		ShutdownTimeout:  Duration(15 * time.Second),
	}
}

// Secure reports whether TLS is configured.
func (c *Config) Secure() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.MaxFrameSize <= 0 {
		return errors.New("max_frame_size must be positive")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("tls_cert and tls_key must be set together")
	}
	return nil
}

// LoadFile overlays the YAML file at path onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// FromEnv overlays NETWORKSOCKET_* environment variables onto c.
func (c *Config) FromEnv() {
	if v := os.Getenv("NETWORKSOCKET_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("NETWORKSOCKET_TLS_CERT"); v != "" {
		c.TLSCert = v
	}
	if v := os.Getenv("NETWORKSOCKET_TLS_KEY"); v != "" {
		c.TLSKey = v
	}
	if v := os.Getenv("NETWORKSOCKET_STATIC_ROOT"); v != "" {
		c.StaticRoot = v
	}
	if v := os.Getenv("NETWORKSOCKET_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConnections = n
		}
	}
	if v := os.Getenv("NETWORKSOCKET_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
}

// BindFlags registers flags that override c on fs.Parse.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	fs.StringVar(&c.TLSCert, "tls-cert", c.TLSCert, "TLS certificate file")
	fs.StringVar(&c.TLSKey, "tls-key", c.TLSKey, "TLS key file")
	fs.IntVar(&c.MaxConnections, "max-connections", c.MaxConnections, "max concurrent connections (0 = unlimited)")
	fs.IntVar(&c.Workers, "workers", c.Workers, "dispatch worker count (0 = NumCPU)")
	fs.StringVar(&c.StaticRoot, "static-root", c.StaticRoot, "static file root directory")
}

// Load assembles the effective configuration: defaults, then the YAML file
// at path (if non-empty), then environment variables. Flag binding is left
// to the caller so it can own the FlagSet.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
