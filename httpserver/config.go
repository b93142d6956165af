package httpserver

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "250ms" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("httpserver: invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds the transport-level settings of a server. The zero value
// is usable; see the field comments for defaults.
type Config struct {
	// Addr is the listen address. Defaults to ":8080".
	Addr string `yaml:"addr"`

	// ReadTimeout bounds reading the request head and body.
	ReadTimeout Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing the response.
	WriteTimeout Duration `yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive waits between requests.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds the graceful drain on shutdown.
	// Defaults to 10s.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// Debug enables debug error responses on the application.
	Debug bool `yaml:"debug"`

	// TrustedHosts feeds the TrustedHost middleware when set.
	TrustedHosts []string `yaml:"trusted_hosts"`

	// AllowedOrigins feeds the CORS middleware when set.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoadConfig reads a YAML config file. Unknown keys are rejected so typos
// fail loudly instead of silently falling back to defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("httpserver: read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("httpserver: parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = Duration(10 * time.Second)
	}
}
