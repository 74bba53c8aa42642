// Package config loads the host tool's TOML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like
// "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds the host tool settings. The firmware side has no
// configuration surface beyond compiled-in pin assignments and timing
// constants; everything here concerns the host's side of the link.
type Config struct {
	// Port is the serial device path. Empty means autodetect an
	// attached Arduino.
	Port string `toml:"port"`

	// Baud is the serial line rate.
	Baud int `toml:"baud"`

	// ChunkSize is the payload size for outbound load frames.
	ChunkSize int `toml:"chunk_size"`

	// ReadTimeout bounds session inactivity: how long a blocking read
	// waits before the session is considered dead.
	ReadTimeout Duration `toml:"read_timeout"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `toml:"log_level"`
}

// Default returns the settings used when no config file is present.
func Default() Config {
	return Config{
		Baud:        115200,
		ChunkSize:   62,
		ReadTimeout: Duration(120 * time.Second),
		LogLevel:    "info",
	}
}

// Load reads the TOML file at path, filling unset fields with defaults.
// A missing file is not an error and yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", cfg.Baud)
	}
	if cfg.ChunkSize < 1 || cfg.ChunkSize > 63 {
		return fmt.Errorf("chunk_size must be in [1, 63], got %d", cfg.ChunkSize)
	}
	if cfg.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must not be negative")
	}
	return nil
}
