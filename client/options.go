package client

import (
	"github.com/rs/zerolog"

	"github.com/erikvanzijst/eeprom/protocol"
)

// DefaultChunkSize is the payload size used for outbound load frames. One
// below the protocol maximum: the device's bulk-receive path historically
// reserves a byte of framing headroom, and staying a byte short keeps the
// client compatible with devices on either side of that discrepancy.
const DefaultChunkSize = protocol.MaxPayload - 1

// Progress describes the state of a streamed operation. Passed to the
// ProgressFunc after every completed frame.
type Progress struct {
	// Operation is "dump", "load" or "verify".
	Operation string

	// Done and Total are byte counts.
	Done  int
	Total int
}

// ProgressFunc is called periodically during streamed operations.
// Implementations should return quickly; the device is holding the
// session open while the callback runs.
type ProgressFunc func(Progress)

// Config holds the client configuration.
type Config struct {
	// ChunkSize is the maximum payload per outbound load frame.
	ChunkSize int

	// Progress is invoked after every streamed frame (optional).
	Progress ProgressFunc

	// Logger receives structured operational logs.
	Logger zerolog.Logger
}

func defaultConfig() Config {
	return Config{
		ChunkSize: DefaultChunkSize,
		Logger:    zerolog.Nop(),
	}
}

// Option is a functional option for configuring the Client.
type Option func(*Config)

// WithChunkSize sets the payload size for outbound load frames. Values
// outside [1, protocol.MaxPayload] are ignored.
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size >= 1 && size <= protocol.MaxPayload {
			c.ChunkSize = size
		}
	}
}

// WithProgress sets a callback tracking streamed operations.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) {
		c.Progress = fn
	}
}

// WithLogger sets the logger for operational logs.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
