package firmware

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/erikvanzijst/eeprom/hal"
)

// Config holds the device configuration.
type Config struct {
	// Indicator is the activity LED. Lit while a command executes and
	// used to blink out errors. Defaults to hal.Discard.
	Indicator hal.Pin

	// Delayer provides the waits between bulk-load writes and the error
	// blink pattern. Defaults to hal.Sleeper.
	Delayer hal.Delayer

	// WriteCycleDelay is the pause after each byte written during a bulk
	// load, bounding the chip's worst-case internal write cycle.
	WriteCycleDelay time.Duration

	// BlinkInterval is the on and off time of one error blink cycle.
	BlinkInterval time.Duration

	// Logger receives structured operational logs.
	Logger zerolog.Logger
}

func defaultConfig() Config {
	return Config{
		Indicator:       hal.Discard,
		Delayer:         hal.Sleeper,
		WriteCycleDelay: DefaultWriteCycleDelay,
		BlinkInterval:   DefaultBlinkInterval,
		Logger:          zerolog.Nop(),
	}
}

// Option is a functional option for configuring the Device.
type Option func(*Config)

// WithIndicator sets the activity LED pin.
func WithIndicator(p hal.Pin) Option {
	return func(c *Config) {
		if p != nil {
			c.Indicator = p
		}
	}
}

// WithLogger sets the logger for operational logs.
//
// Example:
//
//	dev := firmware.New(port, bus, firmware.WithLogger(log.Logger))
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithDelayer replaces the real-time delayer. Tests use this to run the
// blink pattern and bulk-load pacing without sleeping.
func WithDelayer(d hal.Delayer) Option {
	return func(c *Config) {
		if d != nil {
			c.Delayer = d
		}
	}
}

// WithWriteCycleDelay sets the pause after each bulk-load byte write.
// Negative values are ignored.
func WithWriteCycleDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.WriteCycleDelay = d
		}
	}
}

// WithBlinkInterval sets the on and off time of one error blink cycle.
// Negative values are ignored.
func WithBlinkInterval(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.BlinkInterval = d
		}
	}
}
