// Package periphgpio binds hal.Pin to periph.io GPIO pins for running the
// firmware on real hardware.
package periphgpio

import (
	"sync"

	"periph.io/x/conn/v3/gpio"

	"github.com/erikvanzijst/eeprom/hal"
)

// Pin adapts a periph.io gpio.PinIO to hal.Pin.
//
// hal.Pin has no error returns, so pin failures are latched and can be
// inspected with Err after a sequence of operations.
type Pin struct {
	mu   sync.Mutex
	pin  gpio.PinIO
	mode hal.Mode
	err  error
}

// Wrap returns a hal.Pin backed by the given periph.io pin. The pin starts
// in Input mode.
func Wrap(p gpio.PinIO) *Pin {
	w := &Pin{pin: p}
	w.SetMode(hal.Input)
	return w
}

func (p *Pin) SetMode(m hal.Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = m
	if m == hal.Input {
		p.latch(p.pin.In(gpio.PullNoChange, gpio.NoEdge))
	}
	// Output mode is established lazily by the first Write; periph drives
	// the line as a side effect of Out.
}

func (p *Pin) Write(l hal.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latch(p.pin.Out(gpio.Level(l)))
}

func (p *Pin) Read() hal.Level {
	return hal.Level(p.pin.Read())
}

// Err returns the first error encountered by this pin since the last call
// to Err, and clears it.
func (p *Pin) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.err
	p.err = nil
	return err
}

func (p *Pin) latch(err error) {
	if p.err == nil && err != nil {
		p.err = err
	}
}
