// Package at28c256 implements the bus access layer for the AT28C256
// 32K x 8 parallel EEPROM.
//
// The chip's 8 data lines are shared between the controller and the EEPROM
// itself, so the package maintains an explicit bus mode (Standby, Read,
// Write) and guarantees that the two never drive the lines at the same
// time: every mode entry configures the data pin direction before touching
// the chip's output enable, and every discrete read or write ends back in
// Standby.
//
// The 15-bit address is not wired to the controller directly; it is
// clocked most-significant-bit first into an external 74HC595 shift
// register and latched onto the address bus.
//
// # Timing
//
// All signal pulses follow the same shape: assert, hold for the settle
// delay, deassert, hold again. The 10 microsecond minimum bounds the shift
// register's setup time and the EEPROM's write pulse width per the
// datasheets. The delay may be increased for slower parts but never
// reduced below the minimum.
package at28c256

import (
	"time"

	"github.com/erikvanzijst/eeprom/hal"
)

// Capacity is the addressable size of the AT28C256 in bytes.
const Capacity = 32768

// MinSettleDelay is the minimum hold time for every timed signal
// transition. Derived from the 74HC595 and AT28C256 datasheets; do not
// lower it without re-deriving it for the target parts.
const MinSettleDelay = 10 * time.Microsecond

// Mode is the current bus mode. Exactly one mode is active at any time.
type Mode int

const (
	// Standby releases the data lines and deselects the chip. This is
	// the safe state entered after every discrete operation.
	Standby Mode = iota

	// Read has the EEPROM driving the data lines.
	Read

	// Write has the controller driving the data lines.
	Write
)

func (m Mode) String() string {
	switch m {
	case Standby:
		return "standby"
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return "invalid"
}

// Pins is the set of digital lines the bus is wired to.
type Pins struct {
	// Data are the EEPROM's IO0-IO7 lines, least significant bit first.
	Data [8]hal.Pin

	// AT28C256 control lines, all active low except WriteEnable's idle
	// state which is high.
	ChipEnable   hal.Pin
	OutputEnable hal.Pin
	WriteEnable  hal.Pin

	// 74HC595 shift register lines.
	ShiftData  hal.Pin // serial data in (SER)
	ShiftClock hal.Pin // shift clock (SRCLK)
	LatchClock hal.Pin // storage register clock (RCLK)
}

// Bus drives a single AT28C256 through the Pins it was constructed with.
//
// Bus is not safe for concurrent use; the physical data and control lines
// are a single shared resource and exclusivity is structural (one thread
// of control).
type Bus struct {
	pins   Pins
	delay  hal.Delayer
	settle time.Duration
	mode   Mode
}

// Option is a functional option for configuring the Bus.
type Option func(*Bus)

// WithDelayer replaces the real-time delayer. Tests and the simulator use
// this to run timed pulse sequences without sleeping.
func WithDelayer(d hal.Delayer) Option {
	return func(b *Bus) {
		if d != nil {
			b.delay = d
		}
	}
}

// WithSettleDelay sets the hold time for timed signal transitions.
// Values below MinSettleDelay are clamped to the minimum.
func WithSettleDelay(d time.Duration) Option {
	return func(b *Bus) {
		if d < MinSettleDelay {
			d = MinSettleDelay
		}
		b.settle = d
	}
}

// New returns a Bus in Standby mode.
func New(pins Pins, opts ...Option) *Bus {
	b := &Bus{
		pins:   pins,
		delay:  hal.Sleeper,
		settle: MinSettleDelay,
		// Force the first EnterStandby to run unconditionally.
		mode: Write,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.EnterStandby()
	return b
}

// Mode returns the current bus mode.
func (b *Bus) Mode() Mode { return b.mode }

// EnterWrite switches the data lines to output and selects the chip with
// its own outputs disabled (CE low, OE high, WE idle high).
//
// Unconditional: the lines are re-asserted even if the bus is already in
// Write mode.
func (b *Bus) EnterWrite() {
	b.pins.ChipEnable.Write(hal.Low)
	b.pins.OutputEnable.Write(hal.High)
	b.pins.WriteEnable.Write(hal.High)

	for _, p := range b.pins.Data {
		p.SetMode(hal.Output)
	}

	b.delay.Delay(b.settle)
	b.mode = Write
}

// EnterRead releases the data lines and enables the EEPROM's outputs
// (CE low, OE low, WE high). No-op if the bus is already in Read mode.
func (b *Bus) EnterRead() {
	if b.mode == Read {
		return
	}
	for _, p := range b.pins.Data {
		p.SetMode(hal.Input)
	}

	b.pins.ChipEnable.Write(hal.Low)
	b.pins.OutputEnable.Write(hal.Low)
	b.pins.WriteEnable.Write(hal.High)

	b.delay.Delay(b.settle)
	b.mode = Read
}

// EnterStandby releases the data lines and deselects the chip (CE high).
// The data pin direction is switched to input before the chip select
// changes so the bus is never driven from both sides.
func (b *Bus) EnterStandby() {
	for _, p := range b.pins.Data {
		p.SetMode(hal.Input)
	}

	b.pins.OutputEnable.Write(hal.Low)
	b.pins.ChipEnable.Write(hal.High)
	b.pins.WriteEnable.Write(hal.High)

	b.delay.Delay(b.settle)
	b.mode = Standby
}

// pulse raises the pin, holds, lowers it and holds again.
func (b *Bus) pulse(p hal.Pin) {
	p.Write(hal.High)
	b.delay.Delay(b.settle)
	p.Write(hal.Low)
	b.delay.Delay(b.settle)
}

// LoadAddress clocks the 16-bit address into the shift register most
// significant bit first and latches it onto the address bus. The chip only
// decodes the low 15 bits.
func (b *Bus) LoadAddress(addr uint16) {
	for i := 15; i >= 0; i-- {
		if (addr>>i)&1 == 1 {
			b.pins.ShiftData.Write(hal.High)
		} else {
			b.pins.ShiftData.Write(hal.Low)
		}
		b.delay.Delay(b.settle)
		b.pulse(b.pins.ShiftClock)
	}
	b.delay.Delay(b.settle)
	b.pulse(b.pins.LatchClock)
}

// ReadByte returns the byte at the given address. The bus ends up in
// Standby regardless of the mode it started in.
func (b *Bus) ReadByte(addr uint16) byte {
	b.EnterRead()
	b.LoadAddress(addr)
	b.delay.Delay(b.settle)

	var val byte
	for i, p := range b.pins.Data {
		if p.Read() == hal.High {
			val |= 1 << i
		}
	}
	b.EnterStandby()
	return val
}

// WriteByte commits val at the given address by strobing WE low inside the
// chip's timing window. The address is loaded before the bus mode changes;
// the bus ends up in Standby.
func (b *Bus) WriteByte(addr uint16, val byte) {
	b.LoadAddress(addr)

	b.EnterWrite()

	for i, p := range b.pins.Data {
		p.Write(hal.Level((val>>i)&1 == 1))
	}
	b.delay.Delay(b.settle)

	b.pins.WriteEnable.Write(hal.Low)
	b.delay.Delay(b.settle)
	b.pins.WriteEnable.Write(hal.High)

	b.delay.Delay(b.settle)
	b.EnterStandby()
}
