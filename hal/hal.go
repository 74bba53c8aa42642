// Package hal defines the digital I/O capability the programmer is built on.
//
// The device access layer and the firmware loop only ever talk to hardware
// through these interfaces, which keeps them portable across GPIO backends
// (periph.io on real boards, an in-memory board in tests and the simulator).
package hal

import "time"

// Level is the state of a digital line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Mode selects the direction of a digital line.
type Mode int

const (
	// Input leaves the line floating so an external device may drive it.
	Input Mode = iota

	// Output drives the line from the controller side.
	Output
)

// Pin is a single digital I/O line.
//
// Write is only meaningful while the pin is in Output mode, Read while it
// is in Input mode. Implementations are not required to enforce this; the
// device access layer owns the direction discipline.
type Pin interface {
	SetMode(Mode)
	Write(Level)
	Read() Level
}

// Delayer provides the busy-wait used to satisfy chip timing requirements.
// Injecting it keeps timed pulse sequences testable without real sleeps.
type Delayer interface {
	Delay(d time.Duration)
}

// DelayerFunc adapts a function to the Delayer interface.
type DelayerFunc func(time.Duration)

func (f DelayerFunc) Delay(d time.Duration) { f(d) }

// Sleeper is the default Delayer. It blocks the calling goroutine for the
// requested duration.
var Sleeper Delayer = DelayerFunc(time.Sleep)

// Nop is a Delayer that returns immediately. Used by the simulator, where
// the simulated silicon has no setup or hold time to respect.
var Nop Delayer = DelayerFunc(func(time.Duration) {})

// Discard is a Pin connected to nothing. Writes are dropped and reads
// always return Low.
var Discard Pin = discard{}

type discard struct{}

func (discard) SetMode(Mode) {}
func (discard) Write(Level)  {}
func (discard) Read() Level  { return Low }
