// Package firmware implements the programmer's command loop: it receives
// command frames from the host, drives the EEPROM access layer, and
// answers on the wire.
//
// # Overview
//
// A Device owns the three pieces of process-wide state the programmer
// has: the transport codec, the last-error value, and (through the Memory
// it was constructed with) the bus mode. It is single-threaded and fully
// cooperative: one command runs to completion before the next frame is
// read, and the only shared mutable resource, the physical bus, is
// protected structurally by that single thread of control.
//
// # Basic usage
//
//	bus := at28c256.New(pins)
//	dev := firmware.New(port, bus,
//	    firmware.WithIndicator(ledPin),
//	    firmware.WithLogger(logger),
//	)
//	err := dev.Run(ctx)
//
// # Error reporting
//
// Failed commands are not reported to the host; the protocol has no error
// frame type. The last error of each loop iteration is logged, blinked
// out on the activity indicator (five 100 ms on/off cycles), and cleared.
// A host infers failure from a missing or incomplete reply.
package firmware
