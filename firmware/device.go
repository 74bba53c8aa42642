package firmware

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/erikvanzijst/eeprom/at28c256"
	"github.com/erikvanzijst/eeprom/hal"
	"github.com/erikvanzijst/eeprom/protocol"
)

// Timing constants. Both may be overridden through options; the write
// cycle delay exists to outlast the AT28C256's documented worst-case
// internal write time (up to 10 ms for the non-F parts).
const (
	DefaultWriteCycleDelay = 10 * time.Millisecond
	DefaultBlinkInterval   = 100 * time.Millisecond
)

// errorBlinks is the number of on/off cycles flashed per reported error.
const errorBlinks = 5

// ErrUnknownCommand is recorded when a frame carries an unrecognized
// opcode or length combination. No reply is sent for such frames.
var ErrUnknownCommand = errors.New("unrecognized command")

// Memory is the byte-addressable store the dispatcher operates on,
// normally an *at28c256.Bus.
type Memory interface {
	ReadByte(addr uint16) byte
	WriteByte(addr uint16, val byte)
}

// Device is the programmer's command loop.
//
// Device is not safe for concurrent use: the protocol supports a single
// client and the dispatcher never starts a second command while one is in
// progress.
type Device struct {
	codec  *protocol.Codec
	mem    Memory
	config Config

	// lastErr is the process-wide error state. Set at the point of
	// detection, logged and blinked out once per loop iteration, then
	// cleared.
	lastErr error
}

// New creates a Device speaking the wire protocol over link and operating
// on mem.
func New(link io.ReadWriter, mem Memory, opts ...Option) *Device {
	if mem == nil {
		panic("memory cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Device{
		codec:  protocol.NewCodec(link),
		mem:    mem,
		config: cfg,
	}
}

// Run executes the command loop until the context is cancelled or the
// session ends. A closed link (EOF) is a normal session end and returns
// nil; any other transport failure is returned.
//
// Cancellation is only observed between commands: no operation is
// interrupted once started.
func (d *Device) Run(ctx context.Context) error {
	d.config.Logger.Info().Msg("command loop started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.Step(); err != nil {
			if errors.Is(err, io.EOF) {
				d.config.Logger.Info().Msg("session closed by peer")
				return nil
			}
			return err
		}
	}
}

// Step waits for one inbound frame, dispatches it, and reports and clears
// any error state. It returns an error only when the transport itself has
// failed and the session cannot continue.
func (d *Device) Step() error {
	var buf [protocol.MaxPayload]byte

	n, err := d.codec.Receive(buf[:], false)
	if err != nil {
		if errors.Is(err, protocol.ErrCorrupt) {
			d.lastErr = err
			d.processError()
			return nil
		}
		return err
	}

	d.config.Indicator.Write(hal.High)
	if n > 0 {
		d.dispatch(buf[:n])
	}
	d.config.Indicator.Write(hal.Low)

	d.processError()
	return nil
}

func (d *Device) dispatch(cmd []byte) {
	switch {
	case cmd[0] == protocol.OpRead && len(cmd) == protocol.ReadFrameLen:
		addr := binary.BigEndian.Uint16(cmd[1:3])
		val := d.mem.ReadByte(addr)
		d.config.Logger.Debug().Uint16("addr", addr).Uint8("val", val).Msg("read")
		if err := d.codec.Send([]byte{val}, false); err != nil {
			d.lastErr = err
		}

	case cmd[0] == protocol.OpWrite && len(cmd) == protocol.WriteFrameLen:
		addr := binary.BigEndian.Uint16(cmd[1:3])
		d.config.Logger.Debug().Uint16("addr", addr).Uint8("val", cmd[3]).Msg("write")
		d.mem.WriteByte(addr, cmd[3])
		// Signal operation completion.
		if err := d.codec.Send(nil, false); err != nil {
			d.lastErr = err
		}

	case cmd[0] == protocol.OpDump && len(cmd) == protocol.DumpFrameLen:
		if err := d.dump(); err != nil {
			d.lastErr = err
		}

	case cmd[0] == protocol.OpLoad && len(cmd) == protocol.LoadFrameLen:
		// Acknowledge the command message before consuming the stream.
		if err := d.codec.Send(nil, false); err != nil {
			d.lastErr = err
			return
		}
		if err := d.load(int(binary.BigEndian.Uint16(cmd[1:3]))); err != nil {
			d.lastErr = err
		}

	case cmd[0] == protocol.ResetByte && len(cmd) == protocol.ResetFrameLen:
		// Idle is the natural reset state; nothing to discard.
		d.config.Logger.Debug().Msg("reset ignored")

	default:
		d.lastErr = fmt.Errorf("%w: opcode 0x%02X, length %d", ErrUnknownCommand, cmd[0], len(cmd))
	}
}

// dump streams the full EEPROM contents in ascending address order as
// ack-gated frames of up to MaxPayload bytes. Any transport failure
// aborts immediately without completing the remaining addresses.
func (d *Device) dump() error {
	d.config.Logger.Info().Msg("dump started")

	var payload [protocol.MaxPayload]byte
	i := 0

	for addr := 0; addr < at28c256.Capacity; addr++ {
		i = addr % protocol.MaxPayload

		if addr > 0 && i == 0 {
			// Payload at capacity, send out.
			if err := d.codec.Send(payload[:], true); err != nil {
				return fmt.Errorf("dump at address %d: %w", addr, err)
			}
		}
		payload[i] = d.mem.ReadByte(uint16(addr))
		i++
	}

	if i > 0 {
		if err := d.codec.Send(payload[:i], true); err != nil {
			return fmt.Errorf("dump remainder: %w", err)
		}
	}

	d.config.Logger.Info().Msg("dump complete")
	return nil
}

// load consumes ack-gated frames until count bytes have been written to
// ascending addresses starting at 0, pausing after every byte for the
// chip's internal write cycle. Any transport failure aborts immediately.
func (d *Device) load(count int) error {
	d.config.Logger.Info().Int("bytes", count).Msg("load started")

	addr := 0
	var buf [protocol.MaxPayload]byte

	for addr < count {
		n, err := d.codec.Receive(buf[:], true)
		if err != nil {
			return fmt.Errorf("load at address %d: %w", addr, err)
		}

		for i := 0; i < n; i++ {
			d.mem.WriteByte(uint16(addr), buf[i])
			addr++
			d.config.Delayer.Delay(d.config.WriteCycleDelay)
		}
	}

	d.config.Logger.Info().Int("bytes", addr).Msg("load complete")
	return nil
}

// processError blinks out and clears the error state. Runs once per loop
// iteration.
func (d *Device) processError() {
	if d.lastErr == nil {
		return
	}
	d.config.Logger.Warn().Err(d.lastErr).Msg("command failed")

	for i := 0; i < errorBlinks; i++ {
		d.config.Indicator.Write(hal.High)
		d.config.Delayer.Delay(d.config.BlinkInterval)
		d.config.Indicator.Write(hal.Low)
		d.config.Delayer.Delay(d.config.BlinkInterval)
	}
	d.lastErr = nil
}
