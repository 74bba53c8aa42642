package client

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/erikvanzijst/eeprom/at28c256"
	"github.com/erikvanzijst/eeprom/protocol"
)

// Client drives an AT28C256 programmer over a byte-stream link.
//
// Client is not safe for concurrent use; the device supports a single
// client and one operation at a time.
type Client struct {
	codec  *protocol.Codec
	config Config
}

// New creates a Client speaking over link.
func New(link io.ReadWriter, opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{
		codec:  protocol.NewCodec(link),
		config: cfg,
	}
}

// ReadByte returns the byte at addr. The device decodes 15 address bits;
// bit 15 is ignored.
func (c *Client) ReadByte(addr uint16) (byte, error) {
	cmd := []byte{protocol.OpRead, byte(addr >> 8), byte(addr)}
	if err := c.codec.Send(cmd, false); err != nil {
		return 0, fmt.Errorf("send read command: %w", err)
	}

	var buf [protocol.MaxPayload]byte
	n, err := c.codec.Receive(buf[:], false)
	if err != nil {
		return 0, fmt.Errorf("read reply: %w", err)
	}
	if n != 1 {
		return 0, fmt.Errorf("read reply carries %d bytes, want 1", n)
	}
	return buf[0], nil
}

// WriteByte writes val at addr, blocking until the device confirms the
// write with a completion frame.
func (c *Client) WriteByte(addr uint16, val byte) error {
	cmd := []byte{protocol.OpWrite, byte(addr >> 8), byte(addr), val}
	if err := c.codec.Send(cmd, true); err != nil {
		return fmt.Errorf("write 0x%02X at 0x%04X: %w", val, addr, err)
	}
	return nil
}

// Dump streams the first size bytes of the EEPROM to w. A size of 0 (or
// anything outside the chip's capacity) dumps the full 32768 bytes.
//
// The device always streams the entire address space; when size truncates
// the transfer, Dump resets the session and drains the in-flight frame so
// the device returns to idle.
func (c *Client) Dump(w io.Writer, size int) error {
	if size <= 0 || size > at28c256.Capacity {
		size = at28c256.Capacity
	}
	c.config.Logger.Info().Int("bytes", size).Msg("dump started")

	if err := c.codec.Send([]byte{protocol.OpDump}, false); err != nil {
		return fmt.Errorf("send dump command: %w", err)
	}

	var buf [protocol.MaxPayload]byte
	cnt, raw := 0, 0
	for cnt < size {
		n, err := c.codec.Receive(buf[:], true)
		if err != nil {
			return fmt.Errorf("dump at offset %d: %w", cnt, err)
		}
		raw += n

		take := n
		if take > size-cnt {
			take = size - cnt
		}
		if _, err := w.Write(buf[:take]); err != nil {
			return fmt.Errorf("write dump output: %w", err)
		}
		cnt += take
		c.reportProgress("dump", cnt, size)
	}

	if raw < at28c256.Capacity {
		// The device is still streaming: consume the frame already in
		// flight without acknowledging it, then answer the open
		// acknowledgement slot with a reset so the device aborts back
		// to idle.
		if _, err := c.codec.Receive(buf[:], false); err != nil {
			return fmt.Errorf("drain in-flight frame: %w", err)
		}
		if err := c.Reset(); err != nil {
			return err
		}
	}

	c.config.Logger.Info().Int("bytes", cnt).Msg("dump complete")
	return nil
}

// Load programs size bytes from r into the EEPROM starting at address 0.
// r must deliver at least size bytes; a short read aborts the transfer
// with the device still expecting data.
func (c *Client) Load(r io.Reader, size int) error {
	if size < 0 || size > at28c256.Capacity {
		return fmt.Errorf("load size %d outside [0, %d]", size, at28c256.Capacity)
	}
	c.config.Logger.Info().Int("bytes", size).Msg("load started")

	cmd := []byte{protocol.OpLoad, byte(size >> 8), byte(size)}
	if err := c.codec.Send(cmd, true); err != nil {
		return fmt.Errorf("send load command: %w", err)
	}

	buf := make([]byte, c.config.ChunkSize)
	sent := 0
	for sent < size {
		want := len(buf)
		if want > size-sent {
			want = size - sent
		}
		n, err := io.ReadFull(r, buf[:want])
		if err != nil {
			return fmt.Errorf("read load input at offset %d: %w", sent, err)
		}

		if err := c.codec.Send(buf[:n], true); err != nil {
			return fmt.Errorf("load at offset %d: %w", sent, err)
		}
		sent += n
		c.reportProgress("load", sent, size)
	}

	c.config.Logger.Info().Int("bytes", sent).Msg("load complete")
	return nil
}

// Reset notifies the device that the session is being reset. The device
// treats it as a no-op in idle and as an abort signal mid-transfer.
func (c *Client) Reset() error {
	if err := c.codec.Send([]byte{protocol.ResetByte}, false); err != nil {
		return fmt.Errorf("send reset: %w", err)
	}
	return nil
}

// Verify writes size bytes of random data to the EEPROM, reads them back,
// and compares. A mismatch returns a *VerifyError locating the first
// differing cell.
func (c *Client) Verify(size int) error {
	if size <= 0 || size > at28c256.Capacity {
		size = at28c256.Capacity
	}

	data := make([]byte, size)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	rnd.Read(data)

	if err := c.Load(bytes.NewReader(data), size); err != nil {
		return err
	}

	var got bytes.Buffer
	got.Grow(size)
	if err := c.Dump(&got, size); err != nil {
		return err
	}

	for i, b := range got.Bytes() {
		if b != data[i] {
			return &VerifyError{Offset: i, Expected: data[i], Actual: b}
		}
	}
	c.config.Logger.Info().Int("bytes", size).Msg("verify passed")
	return nil
}

func (c *Client) reportProgress(op string, done, total int) {
	if c.config.Progress != nil {
		c.config.Progress(Progress{Operation: op, Done: done, Total: total})
	}
}
