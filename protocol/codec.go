package protocol

import (
	"fmt"
	"io"
)

// Codec frames and deframes messages over a byte stream. Both ends of the
// link use the same codec; only the dispatcher differs.
//
// The codec itself is stateless and synchronous: the read side blocks
// until a whole message has arrived. Session inactivity bounds belong to
// the underlying stream (serial port read timeout, connection deadline),
// not to the framing layer.
type Codec struct {
	link io.ReadWriter
}

// NewCodec returns a Codec speaking over the given byte stream.
func NewCodec(link io.ReadWriter) *Codec {
	if link == nil {
		panic("link cannot be nil")
	}
	return &Codec{link: link}
}

// Receive blocks until the next message arrives and copies its payload
// into buf, returning the payload length (0 for acks).
//
// A message that declares more payload than the stream delivers, or more
// than buf can hold, fails with ErrCorrupt; no partial payload is ever
// returned as success.
//
// With sendAck set, a zero-length acknowledgement is transmitted
// immediately after a successful read, implementing the receiving half of
// the stop-and-wait flow control used by streamed transfers.
func (c *Codec) Receive(buf []byte, sendAck bool) (int, error) {
	var length [1]byte
	if _, err := io.ReadFull(c.link, length[:]); err != nil {
		return 0, fmt.Errorf("read length octet: %w", err)
	}

	n := int(length[0])
	if n > 0 {
		want := n
		if want > len(buf) {
			want = len(buf)
		}
		if _, err := io.ReadFull(c.link, buf[:want]); err != nil {
			return 0, fmt.Errorf("%w: message declared %d bytes: %v", ErrCorrupt, n, err)
		}
		if want < n {
			return 0, fmt.Errorf("%w: message declared %d bytes, buffer holds %d", ErrCorrupt, n, len(buf))
		}
	}

	if sendAck {
		if err := c.Send(nil, false); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// Send writes payload as a single message, prefixed with its length
// octet.
//
// With waitForAck set, Send blocks for the peer's reply: a zero-length
// reply is success, a one-byte reset reply fails with ErrReset, anything
// else fails with ErrUnexpected. A transport failure while waiting
// propagates as-is.
func (c *Codec) Send(payload []byte, waitForAck bool) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("payload length %d exceeds maximum %d", len(payload), MaxPayload)
	}

	frame := make([]byte, 0, 1+len(payload))
	frame = append(frame, byte(len(payload)))
	frame = append(frame, payload...)
	if _, err := c.link.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	if waitForAck {
		var reply [MaxPayload]byte
		n, err := c.Receive(reply[:], false)
		if err != nil {
			return err
		}
		switch {
		case n == 0:
			return nil
		case n == 1 && reply[0] == ResetByte:
			return ErrReset
		default:
			return fmt.Errorf("%w: %d bytes", ErrUnexpected, n)
		}
	}
	return nil
}
