// Package protocol implements the serial wire protocol spoken between the
// AT28C256 programmer and its host.
//
// # Protocol Overview
//
// The link is a plain byte stream (typically a serial port) carrying
// length-prefixed messages:
//
//	[LEN][PAYLOAD...]
//
// Where LEN is a single octet in the range 0-63 and PAYLOAD is exactly LEN
// bytes. A zero-length message is an acknowledgement. A one-byte message
// containing ASCII 'r' is a peer-initiated reset.
//
// # Flow Control
//
// Transfers that span multiple frames (dump, load) use stop-and-wait flow
// control: every data-bearing frame must be acknowledged with a
// zero-length frame before the next one is sent. Simple single-frame
// commands skip the acknowledgement round-trip; the dispatcher answers
// them with an explicit reply or completion frame instead.
//
// # Commands
//
//	[0x72 addrHi addrLo]       read byte, replied with a 1-byte frame
//	[0x77 addrHi addrLo value] write byte, replied with a 0-byte frame
//	[0x64]                     dump all 32768 bytes as ack-gated frames
//	[0x6c lenHi lenLo]         load N bytes starting at address 0
//	[0x72]                     reset notification, silently ignored
//
// # Error Handling
//
// The protocol has no error frame type. Failures surface through the
// sentinel errors ErrReset, ErrCorrupt and ErrUnexpected; the device
// signals nothing back to the host, which must infer failure from a
// missing or incomplete reply.
package protocol
