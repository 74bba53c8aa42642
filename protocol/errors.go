package protocol

import "errors"

// Transport error kinds. Call sites wrap these with context using
// fmt.Errorf and %w; compare with errors.Is.
var (
	// ErrReset means the peer deliberately reset the session
	// mid-exchange by answering an acknowledgement slot with a reset
	// message.
	ErrReset = errors.New("peer reset the session")

	// ErrCorrupt means an inbound frame declared more payload than the
	// stream actually delivered, or more than the receiver can accept.
	ErrCorrupt = errors.New("inbound frame corrupt")

	// ErrUnexpected means an acknowledgement slot received a reply that
	// is neither an ack nor a reset.
	ErrUnexpected = errors.New("unexpected reply in acknowledgement slot")
)
