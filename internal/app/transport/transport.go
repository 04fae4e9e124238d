// Package transport defines the contract between the watch core and the
// connected channel that actually moves bytes. The watch core drives
// calls exclusively through these interfaces; the production
// implementation adapts a gRPC client connection.
package transport

import (
	"time"

	"google.golang.org/grpc/metadata"
)

// CallOptions configures a single call on a Channel.
type CallOptions struct {
	// Deadline bounds the whole call. The zero value means the call may
	// run forever, which is the norm for a watch stream.
	Deadline time.Time
}

// Channel is a connected transport handle on which streaming calls can
// be created. Implementations must be safe for concurrent use.
type Channel interface {
	// NewCall creates and starts a call for the given fully qualified
	// method path, e.g. "/grpc.health.v1.Health/Watch".
	NewCall(path string, opts CallOptions) (Call, error)
}

// Call is a single streaming exchange on a Channel.
//
// The outbound methods (SendMessage, CloseSend) and the inbound methods
// (Header, RecvMessage) may be used concurrently with each other, but
// each side must be driven by at most one goroutine at a time. The
// inbound side is strictly ordered: Header completes before the first
// RecvMessage, and a terminal error from RecvMessage is the last
// inbound event. The terminal error carries the status delivered in the
// call's trailing metadata when the peer supplied one.
type Call interface {
	// SendMessage queues the outbound request payload.
	SendMessage(payload []byte) error

	// CloseSend signals that no further outbound messages follow.
	CloseSend() error

	// Header blocks until the server's initial metadata arrives, or the
	// call fails first.
	Header() (metadata.MD, error)

	// RecvMessage blocks until the next inbound message begins and
	// returns a reader for its chunks. A non-nil error means the
	// inbound stream has ended and no further messages will arrive.
	RecvMessage() (MessageReader, error)

	// Cancel aborts the call. It is safe to invoke more than once and
	// after the call has already ended.
	Cancel()
}

// MessageReader yields the chunks of one inbound message. The total
// length is known up front but individual chunks arrive incrementally;
// the message is complete once the consumer has accumulated Len bytes.
type MessageReader interface {
	// Len returns the total message length in bytes.
	Len() int

	// Next blocks until the next chunk is available and returns it. It
	// must not be called again once Len bytes have been returned.
	Next() ([]byte, error)
}

// NewBytesReader returns a MessageReader over an already assembled
// message, delivered as a single chunk.
func NewBytesReader(b []byte) MessageReader {
	return &bytesReader{data: b}
}

type bytesReader struct {
	data []byte
	read bool
}

func (r *bytesReader) Len() int {
	return len(r.data)
}

func (r *bytesReader) Next() ([]byte, error) {
	if r.read {
		// Callers stop at Len bytes; reaching this is a bug.
		return nil, errTooManyChunks
	}
	r.read = true
	return r.data, nil
}
