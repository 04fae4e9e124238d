package watch

import (
	"google.golang.org/grpc/codes"
)

// EventHandler supplies the protocol for a watch stream and receives
// its lifecycle events. The Client owns retries and backoff; the
// handler owns what the stream says and what the messages mean.
//
// All On* callbacks run while the Client holds its internal lock, so a
// handler sees them strictly serialized. Callbacks must not call back
// into the Client and must not block.
type EventHandler interface {
	// Path returns the fully qualified method path of the stream,
	// e.g. "/grpc.health.v1.Health/Watch".
	Path() string

	// EncodeRequest produces the single request payload sent on every
	// attempt. An error fails the attempt without opening a stream.
	EncodeRequest() ([]byte, error)

	// OnCallStart fires just before each stream attempt starts.
	OnCallStart(client *Client)

	// OnRetryTimerStart fires when an attempt has ended and the next
	// one has been scheduled after a backoff wait.
	OnRetryTimerStart(client *Client)

	// OnMessageReceived delivers one fully assembled inbound message.
	// Returning an error rejects the message and ends the attempt.
	OnMessageReceived(client *Client, payload []byte) error

	// OnTerminalStatus reports the status an attempt ended with.
	OnTerminalStatus(client *Client, status codes.Code)
}
