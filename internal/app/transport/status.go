package transport

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errTooManyChunks = errors.New("transport: read past end of message")

// StatusFromError translates the terminal error of a call's inbound
// stream into a status code. A nil error or io.EOF is a cleanly closed
// stream. Errors produced by the gRPC adapter carry the status from the
// call's trailing metadata and are surfaced unchanged.
func StatusFromError(err error) codes.Code {
	if err == nil || errors.Is(err, io.EOF) {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	if errors.Is(err, context.Canceled) {
		return codes.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded
	}
	return codes.Unknown
}
