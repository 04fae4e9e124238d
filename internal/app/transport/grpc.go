package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
)

// NewGRPCChannel wraps a connected gRPC client connection as a Channel.
// The watch core treats the connection as an opaque connected handle;
// dialing policy stays with the caller.
func NewGRPCChannel(conn *grpc.ClientConn) Channel {
	return &grpcChannel{conn: conn}
}

type grpcChannel struct {
	conn *grpc.ClientConn
}

func (ch *grpcChannel) NewCall(path string, opts CallOptions) (Call, error) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if opts.Deadline.IsZero() {
		ctx, cancel = context.WithCancel(ctx)
	} else {
		ctx, cancel = context.WithDeadline(ctx, opts.Deadline)
	}

	desc := &grpc.StreamDesc{
		StreamName:    path,
		ClientStreams: true,
		ServerStreams: true,
	}
	stream, err := ch.conn.NewStream(ctx, desc, path, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		cancel()
		return nil, err
	}
	return &grpcCall{stream: stream, cancel: cancel}, nil
}

type grpcCall struct {
	stream grpc.ClientStream
	cancel context.CancelFunc
}

func (c *grpcCall) SendMessage(payload []byte) error {
	return c.stream.SendMsg(&payload)
}

func (c *grpcCall) CloseSend() error {
	return c.stream.CloseSend()
}

func (c *grpcCall) Header() (metadata.MD, error) {
	return c.stream.Header()
}

func (c *grpcCall) RecvMessage() (MessageReader, error) {
	var payload []byte
	if err := c.stream.RecvMsg(&payload); err != nil {
		// The stream is over; release its context. The error already
		// carries the status from the trailing metadata.
		c.cancel()
		return nil, err
	}
	return NewBytesReader(payload), nil
}

func (c *grpcCall) Cancel() {
	c.cancel()
}

// rawCodec passes message payloads through untouched. Encoding and
// decoding belong to the watch event handler, not the transport.
type rawCodec struct{}

var _ encoding.Codec = rawCodec{}

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	b, ok := v.(*[]byte)
	if !ok {
		return nil, fmt.Errorf("transport: rawCodec cannot marshal %T", v)
	}
	return *b, nil
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	b, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("transport: rawCodec cannot unmarshal into %T", v)
	}
	*b = data
	return nil
}

func (rawCodec) Name() string {
	return "watchstream-raw"
}
