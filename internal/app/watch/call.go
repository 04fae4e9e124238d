package watch

import (
	"context"

	"go.uber.org/atomic"
	"google.golang.org/grpc/codes"

	"github.com/devkapilbansal/watchstream/internal/app/transport"
)

// callState is one attempt at the watch stream. It owns the call and
// the two goroutines that drive it, and reports back to the client
// when the attempt ends.
type callState struct {
	client *Client
	call   transport.Call

	cancelled    *atomic.Bool
	seenResponse *atomic.Bool
}

func newCallState(c *Client) *callState {
	return &callState{
		client:       c,
		cancelled:    atomic.NewBool(false),
		seenResponse: atomic.NewBool(false),
	}
}

// start opens the stream and spawns the send and receive goroutines.
// Called with the client lock held.
func (cs *callState) start() {
	c := cs.client
	ctx := context.Background()

	payload, err := c.handler.EncodeRequest()
	if err != nil {
		c.logger.Error(ctx, "error encoding watch request, retrying: %v", err)
		c.callFailures.Inc(1)
		c.callEndedLocked(cs, true)
		return
	}

	opts := transport.CallOptions{}
	if c.callDeadline > 0 {
		opts.Deadline = c.clock.Now().Add(c.callDeadline)
	}
	call, err := c.channel.NewCall(c.handler.Path(), opts)
	if err != nil {
		c.logger.Error(ctx, "error creating watch stream, retrying: %v", err)
		c.callFailures.Inc(1)
		c.callEndedLocked(cs, true)
		return
	}
	cs.call = call

	c.refs.ref()
	c.refs.ref()
	go cs.sendRequest(payload)
	go cs.recvLoop()
}

// cancel aborts the attempt. The terminal status still arrives through
// the receive side, which is what ultimately ends the attempt.
func (cs *callState) cancel() {
	if cs.cancelled.CAS(false, true) {
		if cs.call != nil {
			cs.call.Cancel()
		}
	}
}

func (cs *callState) sendRequest(payload []byte) {
	defer cs.client.refs.unref()
	ctx := context.Background()
	if err := cs.call.SendMessage(payload); err != nil {
		// The receive side observes the stream failure and handles it.
		cs.client.logger.Debug(ctx, "error sending watch request: %v", err)
		return
	}
	if err := cs.call.CloseSend(); err != nil {
		cs.client.logger.Debug(ctx, "error half closing watch stream: %v", err)
	}
}

func (cs *callState) recvLoop() {
	defer cs.client.refs.unref()
	ctx := context.Background()

	if _, err := cs.call.Header(); err != nil {
		cs.finish(err)
		return
	}
	for {
		reader, err := cs.call.RecvMessage()
		if err != nil {
			cs.finish(err)
			return
		}
		payload, err := readMessage(reader)
		if err != nil {
			cs.client.logger.Debug(ctx, "error reading watch message chunks: %v", err)
			cs.cancel()
			continue
		}
		if !cs.deliver(payload) {
			cs.cancel()
		}
	}
}

// deliver hands one assembled message to the handler. It reports false
// when the handler rejects the message.
func (cs *callState) deliver(payload []byte) bool {
	c := cs.client
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handler == nil || c.activeCall != cs {
		return true
	}
	if err := c.handler.OnMessageReceived(c, payload); err != nil {
		c.logger.Debug(context.Background(), "watch message rejected: %v", err)
		c.decodeFailures.Inc(1)
		return false
	}
	c.messagesReceived.Inc(1)
	cs.seenResponse.Store(true)
	return true
}

// finish records the attempt's terminal status and lets the client
// decide whether and when to start the next one. UNIMPLEMENTED means
// the peer will never serve this stream, so it is not retried.
func (cs *callState) finish(err error) {
	code := transport.StatusFromError(err)
	c := cs.client

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handler != nil && c.activeCall == cs {
		c.handler.OnTerminalStatus(c, code)
	}
	switch code {
	case codes.OK:
		c.terminalOK.Inc(1)
	case codes.Unimplemented:
		c.terminalPerm.Inc(1)
		c.logger.Error(context.Background(), "watch stream unimplemented by peer, not retrying")
	default:
		c.terminalError.Inc(1)
	}
	c.callEndedLocked(cs, code != codes.Unimplemented)
}

func readMessage(r transport.MessageReader) ([]byte, error) {
	total := r.Len()
	buf := make([]byte, 0, total)
	for len(buf) < total {
		chunk, err := r.Next()
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
	}
	return buf, nil
}
