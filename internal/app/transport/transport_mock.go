package transport

import (
	"io"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// FakeChannel hands out FakeCalls and records them so tests can drive
// each stream from the server side.
type FakeChannel struct {
	mu sync.Mutex

	// NewCallErr, when set, fails every NewCall with this error.
	NewCallErr error

	calls   []*FakeCall
	created chan *FakeCall
}

func NewFakeChannel() *FakeChannel {
	return &FakeChannel{created: make(chan *FakeCall, 16)}
}

func (ch *FakeChannel) NewCall(path string, opts CallOptions) (Call, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.NewCallErr != nil {
		return nil, ch.NewCallErr
	}
	call := &FakeCall{
		path:     path,
		deadline: opts.Deadline,
		readers:  make(chan MessageReader, 16),
		term:     make(chan error, 1),
		cancelCh: make(chan struct{}),
	}
	ch.calls = append(ch.calls, call)
	ch.created <- call
	return call, nil
}

// WaitForCall blocks until the next stream is opened on the channel.
func (ch *FakeChannel) WaitForCall(timeout time.Duration) (*FakeCall, bool) {
	select {
	case call := <-ch.created:
		return call, true
	case <-time.After(timeout):
		return nil, false
	}
}

func (ch *FakeChannel) Calls() []*FakeCall {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]*FakeCall, len(ch.calls))
	copy(out, ch.calls)
	return out
}

// FakeCall is a scriptable stream. Tests feed inbound messages with
// SendMessageToClient and end the stream with End.
type FakeCall struct {
	mu sync.Mutex

	path     string
	deadline time.Time

	sent      [][]byte
	sendErr   error
	closeSend bool

	readers    chan MessageReader
	term       chan error
	cancelOnce sync.Once
	cancelCh   chan struct{}
}

func (c *FakeCall) Path() string { return c.path }

func (c *FakeCall) Deadline() time.Time { return c.deadline }

// SetSendErr makes subsequent SendMessage calls fail.
func (c *FakeCall) SetSendErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

func (c *FakeCall) SendMessage(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	b := make([]byte, len(payload))
	copy(b, payload)
	c.sent = append(c.sent, b)
	return nil
}

func (c *FakeCall) CloseSend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeSend = true
	return nil
}

func (c *FakeCall) Header() (metadata.MD, error) {
	select {
	case <-c.cancelCh:
		return nil, status.Error(codes.Canceled, "stream cancelled")
	default:
		return metadata.MD{}, nil
	}
}

func (c *FakeCall) RecvMessage() (MessageReader, error) {
	// A cancelled stream stops delivering buffered messages.
	select {
	case <-c.cancelCh:
		return nil, status.Error(codes.Canceled, "stream cancelled")
	default:
	}
	select {
	case r := <-c.readers:
		return r, nil
	case err := <-c.term:
		return nil, err
	case <-c.cancelCh:
		return nil, status.Error(codes.Canceled, "stream cancelled")
	}
}

func (c *FakeCall) Cancel() {
	c.cancelOnce.Do(func() { close(c.cancelCh) })
}

// SendMessageToClient queues a whole inbound message as one chunk.
func (c *FakeCall) SendMessageToClient(payload []byte) {
	c.readers <- NewBytesReader(payload)
}

// SendChunkedMessageToClient queues an inbound message delivered in
// fixed-size chunks so tests exercise message assembly.
func (c *FakeCall) SendChunkedMessageToClient(payload []byte, chunkSize int) {
	c.readers <- newChunkedReader(payload, chunkSize)
}

// SendBrokenMessageToClient queues a message whose chunk pull fails
// partway through with err.
func (c *FakeCall) SendBrokenMessageToClient(payload []byte, failAfter int, err error) {
	c.readers <- &brokenReader{payload: payload, failAfter: failAfter, err: err}
}

// End terminates the stream. The client observes err on its next read;
// a nil err ends the stream cleanly.
func (c *FakeCall) End(err error) {
	if err == nil {
		err = io.EOF
	}
	c.term <- err
}

func (c *FakeCall) Cancelled() bool {
	select {
	case <-c.cancelCh:
		return true
	default:
		return false
	}
}

func (c *FakeCall) SentMessages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *FakeCall) SendClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeSend
}

type chunkedReader struct {
	payload   []byte
	chunkSize int
	offset    int
}

func newChunkedReader(payload []byte, chunkSize int) *chunkedReader {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &chunkedReader{payload: payload, chunkSize: chunkSize}
}

func (r *chunkedReader) Len() int { return len(r.payload) }

func (r *chunkedReader) Next() ([]byte, error) {
	if r.offset >= len(r.payload) {
		return nil, errTooManyChunks
	}
	end := r.offset + r.chunkSize
	if end > len(r.payload) {
		end = len(r.payload)
	}
	chunk := r.payload[r.offset:end]
	r.offset = end
	return chunk, nil
}

type brokenReader struct {
	payload   []byte
	failAfter int
	err       error
	offset    int
}

func (r *brokenReader) Len() int { return len(r.payload) }

func (r *brokenReader) Next() ([]byte, error) {
	if r.offset >= r.failAfter {
		return nil, r.err
	}
	chunk := r.payload[r.offset : r.offset+1]
	r.offset++
	return chunk, nil
}
