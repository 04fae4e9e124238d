// Package watch maintains a long-lived streaming call against a
// connected channel. A Client opens the stream, feeds inbound messages
// to its EventHandler, and when the stream ends reopens it, either
// immediately or after an exponential backoff wait. The Client keeps
// exactly one attempt in flight until it is shut down with Orphan.
package watch

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/atomic"

	"github.com/devkapilbansal/watchstream/internal/app/metrics"
	"github.com/devkapilbansal/watchstream/internal/app/transport"
	"github.com/devkapilbansal/watchstream/internal/pkg/backoff"
	"github.com/devkapilbansal/watchstream/internal/pkg/clock"
	"github.com/devkapilbansal/watchstream/internal/pkg/log"
)

// Options configures a Client. The zero value is usable.
type Options struct {
	// Logger receives the client's lifecycle logging. Defaults to an
	// info level logger on stderr.
	Logger log.Logger

	// Scope receives the client's metrics. Defaults to a noop scope.
	Scope tally.Scope

	// Clock drives retry timers. Defaults to the wall clock.
	Clock clock.Clock

	// Backoff controls the wait between failed attempts. Zero fields
	// take the standard connection backoff values.
	Backoff backoff.Config

	// CallDeadline, when positive, bounds each individual attempt.
	CallDeadline time.Duration
}

// Client drives one watch stream and its retries.
type Client struct {
	channel      transport.Channel
	logger       log.Logger
	clock        clock.Clock
	callDeadline time.Duration

	callsStarted      tally.Counter
	callFailures      tally.Counter
	messagesReceived  tally.Counter
	decodeFailures    tally.Counter
	retriesScheduled  tally.Counter
	immediateRestarts tally.Counter
	terminalOK        tally.Counter
	terminalError     tally.Counter
	terminalPerm      tally.Counter

	refs *refCount

	mu                sync.Mutex
	handler           EventHandler
	activeCall        *callState
	retryBackoff      *backoff.Policy
	retryTimer        clock.Timer
	retryTimerPending bool
}

// New starts a Client watching handler.Path() on the given channel.
// The first attempt begins before New returns. Panics if channel or
// handler is nil.
func New(channel transport.Channel, handler EventHandler, opts Options) *Client {
	if channel == nil {
		panic("watch: nil channel")
	}
	if handler == nil {
		panic("watch: nil event handler")
	}
	if opts.Logger == nil {
		opts.Logger = log.New("info", os.Stderr)
	}
	if opts.Scope == nil {
		opts.Scope = tally.NoopScope
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	scope := opts.Scope.SubScope(metrics.ScopeWatch).Tagged(map[string]string{"path": handler.Path()})
	terminal := scope.SubScope(metrics.ScopeWatchTerminal)
	c := &Client{
		channel:      channel,
		logger:       opts.Logger.Named("watch").With("path", handler.Path()),
		clock:        opts.Clock,
		callDeadline: opts.CallDeadline,

		callsStarted:      scope.Counter(metrics.WatchCallsStarted),
		callFailures:      scope.Counter(metrics.WatchCallFailures),
		messagesReceived:  scope.Counter(metrics.WatchMessagesReceived),
		decodeFailures:    scope.Counter(metrics.WatchDecodeFailures),
		retriesScheduled:  scope.Counter(metrics.WatchRetriesScheduled),
		immediateRestarts: scope.Counter(metrics.WatchImmediateRestarts),
		terminalOK:        terminal.Counter(metrics.WatchTerminalOK),
		terminalError:     terminal.Counter(metrics.WatchTerminalError),
		terminalPerm:      terminal.Counter(metrics.WatchTerminalPerm),

		refs:         newRefCount(),
		handler:      handler,
		retryBackoff: backoff.NewPolicy(opts.Backoff, opts.Clock),
	}

	c.mu.Lock()
	c.startCallLocked()
	c.mu.Unlock()
	return c
}

// Orphan shuts the client down: it cancels the in-flight attempt,
// stops any pending retry timer and drops the handler so no further
// callbacks fire. Safe to call more than once. Shutdown is complete
// once Done is closed.
func (c *Client) Orphan() {
	c.mu.Lock()
	if c.handler == nil {
		c.mu.Unlock()
		return
	}
	c.handler = nil
	cs := c.activeCall
	c.activeCall = nil
	timerStopped := false
	if c.retryTimerPending && c.retryTimer.Stop() {
		// The callback will never run, so its ref is released here.
		// When Stop loses the race the callback runs, finds no
		// handler, and releases the ref itself.
		c.retryTimerPending = false
		timerStopped = true
	}
	c.mu.Unlock()

	if cs != nil {
		cs.cancel()
	}
	if timerStopped {
		c.refs.unref()
	}
	c.refs.unref()
}

// Done is closed once Orphan has been called and every goroutine and
// timer the client owned has finished.
func (c *Client) Done() <-chan struct{} {
	return c.refs.done
}

func (c *Client) startCallLocked() {
	if c.handler == nil {
		return
	}
	if c.activeCall != nil {
		panic("watch: attempt already in flight")
	}
	c.handler.OnCallStart(c)
	c.callsStarted.Inc(1)
	cs := newCallState(c)
	c.activeCall = cs
	cs.start()
}

func (c *Client) startRetryTimerLocked() {
	c.handler.OnRetryTimerStart(c)
	c.retriesScheduled.Inc(1)
	delay := c.retryBackoff.NextAttemptTime().Sub(c.clock.Now())
	if delay < 0 {
		delay = 0
	}
	c.logger.Debug(context.Background(), "stream ended, retrying in %s", delay)
	c.refs.ref()
	c.retryTimerPending = true
	c.retryTimer = c.clock.AfterFunc(delay, c.onRetryTimer)
}

func (c *Client) onRetryTimer() {
	c.mu.Lock()
	if c.retryTimerPending {
		c.retryTimerPending = false
		if c.handler != nil && c.activeCall == nil {
			c.startCallLocked()
		}
	}
	c.mu.Unlock()
	c.refs.unref()
}

// callEndedLocked detaches cs and decides what happens next. An
// attempt that got a message through resets backoff and restarts
// immediately; anything else waits out the backoff, unless retry is
// off entirely.
func (c *Client) callEndedLocked(cs *callState, retry bool) {
	if c.activeCall != cs {
		return
	}
	c.activeCall = nil
	if c.handler == nil || !retry {
		return
	}
	if cs.seenResponse.Load() {
		c.immediateRestarts.Inc(1)
		c.retryBackoff.Reset()
		c.startCallLocked()
	} else {
		c.startRetryTimerLocked()
	}
}

// refCount tracks the client's outstanding work: one ref held from New
// until Orphan, one per attempt goroutine, one per armed retry timer.
type refCount struct {
	n    *atomic.Int32
	done chan struct{}
}

func newRefCount() *refCount {
	return &refCount{n: atomic.NewInt32(1), done: make(chan struct{})}
}

func (r *refCount) ref() {
	r.n.Inc()
}

func (r *refCount) unref() {
	if r.n.Dec() == 0 {
		close(r.done)
	}
}
