// Package metrics contains all the metric name constants used in watchstream.
package metrics

// .server
const (
	// scope: .server.*
	ScopeServer = "server"

	ServerAlive = "alive" // counter, 1 indicates that the server is running
)

// .watch
const (
	// scope: .watch.$path.*
	ScopeWatch = "watch"

	WatchCallsStarted      = "calls_started"      // counter, # of stream attempts started
	WatchCallFailures      = "call_failures"      // counter, # of attempts that failed before the stream existed
	WatchMessagesReceived  = "messages_received"  // counter, # of messages decoded and delivered
	WatchDecodeFailures    = "decode_failures"    // counter, # of inbound messages the handler rejected
	WatchRetriesScheduled  = "retries_scheduled"  // counter, # of retry timers armed after a failed attempt
	WatchImmediateRestarts = "immediate_restarts" // counter, # of restarts without a backoff wait

	// scope: .watch.$path.terminal.*
	ScopeWatchTerminal = "terminal"
	WatchTerminalOK    = "ok"            // counter, streams that closed cleanly
	WatchTerminalError = "error"         // counter, streams that ended with a non-OK status
	WatchTerminalPerm  = "unimplemented" // counter, streams rejected as unimplemented, never retried
)

// .health
const (
	// scope: .health.$service.*
	ScopeHealth = "health"

	HealthStatusChanges = "status_changes" // counter, # of observed serving status transitions
	HealthServing       = "serving"        // gauge, 1 while the watched service reports SERVING
)
