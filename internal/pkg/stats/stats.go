// Package stats uses uber-go/tally for reporting hierarchical stats.
// Tally supports multiple sinks including prometheus, m3, and statsd.
// watchstream currently defaults to statsd.
package stats

import (
	"io"
	"time"

	"github.com/cactus/go-statsd-client/statsd"
	"github.com/uber-go/tally"
)

// Config holds the configuration options for stats reporting.
type Config struct {
	// StatsdAddress that the statsd sink is running on, with format addr:port.
	StatsdAddress string
	// FlushInterval is how often buffered metrics are emitted. Defaults
	// to one second.
	FlushInterval time.Duration
	// RootPrefix is the prefix for the root scope.
	RootPrefix string
}

// NewScope creates a new root Scope with the set of configured options
// and a statsd point-tags reporter.
func NewScope(config Config) (tally.Scope, io.Closer, error) {
	statsdClient, err := statsd.NewClientWithConfig(&statsd.ClientConfig{
		Address:     config.StatsdAddress,
		Prefix:      "stats",
		UseBuffered: true,
	})
	if err != nil {
		return nil, nil, err
	}

	flush := config.FlushInterval
	if flush <= 0 {
		flush = time.Second
	}

	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:   config.RootPrefix,
		Tags:     map[string]string{},
		Reporter: NewStatsdPointTagsReporter(statsdClient),
	}, flush)

	return scope, closer, nil
}
