// Package backoff computes the deadlines used to re-establish a lost
// watch stream. The interval growth itself comes from cenkalti/backoff;
// this package adapts it to the deadline-style contract the stream
// client consumes and ties it to the injected clock.
package backoff

import (
	"time"

	expbackoff "github.com/cenkalti/backoff/v4"

	"github.com/devkapilbansal/watchstream/internal/pkg/clock"
)

// Defaults mirror the gRPC connection backoff parameters:
// https://github.com/grpc/grpc/blob/master/doc/connection-backoff.md
const (
	DefaultInitialDelay = 1 * time.Second
	DefaultMultiplier   = 1.6
	DefaultJitter       = 0.2
	DefaultMaxDelay     = 120 * time.Second
)

// Config holds the backoff curve parameters. The zero value of any
// field is replaced by the corresponding default.
type Config struct {
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// Multiplier is applied to the delay after each consecutive failure.
	Multiplier float64
	// Jitter is the fractional randomization applied to each delay,
	// e.g. 0.2 yields delays in [0.8d, 1.2d]. Zero takes the default;
	// a negative value disables randomization entirely.
	Jitter float64
	// MaxDelay caps the pre-jitter delay.
	MaxDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = DefaultMultiplier
	}
	if c.Jitter == 0 {
		c.Jitter = DefaultJitter
	} else if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	return c
}

// Policy yields the next attempt deadline after successive stream
// failures. It is not safe for concurrent use; the stream client
// mutates it only while holding its own lock.
type Policy struct {
	exp   *expbackoff.ExponentialBackOff
	clock clock.Clock
}

// NewPolicy builds a Policy over cfg. Deadlines are computed against c.
func NewPolicy(cfg Config, c clock.Clock) *Policy {
	cfg = cfg.withDefaults()
	exp := expbackoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.InitialDelay
	exp.Multiplier = cfg.Multiplier
	exp.RandomizationFactor = cfg.Jitter
	exp.MaxInterval = cfg.MaxDelay
	// The watch stream retries for as long as it is alive.
	exp.MaxElapsedTime = 0
	exp.Reset()
	return &Policy{exp: exp, clock: c}
}

// NextAttemptTime returns the earliest instant the next attempt should
// start, advancing the internal failure counter.
func (p *Policy) NextAttemptTime() time.Time {
	return p.clock.Now().Add(p.exp.NextBackOff())
}

// Reset restores the policy to its initial delay. Called after a stream
// that had delivered at least one update is lost, so the restart is
// immediate and subsequent failures start the curve over.
func (p *Policy) Reset() {
	p.exp.Reset()
}
