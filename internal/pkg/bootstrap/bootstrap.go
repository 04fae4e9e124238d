// Package bootstrap defines the yaml configuration file consumed by the
// watchstream daemon and its validation rules.
package bootstrap

import (
	"fmt"
	"net"
	"strconv"

	"github.com/ghodss/yaml"

	"github.com/devkapilbansal/watchstream/internal/pkg/backoff"
	"github.com/devkapilbansal/watchstream/internal/pkg/util"
)

// Config is the root of the bootstrap configuration.
type Config struct {
	// Target is the upstream endpoint whose status is watched.
	Target Address `json:"target"`
	// Service is the health service name to watch. Empty watches the
	// overall server health.
	Service string `json:"service"`
	// Admin is the local admin HTTP endpoint.
	Admin Address `json:"admin"`
	// Logging configures the log level.
	Logging Logging `json:"logging"`
	// Metrics configures the statsd sink. Optional; metrics are
	// disabled when the address is empty.
	Metrics Metrics `json:"metrics"`
	// Retry configures the backoff curve for re-establishing the watch.
	Retry Retry `json:"retry"`
	// CallDeadline optionally bounds each watch attempt, e.g. "5m".
	// Empty means attempts have no deadline.
	CallDeadline string `json:"call_deadline"`
}

// Address is a host/port pair.
type Address struct {
	Address string `json:"address"`
	Port    uint32 `json:"port"`
}

// String renders the address in host:port form.
func (a Address) String() string {
	return net.JoinHostPort(a.Address, strconv.FormatUint(uint64(a.Port), 10))
}

// Logging holds log settings.
type Logging struct {
	Level string `json:"level"`
}

// Metrics holds the statsd sink settings.
type Metrics struct {
	StatsdAddress string `json:"statsd_address"`
	RootPrefix    string `json:"root_prefix"`
	FlushInterval string `json:"flush_interval"`
}

// Retry holds the backoff curve settings as duration strings.
type Retry struct {
	InitialDelay string  `json:"initial_delay"`
	Multiplier   float64 `json:"multiplier"`
	Jitter       float64 `json:"jitter"`
	MaxDelay     string  `json:"max_delay"`
}

// Parse unmarshals the yaml contents and validates them.
func Parse(contents []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the parts of the configuration that cannot fall back
// to defaults.
func (c *Config) Validate() error {
	if c.Target.Address == "" {
		return fmt.Errorf("bootstrap: target.address is required")
	}
	if c.Target.Port == 0 || c.Target.Port > 65535 {
		return fmt.Errorf("bootstrap: target.port %d is out of range", c.Target.Port)
	}
	if c.Admin.Port > 65535 {
		return fmt.Errorf("bootstrap: admin.port %d is out of range", c.Admin.Port)
	}
	if _, err := c.BackoffConfig(); err != nil {
		return err
	}
	if _, err := util.StringToDuration(c.CallDeadline, 0); err != nil {
		return fmt.Errorf("bootstrap: invalid call_deadline: %v", err)
	}
	if c.Metrics.FlushInterval != "" {
		if _, err := util.StringToDuration(c.Metrics.FlushInterval, 0); err != nil {
			return fmt.Errorf("bootstrap: invalid metrics.flush_interval: %v", err)
		}
	}
	return nil
}

// BackoffConfig converts the retry section into backoff parameters.
// Unset fields are filled with the package defaults.
func (c *Config) BackoffConfig() (backoff.Config, error) {
	initial, err := util.StringToDuration(c.Retry.InitialDelay, backoff.DefaultInitialDelay)
	if err != nil {
		return backoff.Config{}, fmt.Errorf("bootstrap: invalid retry.initial_delay: %v", err)
	}
	max, err := util.StringToDuration(c.Retry.MaxDelay, backoff.DefaultMaxDelay)
	if err != nil {
		return backoff.Config{}, fmt.Errorf("bootstrap: invalid retry.max_delay: %v", err)
	}
	return backoff.Config{
		InitialDelay: initial,
		Multiplier:   c.Retry.Multiplier,
		Jitter:       c.Retry.Jitter,
		MaxDelay:     max,
	}, nil
}
