package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"time"
)

// MetricsMode describes the granularity of exported metrics.
type MetricsMode string

const (
	MetricsModePerTarget  MetricsMode = "per-target"
	MetricsModeAggregated MetricsMode = "aggregated"
	MetricsModeBoth       MetricsMode = "both"
)

// Target defaults applied when neither the target nor the defaults section sets a key.
const (
	DefaultInterval    = 60
	DefaultTCPTimeout  = 1
	DefaultMinRetry    = 1
	DefaultMaxRetry    = 3
	DefaultQueryMethod = "HEAD"
)

// QueryMethods lists the HTTP methods a target may probe with.
var QueryMethods = []string{"HEAD", "GET", "POST"}

// ErrInvalidTarget is wrapped by every target validation failure.
var ErrInvalidTarget = errors.New("invalid target")

var hostnamePattern = regexp.MustCompile(`^(([a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9\-]*[a-zA-Z0-9])\.)*([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9\-]*[A-Za-z0-9])$`)

// ServerOptions configures the HTTP responder answering peer probes.
// The responder is disabled when Port is zero.
type ServerOptions struct {
	Address   string
	Port      int
	LogClient bool
	MaxConns  int
}

// GlobalOptions holds global settings parsed from config and CLI overrides.
type GlobalOptions struct {
	LogLevel      string
	LogTarget     string
	IgnoreOwn     bool
	User          string
	Group         string
	PIDFile       string
	Server        ServerOptions
	MetricsMode   MetricsMode
	MetricsListen string
	UIDisable     bool
}

// TargetConfig represents a single target definition.
// Interval and TCPTimeout are expressed in seconds.
type TargetConfig struct {
	Name        string
	Address     string
	Port        int
	Interval    int
	MinRetry    int
	MaxRetry    int
	TCPTimeout  int
	QueryMethod string
	Reference   bool

	decodeErr error
}

// IntervalDuration returns the poll interval.
func (t TargetConfig) IntervalDuration() time.Duration {
	return time.Duration(t.Interval) * time.Second
}

// Timeout returns the per-attempt timeout.
func (t TargetConfig) Timeout() time.Duration {
	return time.Duration(t.TCPTimeout) * time.Second
}

// Validate checks the retry bounds, method and network parameters of a target.
func (t TargetConfig) Validate() error {
	switch {
	case t.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidTarget)
	case t.decodeErr != nil:
		return fmt.Errorf("%w: %s: %v", ErrInvalidTarget, t.Name, t.decodeErr)
	case t.Address == "":
		return fmt.Errorf("%w: %s: empty address", ErrInvalidTarget, t.Name)
	case net.ParseIP(t.Address) == nil && !hostnamePattern.MatchString(t.Address):
		return fmt.Errorf("%w: %s: incorrect address %q", ErrInvalidTarget, t.Name, t.Address)
	case t.Port < 1 || t.Port > 65535:
		return fmt.Errorf("%w: %s: port %d out of range", ErrInvalidTarget, t.Name, t.Port)
	case t.Interval <= 0:
		return fmt.Errorf("%w: %s: interval must be > 0", ErrInvalidTarget, t.Name)
	case t.TCPTimeout <= 0:
		return fmt.Errorf("%w: %s: tcp_timeout must be > 0", ErrInvalidTarget, t.Name)
	case t.MinRetry < 1:
		return fmt.Errorf("%w: %s: min_retry must be >= 1", ErrInvalidTarget, t.Name)
	case t.MinRetry > t.MaxRetry:
		return fmt.Errorf("%w: %s: min_retry (%d) is more than max_retry (%d)", ErrInvalidTarget, t.Name, t.MinRetry, t.MaxRetry)
	case !isQueryMethod(t.QueryMethod):
		return fmt.Errorf("%w: %s: unknown query method %q", ErrInvalidTarget, t.Name, t.QueryMethod)
	}
	return nil
}

func isQueryMethod(method string) bool {
	for _, m := range QueryMethods {
		if m == method {
			return true
		}
	}
	return false
}

// TriggerConfig is the opaque key-value block of one notification plugin.
type TriggerConfig struct {
	Name   string
	Params map[string]string
}

// Config is the parsed configuration file with global settings.
type Config struct {
	Global   GlobalOptions
	Targets  []TargetConfig
	Triggers []TriggerConfig
}

// CLIOverrides holds optional CLI values that override config file values.
type CLIOverrides struct {
	LogLevel      *string
	PIDFile       *string
	ServerPort    *int
	MetricsMode   *MetricsMode
	MetricsListen *string
	UIDisable     *bool
}

// Parser defines config parsing behavior.
type Parser interface {
	LoadConfig(path string, overrides CLIOverrides) (*Config, error)
	Parse(data []byte, overrides CLIOverrides) (*Config, error)
}
