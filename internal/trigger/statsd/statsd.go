// Package statsd reports state changes as StatsD counters and gauges.
package statsd

import (
	"context"
	"errors"
	"net"

	"github.com/rs/zerolog"
	statsd "github.com/smira/go-statsd"

	"github.com/doridoridoriand/netsav-go/internal/event"
	"github.com/doridoridoriand/netsav-go/internal/trigger"
)

// Name is the configuration key of this trigger.
const Name = "statsd"

const defaultPrefix = "netsav."

type sink interface {
	Incr(stat string, count int64, tags ...statsd.Tag)
	Gauge(stat string, value int64, tags ...statsd.Tag)
	Close() error
}

// Plugin increments state_change and sets target_state for every event.
type Plugin struct {
	log    zerolog.Logger
	client sink
}

// New is the trigger.Factory for the statsd plugin.
func New(logger zerolog.Logger) (trigger.Plugin, error) {
	return &Plugin{log: logger}, nil
}

// Name implements trigger.Plugin.
func (p *Plugin) Name() string { return Name }

// Configure reads address, prefix and the optional node tag.
func (p *Plugin) Configure(params map[string]string) error {
	cfg := trigger.Params(params)
	if err := cfg.Require("address"); err != nil {
		return err
	}
	if _, _, err := net.SplitHostPort(cfg["address"]); err != nil {
		return err
	}

	opts := []statsd.Option{
		statsd.MetricPrefix(cfg.Get("prefix", defaultPrefix)),
		statsd.TagStyle(statsd.TagFormatDatadog),
	}
	if node := cfg.Get("node", ""); node != "" {
		opts = append(opts, statsd.DefaultTags(statsd.StringTag("node", node)))
	}
	p.client = statsd.NewClient(cfg["address"], opts...)
	return nil
}

// Handle implements trigger.Plugin.
func (p *Plugin) Handle(_ context.Context, evt event.StateChangeEvent) error {
	if p.client == nil {
		return errors.New("statsd client not configured")
	}
	target := statsd.StringTag("target", evt.Name)
	p.client.Incr("state_change", 1, target, statsd.StringTag("state", evt.Current.String()))
	p.client.Gauge("target_state", int64(evt.Current), target)
	return nil
}

// Close flushes pending metrics.
func (p *Plugin) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
