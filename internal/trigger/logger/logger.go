// Package logger is the minimal trigger: it writes every state change to the
// process log.
package logger

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/doridoridoriand/netsav-go/internal/event"
	"github.com/doridoridoriand/netsav-go/internal/trigger"
)

// Name is the configuration key of this trigger.
const Name = "logger"

// Plugin logs events at a configurable level.
type Plugin struct {
	log   zerolog.Logger
	level zerolog.Level
}

// New is the trigger.Factory for the logger plugin.
func New(logger zerolog.Logger) (trigger.Plugin, error) {
	return &Plugin{log: logger, level: zerolog.InfoLevel}, nil
}

// Name implements trigger.Plugin.
func (p *Plugin) Name() string { return Name }

// Configure reads the optional level key.
func (p *Plugin) Configure(params map[string]string) error {
	raw := trigger.Params(params).Get("level", "info")
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil || level == zerolog.NoLevel {
		return fmt.Errorf("invalid level %q", raw)
	}
	p.level = level
	return nil
}

// Handle implements trigger.Plugin.
func (p *Plugin) Handle(_ context.Context, evt event.StateChangeEvent) error {
	p.log.WithLevel(p.level).
		Str("event_id", evt.ID.String()).
		Str("target", evt.Name).
		Str("address", fmt.Sprintf("%s:%d", evt.Address, evt.Port)).
		Str("previous", evt.Previous.String()).
		Str("current", evt.Current.String()).
		Str("tag", evt.Tag).
		Msg(evt.Msg)
	return nil
}
