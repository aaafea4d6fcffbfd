package trigger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/doridoridoriand/netsav-go/internal/config"
	"github.com/doridoridoriand/netsav-go/internal/event"
)

var (
	// ErrUnknownPlugin is returned when no factory is registered for a name.
	ErrUnknownPlugin = errors.New("unknown trigger plugin")
	// ErrInvalidName is returned for plugin names that are not purely alphabetic.
	ErrInvalidName = errors.New("invalid trigger name")
)

var namePattern = regexp.MustCompile(`^[A-Za-z]+$`)

// Plugin handles state change notifications.
type Plugin interface {
	Name() string
	Configure(params map[string]string) error
	Handle(ctx context.Context, evt event.StateChangeEvent) error
}

// Factory creates an unconfigured plugin instance.
type Factory func(logger zerolog.Logger) (Plugin, error)

// Registry maps plugin names to their factories.
type Registry map[string]Factory

// Lookup returns the factory registered for name.
func (r Registry) Lookup(name string) (Factory, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	factory, ok := r[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}
	return factory, nil
}

// Load instantiates and configures plugins in configuration order. Plugins that
// fail at any step are logged and left out.
func Load(cfgs []config.TriggerConfig, registry Registry, logger zerolog.Logger) []Plugin {
	plugins := make([]Plugin, 0, len(cfgs))
	for _, cfg := range cfgs {
		plugin, err := loadOne(cfg, registry, logger)
		if err != nil {
			logger.Error().Str("plugin", cfg.Name).Err(err).Msg("trigger not loaded")
			continue
		}
		logger.Info().Str("plugin", plugin.Name()).Msg("trigger loaded")
		plugins = append(plugins, plugin)
	}
	return plugins
}

func loadOne(cfg config.TriggerConfig, registry Registry, logger zerolog.Logger) (plugin Plugin, err error) {
	factory, err := registry.Lookup(cfg.Name)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			plugin = nil
			err = fmt.Errorf("panic while loading: %v", r)
		}
	}()

	plugin, err = factory(logger.With().Str("plugin", cfg.Name).Logger())
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if plugin == nil {
		return nil, errors.New("create: factory returned no plugin")
	}
	params := cfg.Params
	if params == nil {
		params = map[string]string{"name": cfg.Name}
	}
	if err := plugin.Configure(params); err != nil {
		return nil, fmt.Errorf("configure: %w", err)
	}
	return plugin, nil
}
