package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/doridoridoriand/netsav-go/internal/config"
)

// DefaultConfigPath is read when no configuration file is named.
const DefaultConfigPath = "/etc/netsav/netsav.yaml"

// Options is the parsed command line.
type Options struct {
	ConfigPath string
	Version    bool
	Overrides  config.CLIOverrides
}

// Parse reads args (without the program name). flag.ErrHelp is returned
// unchanged when help was requested.
func Parse(name string, args []string, output io.Writer) (Options, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		configPath    string
		pidFile       OptionalString
		debug         OptionalBool
		level         OptionalLevel
		serverPort    OptionalInt
		metricsMode   OptionalMetricsMode
		metricsListen OptionalString
		noUI          OptionalBool
		version       bool
	)

	fs.StringVar(&configPath, "c", DefaultConfigPath, "configuration file")
	fs.StringVar(&configPath, "config", DefaultConfigPath, "configuration file")
	fs.Var(&pidFile, "p", "pid file path (override config)")
	fs.Var(&pidFile, "pid-file", "pid file path (override config)")
	fs.Var(&debug, "d", "debug logging (same as --log-level DEBUG)")
	fs.Var(&debug, "debug", "debug logging (same as --log-level DEBUG)")
	fs.Var(&level, "log-level", "log level: ERROR|WARN|INFO|DEBUG (override config)")
	fs.Var(&serverPort, "server-port", "responder port, 0 disables (override config)")
	fs.Var(&metricsMode, "metrics-mode", "metrics mode: per-target|aggregated|both")
	fs.Var(&metricsListen, "metrics-listen", "metrics listen address (e.g. :9100)")
	fs.Var(&noUI, "no-ui", "disable TUI (log only)")
	fs.BoolVar(&version, "version", false, "show version")
	fs.BoolVar(&version, "V", false, "show version")

	fs.Usage = func() {
		fmt.Fprintf(output, "usage: %s [options] [config-file]\n\n", name)
		fmt.Fprintln(output, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		configPath = fs.Arg(0)
	default:
		fs.Usage()
		return Options{}, fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}

	return Options{
		ConfigPath: configPath,
		Version:    version,
		Overrides:  buildOverrides(pidFile, debug, level, serverPort, metricsMode, metricsListen, noUI),
	}, nil
}

func buildOverrides(
	pidFile OptionalString,
	debug OptionalBool,
	level OptionalLevel,
	serverPort OptionalInt,
	metricsMode OptionalMetricsMode,
	metricsListen OptionalString,
	noUI OptionalBool,
) config.CLIOverrides {
	overrides := config.CLIOverrides{}

	if v, ok := level.Value(); ok {
		value := v
		overrides.LogLevel = &value
	}
	if v, ok := debug.Value(); ok && v {
		value := "DEBUG"
		overrides.LogLevel = &value
	}
	if v, ok := pidFile.Value(); ok {
		value := v
		overrides.PIDFile = &value
	}
	if v, ok := serverPort.Value(); ok {
		value := v
		overrides.ServerPort = &value
	}
	if v, ok := metricsMode.Value(); ok {
		value := v
		overrides.MetricsMode = &value
	}
	if v, ok := metricsListen.Value(); ok && v != "" {
		value := v
		overrides.MetricsListen = &value
	}
	if v, ok := noUI.Value(); ok {
		value := v
		overrides.UIDisable = &value
	}

	return overrides
}
