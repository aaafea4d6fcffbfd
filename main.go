package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/doridoridoriand/netsav-go/internal/cli"
	"github.com/doridoridoriand/netsav-go/internal/config"
	logpkg "github.com/doridoridoriand/netsav-go/internal/log"
	"github.com/doridoridoriand/netsav-go/internal/metrics"
	"github.com/doridoridoriand/netsav-go/internal/probe"
	"github.com/doridoridoriand/netsav-go/internal/responder"
	"github.com/doridoridoriand/netsav-go/internal/supervisor"
	"github.com/doridoridoriand/netsav-go/internal/trigger/builtin"
	"github.com/doridoridoriand/netsav-go/internal/ui"
)

const version = "0.1.0"

func main() {
	opts, err := cli.Parse(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}
	if opts.Version {
		fmt.Fprintf(os.Stdout, "netsav-go version %s\n", version)
		return
	}

	cfg, err := config.NetsavParser{}.LoadConfig(opts.ConfigPath, opts.Overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	a, err := newApp(cfg, probe.NewHTTPProber())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logpkg.LogConfigLoad(a.log, opts.ConfigPath, nil)

	ctx, cancel := signalContext()
	defer cancel()
	if err := a.run(ctx); err != nil {
		a.log.Error().Err(err).Msg("netsav stopped with error")
		a.close()
		os.Exit(1)
	}
	a.close()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// app wires every long-running component of the process.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	logCloser io.Closer
	sup       *supervisor.Impl
	responder *responder.Server
	metrics   *metrics.Server
	ui        *ui.UI
}

func newApp(cfg *config.Config, prober probe.Prober) (*app, error) {
	logger, closer, err := buildLogger(cfg.Global)
	if err != nil {
		return nil, fmt.Errorf("failed to open log target: %w", err)
	}

	a := &app{cfg: cfg, log: logger, logCloser: closer}
	a.sup = supervisor.New(*cfg, supervisor.Options{
		Prober:   prober,
		Registry: builtin.Registry(),
		Logger:   logger,
	})
	if cfg.Global.Server.Port > 0 {
		a.responder = responder.New(cfg.Global.Server, logger)
	}
	if cfg.Global.MetricsListen != "" {
		a.metrics = metrics.NewServer(cfg.Global.MetricsMode, a.sup.Store(), a.sup.Coordinator(), a.sup.Pipeline())
	}
	if !cfg.Global.UIDisable {
		a.ui = ui.New(cfg.Global, a.sup.Store(), a.sup.Coordinator())
	}
	return a, nil
}

// run blocks until ctx is cancelled, the user quits the UI or a component fails.
func (a *app) run(ctx context.Context) error {
	global := a.cfg.Global

	if err := writePIDFile(global.PIDFile); err != nil {
		return err
	}
	defer func() {
		if err := removePIDFile(global.PIDFile); err != nil {
			a.log.Warn().Err(err).Msg("pid file cleanup failed")
		}
	}()

	if a.responder != nil {
		if err := a.responder.Listen(); err != nil {
			return err
		}
	}
	if global.User != "" || global.Group != "" {
		if err := dropPrivileges(global.User, global.Group); err != nil {
			a.log.Error().Err(err).Str("user", global.User).Str("group", global.Group).Msg("insufficient privileges to change process identity")
		} else {
			a.log.Info().Str("user", global.User).Str("group", global.Group).Msg("privileges dropped")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.sup.Run(gctx)
	})
	if a.responder != nil {
		g.Go(func() error {
			return a.responder.Serve(gctx)
		})
	}
	if a.metrics != nil {
		g.Go(func() error {
			a.log.Info().Str("listen", global.MetricsListen).Msg("metrics listening")
			return metrics.Serve(gctx, global.MetricsListen, a.metrics)
		})
	}
	if a.ui != nil {
		g.Go(func() error {
			return a.ui.Run(gctx)
		})
	}

	err := g.Wait()
	a.log.Info().Msg("netsav stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *app) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// buildLogger discards console output while the TUI owns the terminal.
func buildLogger(global config.GlobalOptions) (zerolog.Logger, io.Closer, error) {
	target := strings.ToUpper(global.LogTarget)
	console := target == "" || target == logpkg.TargetStdout || target == logpkg.TargetStderr
	if !global.UIDisable && console {
		return zerolog.Nop(), nil, nil
	}
	return logpkg.New(global.LogLevel, global.LogTarget)
}
