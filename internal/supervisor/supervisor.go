package supervisor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/doridoridoriand/netsav-go/internal/config"
	logpkg "github.com/doridoridoriand/netsav-go/internal/log"
	"github.com/doridoridoriand/netsav-go/internal/monitor"
	"github.com/doridoridoriand/netsav-go/internal/probe"
	"github.com/doridoridoriand/netsav-go/internal/quorum"
	"github.com/doridoridoriand/netsav-go/internal/state"
	"github.com/doridoridoriand/netsav-go/internal/trigger"
)

// Supervisor owns the monitors, the quorum coordinator and the trigger pipeline.
type Supervisor interface {
	Run(ctx context.Context) error
	Stop()
}

// Options configures how the supervisor builds its components.
type Options struct {
	Prober   probe.Prober
	Registry trigger.Registry
	Logger   zerolog.Logger
	Tick     time.Duration
	Hostname func() (string, error)
}

// Impl provides the default supervisor implementation.
type Impl struct {
	mu          sync.Mutex
	targets     []config.TargetConfig
	monitors    []*monitor.Monitor
	coordinator *quorum.Coordinator
	pipeline    *trigger.Pipeline
	store       *state.StoreImpl
	log         zerolog.Logger
	wg          sync.WaitGroup
	cancel      context.CancelFunc
}

// New validates the configured targets, loads the triggers and registers every
// reference with the coordinator. No goroutine is started until Run.
func New(cfg config.Config, opts Options) *Impl {
	if opts.Prober == nil {
		opts.Prober = probe.NewHTTPProber()
	}
	if opts.Hostname == nil {
		opts.Hostname = os.Hostname
	}
	logger := logpkg.Component(opts.Logger, "supervisor")

	targets := selectTargets(cfg, opts.Hostname, logger)
	s := &Impl{
		targets:     targets,
		coordinator: quorum.NewCoordinator(opts.Logger),
		store:       state.NewStore(targets),
		log:         logger,
	}
	s.pipeline = trigger.NewPipeline(trigger.Load(cfg.Triggers, opts.Registry, opts.Logger), opts.Logger)

	for _, tgt := range targets {
		if tgt.Reference {
			if err := s.coordinator.Register(tgt.Name, state.Unknown); err != nil {
				continue
			}
		}
		s.monitors = append(s.monitors, monitor.New(tgt, monitor.Options{
			Prober:   opts.Prober,
			Gate:     s.coordinator,
			Reporter: s.coordinator,
			Sink:     s.pipeline,
			Store:    s.store,
			Logger:   opts.Logger,
			Tick:     opts.Tick,
		}))
	}
	return s
}

// Run starts one goroutine per monitor plus the pipeline consumer and blocks
// until ctx is cancelled or Stop is called. Queued events are drained before
// it returns.
func (s *Impl) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return fmt.Errorf("supervisor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	// the consumer outlives the monitors so it can finish the queue
	consumerCtx, stopConsumer := context.WithCancel(context.WithoutCancel(ctx))
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		s.pipeline.RunForever(consumerCtx)
	}()

	s.log.Info().
		Int("targets", len(s.monitors)).
		Int("references", s.coordinator.Registered()).
		Strs("triggers", s.pipeline.Plugins()).
		Msg("starting monitors")
	for _, m := range s.monitors {
		s.wg.Add(1)
		go func(m *monitor.Monitor) {
			defer s.wg.Done()
			m.Run(runCtx)
		}(m)
	}

	<-runCtx.Done()
	s.log.Info().Msg("stopping monitors")
	s.wg.Wait()

	if drained := s.pipeline.Drain(context.WithoutCancel(ctx)); drained > 0 {
		s.log.Info().Int("events", drained).Msg("drained pending events")
	}
	stopConsumer()
	<-consumerDone
	if err := s.pipeline.Close(); err != nil {
		s.log.Warn().Err(err).Msg("closing triggers")
	}

	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
	return runCtx.Err()
}

// Stop cancels all running monitors.
func (s *Impl) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Targets returns the targets that passed validation, in configuration order.
func (s *Impl) Targets() []config.TargetConfig {
	return append([]config.TargetConfig(nil), s.targets...)
}

// Coordinator exposes the quorum state for metrics and the UI.
func (s *Impl) Coordinator() *quorum.Coordinator {
	return s.coordinator
}

// Pipeline exposes the trigger queue for metrics.
func (s *Impl) Pipeline() *trigger.Pipeline {
	return s.pipeline
}

// Store exposes the observation mirror.
func (s *Impl) Store() *state.StoreImpl {
	return s.store
}

func selectTargets(cfg config.Config, hostname func() (string, error), logger zerolog.Logger) []config.TargetConfig {
	own := ""
	if cfg.Global.IgnoreOwn {
		name, err := hostname()
		if err != nil {
			logger.Warn().Err(err).Msg("hostname lookup failed, ignore_own disabled")
		} else {
			own = name
		}
	}

	seen := make(map[string]struct{}, len(cfg.Targets))
	selected := make([]config.TargetConfig, 0, len(cfg.Targets))
	for _, tgt := range cfg.Targets {
		if own != "" && tgt.Name == own {
			logger.Info().Str("target", tgt.Name).Msg("ignoring own host")
			continue
		}
		if err := tgt.Validate(); err != nil {
			logger.Error().Err(err).Str("target", tgt.Name).Msg("invalid target dropped")
			continue
		}
		if _, dup := seen[tgt.Name]; dup {
			logger.Error().Str("target", tgt.Name).Msg("duplicate target dropped")
			continue
		}
		seen[tgt.Name] = struct{}{}
		selected = append(selected, tgt)
	}
	return selected
}
