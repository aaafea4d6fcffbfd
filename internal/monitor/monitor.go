package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/doridoridoriand/netsav-go/internal/config"
	"github.com/doridoridoriand/netsav-go/internal/event"
	logpkg "github.com/doridoridoriand/netsav-go/internal/log"
	"github.com/doridoridoriand/netsav-go/internal/probe"
	"github.com/doridoridoriand/netsav-go/internal/state"
)

// DefaultTick is the countdown granularity between cycles. It bounds the
// delay between cancellation and loop exit.
const DefaultTick = time.Second

// Gate tells ordinary monitors whether probing is currently allowed.
type Gate interface {
	Active() bool
}

// Reporter receives state transitions of reference targets.
type Reporter interface {
	Report(name string, st state.State)
}

// Sink receives state change events of ordinary targets.
type Sink interface {
	Enqueue(evt event.StateChangeEvent)
}

// Options wires a monitor to its collaborators. Interval, when set, replaces
// the target's interval in seconds.
type Options struct {
	Prober   probe.Prober
	Gate     Gate
	Reporter Reporter
	Sink     Sink
	Store    state.Store
	Logger   zerolog.Logger
	Tick     time.Duration
	Interval time.Duration
}

// CycleResult is the outcome of one poll cycle.
type CycleResult struct {
	State     state.State
	Attempts  int
	Successes int
	Skipped   bool
	Changed   bool
}

// Monitor polls one target. Its state is only touched by its own goroutine.
type Monitor struct {
	target config.TargetConfig
	opts   Options
	log    zerolog.Logger
	state  state.State
}

// New creates a monitor in the Unknown state.
func New(target config.TargetConfig, opts Options) *Monitor {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	name := target.Name
	if target.Reference {
		name = "R:" + name
	}
	return &Monitor{
		target: target,
		opts:   opts,
		log:    logpkg.Component(opts.Logger, "monitor").With().Str("target", name).Logger(),
		state:  state.Unknown,
	}
}

// Target returns the monitored target configuration.
func (m *Monitor) Target() config.TargetConfig {
	return m.target
}

// State returns the last decided state.
func (m *Monitor) State() state.State {
	return m.state
}

// Run probes immediately, then once per interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Debug().Int("interval", m.target.Interval).Msg("monitor started")
	defer m.log.Debug().Msg("monitor stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		m.Cycle(ctx)
		if !m.wait(ctx) {
			return
		}
	}
}

// wait counts the interval down tick by tick. It returns false once ctx is done.
func (m *Monitor) wait(ctx context.Context) bool {
	interval := m.target.IntervalDuration()
	if m.opts.Interval > 0 {
		interval = m.opts.Interval
	}
	ticker := time.NewTicker(m.opts.Tick)
	defer ticker.Stop()

	remaining := interval
	for remaining > 0 {
		m.setRemaining(remaining)
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			remaining -= m.opts.Tick
		}
	}
	m.setRemaining(0)
	return ctx.Err() == nil
}

// Cycle runs one poll cycle and routes a state change if there is one.
func (m *Monitor) Cycle(ctx context.Context) CycleResult {
	if !m.target.Reference && m.opts.Gate != nil && !m.opts.Gate.Active() {
		m.log.Debug().Msg("monitoring suspended, cycle skipped")
		if m.opts.Store != nil {
			m.opts.Store.RecordSkip(m.target.Name)
		}
		return CycleResult{State: m.state, Skipped: true}
	}

	result, completed := m.probeCycle(ctx)
	if !completed {
		return CycleResult{State: m.state, Attempts: result.Attempts, Successes: result.Successes, Skipped: true}
	}

	if m.opts.Store != nil {
		m.opts.Store.RecordCycle(m.target.Name, state.CyclePoint{
			Time:      time.Now(),
			Attempts:  result.Attempts,
			Successes: result.Successes,
			State:     result.State,
		})
	}

	if result.State == m.state {
		return result
	}
	previous := m.state
	m.state = result.State
	result.Changed = true
	m.log.Info().Str("previous", previous.String()).Str("state", result.State.String()).Msg("changing status")
	m.route(previous, result.State)
	return result
}

// probeCycle runs up to max_retry attempts and stops at min_retry successes.
// It reports false when ctx was cancelled before a decision was reached.
func (m *Monitor) probeCycle(ctx context.Context) (CycleResult, bool) {
	req := probe.Request{
		Address: m.target.Address,
		Port:    m.target.Port,
		Method:  m.target.QueryMethod,
		Timeout: m.target.Timeout(),
	}
	// in-flight attempts run to completion or timeout after cancellation
	attemptCtx := context.WithoutCancel(ctx)

	var result CycleResult
	for result.Attempts < m.target.MaxRetry {
		if ctx.Err() != nil {
			return result, false
		}
		res := m.opts.Prober.Probe(attemptCtx, req)
		result.Attempts++
		logpkg.LogAttempt(m.log, m.target.Name, res.Success, res.RTT, res.Error)
		if !res.Success {
			continue
		}
		result.Successes++
		if result.Successes >= m.target.MinRetry {
			result.State = state.Available
			return result, true
		}
	}
	result.State = state.Unavailable
	return result, true
}

func (m *Monitor) route(previous, current state.State) {
	if m.target.Reference {
		if m.opts.Reporter != nil {
			m.opts.Reporter.Report(m.target.Name, current)
		}
		return
	}
	if m.opts.Sink != nil {
		m.opts.Sink.Enqueue(event.New(m.target, previous, current))
	}
}

func (m *Monitor) setRemaining(remaining time.Duration) {
	if m.opts.Store == nil {
		return
	}
	secs := int((remaining + time.Second - 1) / time.Second)
	m.opts.Store.SetRemaining(m.target.Name, secs)
}
