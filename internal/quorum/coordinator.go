package quorum

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	logpkg "github.com/doridoridoriand/netsav-go/internal/log"
	"github.com/doridoridoriand/netsav-go/internal/state"
)

// ErrDuplicateReference is returned when a reference name is registered twice.
var ErrDuplicateReference = errors.New("reference already registered")

// Coordinator tracks reference targets and gates ordinary monitoring.
// Ordinary monitoring is active only while no reference is down.
type Coordinator struct {
	mu         sync.Mutex
	references map[string]state.State
	down       int
	active     atomic.Bool
	log        zerolog.Logger
}

// NewCoordinator returns a coordinator with no references; monitoring starts active.
func NewCoordinator(logger zerolog.Logger) *Coordinator {
	c := &Coordinator{
		references: make(map[string]state.State),
		log:        logpkg.Component(logger, "quorum"),
	}
	c.active.Store(true)
	return c
}

// Register adds a reference target. A reference registered as Unavailable
// counts as down immediately.
func (c *Coordinator) Register(name string, initial state.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.references[name]; ok {
		c.log.Error().Str("reference", name).Msg("duplicate reference target, keeping the first registration")
		return fmt.Errorf("%w: %s", ErrDuplicateReference, name)
	}
	c.references[name] = initial
	if initial == state.Unavailable {
		c.down++
	}
	c.recompute()
	c.log.Debug().Str("reference", name).Str("state", initial.String()).Msg("reference registered")
	return nil
}

// ReportUp records that a reference became reachable.
func (c *Coordinator) ReportUp(name string) {
	c.report(name, state.Available)
}

// ReportDown records that a reference became unreachable.
func (c *Coordinator) ReportDown(name string) {
	c.report(name, state.Unavailable)
}

// Report routes a state to ReportUp or ReportDown.
func (c *Coordinator) Report(name string, st state.State) {
	switch st {
	case state.Available:
		c.ReportUp(name)
	case state.Unavailable:
		c.ReportDown(name)
	}
}

func (c *Coordinator) report(name string, next state.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous, ok := c.references[name]
	if !ok {
		c.log.Warn().Str("reference", name).Msg("report for unregistered reference ignored")
		return
	}

	switch {
	case next == state.Available && previous == state.Unavailable:
		c.down--
	case next == state.Unavailable && previous != state.Unavailable:
		c.down++
	case next == state.Available && previous == state.Unknown:
		// first positive result, counter unchanged
	default:
		return
	}
	c.references[name] = next

	if c.down < 0 {
		c.down = 0
	}
	if c.down > len(c.references) {
		c.down = len(c.references)
	}

	wasActive := c.active.Load()
	c.recompute()
	if now := c.active.Load(); now != wasActive {
		if now {
			c.log.Info().Str("reference", name).Msg("all references reachable, monitoring resumed")
		} else {
			c.log.Warn().Str("reference", name).Int("down", c.down).Msg("reference unreachable, monitoring suspended")
		}
	}
}

func (c *Coordinator) recompute() {
	c.active.Store(c.down == 0)
}

// Active reports whether ordinary targets should be probed.
func (c *Coordinator) Active() bool {
	return c.active.Load()
}

// DownCount returns the number of references currently down.
func (c *Coordinator) DownCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.down
}

// Registered returns the number of registered references.
func (c *Coordinator) Registered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.references)
}

// ReferenceState returns the last state stored for a reference.
func (c *Coordinator) ReferenceState(name string) (state.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.references[name]
	return st, ok
}
