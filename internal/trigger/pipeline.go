package trigger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/doridoridoriand/netsav-go/internal/event"
	logpkg "github.com/doridoridoriand/netsav-go/internal/log"
)

// Stats are the delivery counters of a pipeline.
type Stats struct {
	Enqueued  uint64
	Delivered uint64
	Failed    uint64
}

// Pipeline is an unbounded FIFO of state change events with a single consumer
// dispatching each event to every plugin in order.
type Pipeline struct {
	plugins []Plugin
	log     zerolog.Logger

	mu     sync.Mutex
	queue  []event.StateChangeEvent
	notify chan struct{}

	// dispatchMu keeps plugin calls serial between RunForever and Drain.
	dispatchMu sync.Mutex

	enqueued  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// NewPipeline creates a pipeline over the loaded plugins.
func NewPipeline(plugins []Plugin, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		plugins: plugins,
		log:     logpkg.Component(logger, "trigger"),
		notify:  make(chan struct{}, 1),
	}
}

// Plugins returns the loaded plugin names in dispatch order.
func (p *Pipeline) Plugins() []string {
	names := make([]string, 0, len(p.plugins))
	for _, plugin := range p.plugins {
		names = append(names, plugin.Name())
	}
	return names
}

// Enqueue appends evt to the queue without blocking. With no plugins loaded the
// event is dropped.
func (p *Pipeline) Enqueue(evt event.StateChangeEvent) {
	if len(p.plugins) == 0 {
		return
	}
	p.mu.Lock()
	p.queue = append(p.queue, evt)
	p.mu.Unlock()
	p.enqueued.Add(1)

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of pending events.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// DrainOne dispatches the head event, if any, and reports whether one was processed.
func (p *Pipeline) DrainOne(ctx context.Context) bool {
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	evt, ok := p.pop()
	if !ok {
		return false
	}
	p.dispatch(ctx, evt)
	return true
}

// Drain dispatches pending events until the queue is empty and returns how many ran.
func (p *Pipeline) Drain(ctx context.Context) int {
	count := 0
	for p.DrainOne(ctx) {
		count++
	}
	return count
}

// RunForever consumes events until ctx is cancelled. Events still queued at
// that point are left for Drain.
func (p *Pipeline) RunForever(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if p.DrainOne(ctx) {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-p.notify:
		}
	}
}

// Stats returns a snapshot of the delivery counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Enqueued:  p.enqueued.Load(),
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close releases plugins holding connections. It must run after Drain.
func (p *Pipeline) Close() error {
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	var errs []error
	for _, plugin := range p.plugins {
		closer, ok := plugin.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", plugin.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) pop() (event.StateChangeEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return event.StateChangeEvent{}, false
	}
	evt := p.queue[0]
	p.queue[0] = event.StateChangeEvent{}
	p.queue = p.queue[1:]
	if len(p.queue) == 0 {
		p.queue = nil
	}
	return evt, true
}

func (p *Pipeline) dispatch(ctx context.Context, evt event.StateChangeEvent) {
	for _, plugin := range p.plugins {
		if err := safeHandle(ctx, plugin, evt); err != nil {
			p.failed.Add(1)
			p.log.Error().
				Str("plugin", plugin.Name()).
				Str("target", evt.Name).
				Str("event_id", evt.ID.String()).
				Err(err).
				Msg("trigger failed")
			continue
		}
		p.delivered.Add(1)
	}
}

func safeHandle(ctx context.Context, plugin Plugin, evt event.StateChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return plugin.Handle(ctx, evt)
}
