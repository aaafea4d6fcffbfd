package supervisor

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/doridoridoriand/netsav-go/internal/config"
	"github.com/doridoridoriand/netsav-go/internal/event"
	"github.com/doridoridoriand/netsav-go/internal/probe"
	"github.com/doridoridoriand/netsav-go/internal/state"
	"github.com/doridoridoriand/netsav-go/internal/trigger"
)

type recorder struct {
	mu     sync.Mutex
	delay  time.Duration
	events []event.StateChangeEvent
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Configure(map[string]string) error { return nil }

func (r *recorder) Handle(_ context.Context, evt event.StateChangeEvent) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func registryFor(r *recorder) trigger.Registry {
	return trigger.Registry{
		"recorder": func(zerolog.Logger) (trigger.Plugin, error) { return r, nil },
	}
}

func triggerConfigs() []config.TriggerConfig {
	return []config.TriggerConfig{{Name: "recorder", Params: map[string]string{"name": "recorder"}}}
}

func target(name, address string, reference bool) config.TargetConfig {
	return config.TargetConfig{
		Name:        name,
		Address:     address,
		Port:        80,
		Interval:    60,
		MinRetry:    1,
		MaxRetry:    1,
		TCPTimeout:  1,
		QueryMethod: "HEAD",
		Reference:   reference,
	}
}

// countingProber fails every address listed in down and counts attempts per address.
type countingProber struct {
	mu    sync.Mutex
	down  map[string]bool
	total atomic.Int32
}

func (p *countingProber) Probe(_ context.Context, req probe.Request) probe.Result {
	p.total.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return probe.Result{Success: !p.down[req.Address]}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSelectTargetsDropsInvalid(t *testing.T) {
	bad := target("bad", "10.0.0.2", false)
	bad.MinRetry = 4
	cfg := config.Config{
		Global: config.GlobalOptions{IgnoreOwn: true},
		Targets: []config.TargetConfig{
			target("web", "10.0.0.1", false),
			bad,
			target("myhost", "10.0.0.3", false),
			target("web", "10.0.0.4", false),
			target("gw", "10.0.0.254", true),
		},
	}
	hostname := func() (string, error) { return "myhost", nil }

	got := selectTargets(cfg, hostname, zerolog.Nop())
	if len(got) != 2 || got[0].Name != "web" || got[1].Name != "gw" {
		t.Fatalf("unexpected targets %+v", got)
	}
	if got[0].Address != "10.0.0.1" {
		t.Fatalf("expected first declaration to win, got %s", got[0].Address)
	}
}

func TestSelectTargetsDropsMalformedTarget(t *testing.T) {
	cfg, err := config.NetsavParser{}.Parse([]byte(`
targets:
  web:
    address: 10.0.0.1
    port: 80
  bad:
    address: 10.0.0.2
    port: eighty
`), config.CLIOverrides{})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	got := selectTargets(*cfg, os.Hostname, zerolog.Nop())
	if len(got) != 1 || got[0].Name != "web" {
		t.Fatalf("expected only web to survive, got %+v", got)
	}
}

func TestSelectTargetsHostnameFailure(t *testing.T) {
	cfg := config.Config{
		Global:  config.GlobalOptions{IgnoreOwn: true},
		Targets: []config.TargetConfig{target("myhost", "10.0.0.3", false)},
	}
	hostname := func() (string, error) { return "", errors.New("no hostname") }
	if got := selectTargets(cfg, hostname, zerolog.Nop()); len(got) != 1 {
		t.Fatalf("expected target kept when hostname is unknown, got %d", len(got))
	}
}

func TestNewRegistersReferences(t *testing.T) {
	cfg := config.Config{Targets: []config.TargetConfig{
		target("gw", "10.0.0.254", true),
		target("dns", "10.0.0.53", true),
		target("web", "10.0.0.1", false),
	}}
	s := New(cfg, Options{Prober: &countingProber{}, Logger: zerolog.Nop()})

	if s.Coordinator().Registered() != 2 {
		t.Fatalf("expected 2 references, got %d", s.Coordinator().Registered())
	}
	if !s.Coordinator().Active() {
		t.Fatalf("expected monitoring active before any reference is down")
	}
	if len(s.Targets()) != 3 || len(s.Store().GetSnapshot()) != 3 {
		t.Fatalf("expected 3 targets in store")
	}
}

func TestRunDeliversEventsAndStops(t *testing.T) {
	rec := &recorder{}
	prober := &countingProber{down: map[string]bool{"10.0.0.1": true}}
	cfg := config.Config{
		Targets:  []config.TargetConfig{target("web", "10.0.0.1", false)},
		Triggers: triggerConfigs(),
	}
	s := New(cfg, Options{Prober: prober, Registry: registryFor(rec), Logger: zerolog.Nop(), Tick: 5 * time.Millisecond})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()

	waitFor(t, func() bool { return rec.count() == 1 })
	s.Stop()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return after Stop")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	evt := rec.events[0]
	if evt.Name != "web" || evt.Previous != state.Unknown || evt.Current != state.Unavailable {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestRunDrainsQueueOnShutdown(t *testing.T) {
	rec := &recorder{delay: 30 * time.Millisecond}
	prober := &countingProber{}
	cfg := config.Config{
		Targets: []config.TargetConfig{
			target("a", "10.0.0.1", false),
			target("b", "10.0.0.2", false),
			target("c", "10.0.0.3", false),
			target("d", "10.0.0.4", false),
		},
		Triggers: triggerConfigs(),
	}
	s := New(cfg, Options{Prober: prober, Registry: registryFor(rec), Logger: zerolog.Nop(), Tick: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	waitFor(t, func() bool { return prober.total.Load() == 4 })
	waitFor(t, func() bool { return s.Pipeline().Stats().Enqueued == 4 })
	cancel()
	<-errCh

	if rec.count() != 4 {
		t.Fatalf("expected all 4 events delivered before Run returned, got %d", rec.count())
	}
	if s.Pipeline().Len() != 0 {
		t.Fatalf("expected empty queue after shutdown, got %d", s.Pipeline().Len())
	}
}

func TestReferenceDownSuspendsMonitoring(t *testing.T) {
	prober := &countingProber{down: map[string]bool{"10.0.0.254": true}}
	cfg := config.Config{Targets: []config.TargetConfig{target("gw", "10.0.0.254", true)}}
	s := New(cfg, Options{Prober: prober, Logger: zerolog.Nop(), Tick: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	waitFor(t, func() bool { return !s.Coordinator().Active() })
	if s.Coordinator().DownCount() != 1 {
		t.Fatalf("expected 1 reference down, got %d", s.Coordinator().DownCount())
	}
	cancel()
	<-errCh
}

func TestRunTwice(t *testing.T) {
	s := New(config.Config{}, Options{Prober: &countingProber{}, Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	waitFor(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cancel != nil
	})
	if err := s.Run(ctx); err == nil {
		t.Fatalf("expected error when already running")
	}
	cancel()
	<-errCh
}
