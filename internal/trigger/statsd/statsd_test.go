package statsd

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	statsd "github.com/smira/go-statsd"

	"github.com/doridoridoriand/netsav-go/internal/config"
	"github.com/doridoridoriand/netsav-go/internal/event"
	"github.com/doridoridoriand/netsav-go/internal/state"
)

type recordedMetric struct {
	kind  string
	stat  string
	value int64
	tags  int
}

type fakeSink struct {
	metrics []recordedMetric
	closed  bool
}

func (f *fakeSink) Incr(stat string, count int64, tags ...statsd.Tag) {
	f.metrics = append(f.metrics, recordedMetric{kind: "incr", stat: stat, value: count, tags: len(tags)})
}

func (f *fakeSink) Gauge(stat string, value int64, tags ...statsd.Tag) {
	f.metrics = append(f.metrics, recordedMetric{kind: "gauge", stat: stat, value: value, tags: len(tags)})
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func TestHandleRecordsMetrics(t *testing.T) {
	sink := &fakeSink{}
	p := &Plugin{log: zerolog.Nop(), client: sink}

	evt := event.New(config.TargetConfig{Name: "web"}, state.Unknown, state.Available)
	if err := p.Handle(context.Background(), evt); err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if len(sink.metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(sink.metrics))
	}
	if m := sink.metrics[0]; m.kind != "incr" || m.stat != "state_change" || m.value != 1 || m.tags != 2 {
		t.Fatalf("unexpected counter %+v", m)
	}
	if m := sink.metrics[1]; m.kind != "gauge" || m.stat != "target_state" || m.value != int64(state.Available) {
		t.Fatalf("unexpected gauge %+v", m)
	}
	if err := p.Close(); err != nil || !sink.closed {
		t.Fatalf("expected sink closed")
	}
}

func TestConfigure(t *testing.T) {
	plugin, _ := New(zerolog.Nop())
	if err := plugin.Configure(map[string]string{"prefix": "x."}); err == nil {
		t.Fatalf("expected error without address")
	}
	if err := plugin.Configure(map[string]string{"address": "no-port"}); err == nil {
		t.Fatalf("expected error for address without port")
	}
	if err := plugin.Configure(map[string]string{"address": "127.0.0.1:8125", "node": "monitor01"}); err != nil {
		t.Fatalf("Configure error: %v", err)
	}
	if err := plugin.(*Plugin).Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestHandleUnconfigured(t *testing.T) {
	plugin, _ := New(zerolog.Nop())
	if err := plugin.Handle(context.Background(), event.StateChangeEvent{}); err == nil {
		t.Fatalf("expected error when client is missing")
	}
}
