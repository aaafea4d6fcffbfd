package metrics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/doridoridoriand/netsav-go/internal/config"
	"github.com/doridoridoriand/netsav-go/internal/state"
	"github.com/doridoridoriand/netsav-go/internal/trigger"
)

// Quorum reports the reference coordinator state.
type Quorum interface {
	Active() bool
	DownCount() int
	Registered() int
}

// Queue reports the trigger queue depth and delivery counters.
type Queue interface {
	Len() int
	Stats() trigger.Stats
}

// Server exposes Prometheus-style metrics based on current state.
type Server struct {
	mode   config.MetricsMode
	store  state.Store
	quorum Quorum
	queue  Queue
}

// NewServer constructs a metrics server. quorum and queue may be nil.
func NewServer(mode config.MetricsMode, store state.Store, quorum Quorum, queue Queue) *Server {
	return &Server{mode: mode, store: store, quorum: quorum, queue: queue}
}

// Handler returns an http handler that serves metrics.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		bw := bufio.NewWriter(w)
		defer bw.Flush()
		s.writeMetrics(bw)
	})
}

func (s *Server) writeMetrics(w *bufio.Writer) {
	snapshot := s.store.GetSnapshot()
	if s.mode == "" {
		return
	}

	if s.mode == config.MetricsModeAggregated || s.mode == config.MetricsModeBoth {
		writeAggregated(w, snapshot)
	}
	if s.mode == config.MetricsModePerTarget || s.mode == config.MetricsModeBoth {
		writePerTarget(w, snapshot)
	}
	writeQuorum(w, s.quorum)
	if s.queue != nil {
		stats := s.queue.Stats()
		fmt.Fprintf(w, "netsav_trigger_queue_length %d\n", s.queue.Len())
		fmt.Fprintf(w, "netsav_trigger_delivered_total %d\n", stats.Delivered)
		fmt.Fprintf(w, "netsav_trigger_failed_total %d\n", stats.Failed)
	}
}

func writeAggregated(w *bufio.Writer, snapshot []state.TargetStatus) {
	var total, available, unavailable, unknown int
	for _, target := range snapshot {
		if target.Reference {
			continue
		}
		total++
		switch target.State {
		case state.Available:
			available++
		case state.Unavailable:
			unavailable++
		default:
			unknown++
		}
	}
	fmt.Fprintf(w, "netsav_targets_total %d\n", total)
	fmt.Fprintf(w, "netsav_targets_available %d\n", available)
	fmt.Fprintf(w, "netsav_targets_unavailable %d\n", unavailable)
	fmt.Fprintf(w, "netsav_targets_unknown %d\n", unknown)
}

func writePerTarget(w *bufio.Writer, snapshot []state.TargetStatus) {
	for _, target := range snapshot {
		labels := fmt.Sprintf(
			`target="%s",address="%s",port="%d",reference="%t"`,
			escapeLabel(target.Name),
			escapeLabel(target.Address),
			target.Port,
			target.Reference,
		)
		up := 0
		if target.State == state.Available {
			up = 1
		}
		fmt.Fprintf(w, "netsav_target_state{%s} %d\n", labels, int(target.State))
		fmt.Fprintf(w, "netsav_target_up{%s} %d\n", labels, up)
		fmt.Fprintf(w, "netsav_target_attempts_total{%s} %d\n", labels, target.TotalAttempts)
		fmt.Fprintf(w, "netsav_target_successes_total{%s} %d\n", labels, target.TotalSuccesses)
		fmt.Fprintf(w, "netsav_target_skipped_cycles_total{%s} %d\n", labels, target.SkippedCycles)
	}
}

func writeQuorum(w *bufio.Writer, quorum Quorum) {
	if quorum == nil {
		return
	}
	active := 0
	if quorum.Active() {
		active = 1
	}
	fmt.Fprintf(w, "netsav_monitoring_active %d\n", active)
	fmt.Fprintf(w, "netsav_references_total %d\n", quorum.Registered())
	fmt.Fprintf(w, "netsav_references_down %d\n", quorum.DownCount())
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabel(value string) string {
	return labelEscaper.Replace(value)
}

// Serve starts an HTTP server and blocks until context cancellation.
func Serve(ctx context.Context, addr string, metrics *Server) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Shutdown(context.WithoutCancel(ctx))
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return context.Canceled
		}
		return err
	}
}
