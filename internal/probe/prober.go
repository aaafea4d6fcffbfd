package probe

import (
	"context"
	"time"
)

// Request identifies one probe attempt.
type Request struct {
	Address string
	Port    int
	Method  string
	Timeout time.Duration
}

// Result captures a single probe result.
type Result struct {
	RTT        time.Duration
	Success    bool
	StatusCode int
	Error      error
}

// Prober performs a single reachability attempt and returns the result.
type Prober interface {
	Probe(ctx context.Context, req Request) Result
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, req Request) Result

// Probe calls f(ctx, req).
func (f ProberFunc) Probe(ctx context.Context, req Request) Result {
	return f(ctx, req)
}

// effectiveDeadline returns the earlier of the context deadline and now+timeout.
func effectiveDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}
