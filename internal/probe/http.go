package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

// HTTPProber sends one HTTP request against "/" per attempt. Any response
// counts as success regardless of status.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber returns a prober that opens a fresh connection per attempt.
func NewHTTPProber() *HTTPProber {
	transport := &http.Transport{
		DialContext:       (&net.Dialer{}).DialContext,
		DisableKeepAlives: true,
	}
	return &HTTPProber{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Probe issues the configured method and waits at most req.Timeout.
func (p *HTTPProber) Probe(ctx context.Context, req Request) Result {
	if err := ctx.Err(); err != nil {
		return Result{Success: false, Error: err}
	}

	ctx, cancel := context.WithDeadline(ctx, effectiveDeadline(ctx, req.Timeout))
	defer cancel()

	url := "http://" + net.JoinHostPort(req.Address, strconv.Itoa(req.Port)) + "/"
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, nil)
	if err != nil {
		return Result{Success: false, Error: fmt.Errorf("build request: %w", err)}
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	rtt := time.Since(start)
	if err != nil {
		return Result{RTT: rtt, Success: false, Error: err}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	return Result{RTT: rtt, Success: true, StatusCode: resp.StatusCode}
}
