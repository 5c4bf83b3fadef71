package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPClient wraps an http.Client with per-call timeout and circuit-breaker
// admission. Requests are issued exactly once: payment gateway calls are not
// safely retryable, so a failed call surfaces to the caller instead of being
// replayed.
type HTTPClient struct {
	Client  *http.Client
	Breaker *Breaker
	Timeout time.Duration
}

// Do executes the request once. When the breaker is open ErrOpenCircuit is
// returned without touching the network. A 5xx response counts as a breaker
// failure but is still handed back to the caller for inspection.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	if breaker == nil {
		breaker = NewBreaker(1, 1, time.Second)
	}
	if !breaker.Allow(ctx) {
		return nil, ErrOpenCircuit
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if cl.Timeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			callCtx, cancel = context.WithTimeout(ctx, cl.Timeout)
			defer cancel()
		}
	}
	resp, err := cl.Client.Do(req.WithContext(callCtx))
	switch {
	case err != nil:
		breaker.Report(ctx, false)
		return nil, err
	case resp.StatusCode >= http.StatusInternalServerError:
		breaker.Report(ctx, false)
		return resp, nil
	default:
		breaker.Report(ctx, true)
		return resp, nil
	}
}
