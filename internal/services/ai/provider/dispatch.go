package provider

import (
	"context"
	"log"
	"time"

	"github.com/atriumhq/atrium/internal/platform/timeouts"
)

// maxAttempts caps total attempts per dispatch, including the first.
const maxAttempts = 3

// Dispatcher wraps one adapter with the shared retry and sanitization
// policy. Errors returned by Generate are always safe to show to callers.
type Dispatcher struct {
	adapter   Adapter
	baseDelay time.Duration
	maxDelay  time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	logf      func(format string, args ...any)
}

// NewDispatcher creates a Dispatcher over one backend adapter.
func NewDispatcher(adapter Adapter) *Dispatcher {
	return &Dispatcher{
		adapter:   adapter,
		baseDelay: timeouts.RetryBaseDelay,
		maxDelay:  timeouts.RetryMaxDelay,
		sleep:     sleepContext,
		logf:      log.Printf,
	}
}

// Backend names the wrapped adapter's backend.
func (d *Dispatcher) Backend() Backend {
	return d.adapter.Backend()
}

// Generate invokes the adapter, retrying retryable failures with
// exponential backoff. Each attempt runs under its own request deadline so
// a stalled call classifies as timed out rather than hanging. Fatal errors
// and exhausted retries terminate the loop; the returned error is the
// sanitized category for the last failure, with the original preserved
// only in server-side logs tagged with the backend name.
func (d *Dispatcher) Generate(ctx context.Context, request Request) (Response, error) {
	var lastErr error
	delay := d.baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeouts.ProviderRequest)
		response, err := d.adapter.Generate(attemptCtx, request)
		cancel()
		if err == nil {
			return response, nil
		}
		lastErr = err
		d.logf("provider %s attempt %d/%d: %v", d.adapter.Backend(), attempt, maxAttempts, err)
		if !retryable(err) || attempt == maxAttempts {
			break
		}
		if err := d.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
		delay *= 2
		if delay > d.maxDelay {
			delay = d.maxDelay
		}
	}
	return Response{}, sanitize(lastErr)
}

// sleepContext suspends the calling goroutine without blocking others and
// wakes early when the context ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
