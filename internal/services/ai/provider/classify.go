package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
)

// statusError carries a backend HTTP status and diagnostic body. The body is
// kept for server-side logs only and must never cross the adapter boundary
// unsanitized.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	body := strings.TrimSpace(e.body)
	if body == "" {
		return fmt.Sprintf("backend status %d", e.status)
	}
	return fmt.Sprintf("backend status %d: %s", e.status, body)
}

// unavailableMarkers flag message text indicating temporary unavailability,
// matched case-insensitively.
var unavailableMarkers = []string{
	"temporarily unavailable",
	"service unavailable",
	"overloaded",
	"try again later",
}

// retryable reports whether an error warrants backoff and another attempt.
//
// Rate limits, unavailable and gateway-timeout statuses, aborted in-flight
// requests, and messages indicating temporary unavailability are retryable.
// Everything else, including malformed-request statuses and missing
// credentials, is fatal.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		switch se.status {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		// Other statuses stay eligible for the marker scan below; backends
		// report overload under statuses outside this list.
	}
	if timedOut(err) {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, marker := range unavailableMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// sanitize replaces a backend error with one of a fixed set of category
// errors so diagnostic payloads never reach callers. The original error is
// only for server-side logs.
func sanitize(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		// Adapter-origin application errors are already safe to surface.
		return appErr
	}
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusTooManyRequests {
		return apperrors.New(apperrors.CodeProviderRateLimited, "the provider is rate limited, try again shortly")
	}
	if timedOut(err) {
		return apperrors.New(apperrors.CodeProviderTimedOut, "the provider timed out")
	}
	return apperrors.New(apperrors.CodeProviderFailed, "the provider request failed")
}

// timedOut reports whether an in-flight request was aborted by a deadline,
// either the request context's or the HTTP client's.
func timedOut(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
