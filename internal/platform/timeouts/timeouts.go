// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// ProviderRequest caps the wall-clock time allowed for a single generative
// provider HTTP request before it is aborted and classified as timed out.
const ProviderRequest = 60 * time.Second

// RetryBaseDelay is the first backoff delay between provider attempts.
const RetryBaseDelay = 1 * time.Second

// RetryMaxDelay caps the per-attempt backoff delay between provider attempts.
const RetryMaxDelay = 8 * time.Second

// SessionCacheTTL bounds how long a resolved session may be served from the
// in-memory side cache before it must be re-resolved.
const SessionCacheTTL = 30 * time.Second

// Shutdown limits how long a server waits for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second
