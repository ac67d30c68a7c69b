// Package provider adapts interchangeable generative backends to one
// uniform structured-output contract.
//
// Adapters translate requests and responses for a single backend and report
// failures with enough detail to classify them. Dispatch wraps an adapter
// with the retry, backoff, and sanitization policy shared by every backend.
package provider

import (
	"context"
	"strings"
)

// Backend names one generative backend.
type Backend string

const (
	// BackendOpenAI targets the OpenAI Responses API.
	BackendOpenAI Backend = "openai"
	// BackendAnthropic targets the Anthropic Messages API.
	BackendAnthropic Backend = "anthropic"
	// BackendGemini targets the Gemini generateContent API.
	BackendGemini Backend = "gemini"
)

// ParseBackend normalizes a backend name, returning false for unknown names.
func ParseBackend(value string) (Backend, bool) {
	switch Backend(strings.ToLower(strings.TrimSpace(value))) {
	case BackendOpenAI:
		return BackendOpenAI, true
	case BackendAnthropic:
		return BackendAnthropic, true
	case BackendGemini:
		return BackendGemini, true
	}
	return "", false
}

// Request is one structured-output generation request.
type Request struct {
	Model              string
	SystemInstructions string
	Content            string
	Schema             map[string]any
}

// Response is a successful generation: the schema-shaped object plus
// normalized token usage.
type Response struct {
	Object map[string]any
	Usage  Usage
}

// Usage is the normalized token accounting shape shared by every backend.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Normalize fills TotalTokens from the parts when the backend omits it.
func (u Usage) Normalize() Usage {
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u
}

// Adapter is the uniform interface over one generative backend.
//
// Generate returns raw classified errors; callers that surface errors to
// users must go through a Dispatcher, which retries and sanitizes.
type Adapter interface {
	Backend() Backend
	Generate(ctx context.Context, request Request) (Response, error)
}
