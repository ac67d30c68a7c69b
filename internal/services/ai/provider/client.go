package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/atriumhq/atrium/internal/platform/timeouts"
)

// clientHolder lazily constructs at most one HTTP client under concurrent
// first use.
type clientHolder struct {
	mu     sync.Mutex
	client *http.Client
}

func (h *clientHolder) get() *http.Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		h.client = &http.Client{Timeout: timeouts.ProviderRequest}
	}
	return h.client
}

func (h *clientHolder) set(client *http.Client) {
	h.mu.Lock()
	h.client = client
	h.mu.Unlock()
}

// httpClients holds the per-backend singleton clients for the process.
var httpClients = struct {
	openai    clientHolder
	anthropic clientHolder
	gemini    clientHolder
}{}

// ResetClients drops every cached backend client. Test isolation only.
func ResetClients() {
	httpClients.openai.set(nil)
	httpClients.anthropic.set(nil)
	httpClients.gemini.set(nil)
}

// postJSON posts a JSON payload and returns the response body. Non-2xx
// statuses return a statusError carrying a bounded diagnostic body.
func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, payload any) ([]byte, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &statusError{status: res.StatusCode, body: strings.TrimSpace(string(body))}
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// decodeObject parses schema-shaped JSON text returned by a backend.
func decodeObject(text string) (map[string]any, error) {
	var object map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &object); err != nil {
		return nil, fmt.Errorf("decode structured output: %w", err)
	}
	return object, nil
}
