package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
)

var testSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title": map[string]any{"type": "string"},
	},
}

func TestOpenAIAdapterGenerate(t *testing.T) {
	t.Cleanup(ResetClients)

	t.Run("success", func(t *testing.T) {
		var captured map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth := r.Header.Get("Authorization"); auth != "Bearer key-1" {
				t.Errorf("unexpected authorization header %q", auth)
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("decode request: %v", err)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"output": []map[string]any{
					{"content": []map[string]any{{"type": "output_text", "text": `{"title":"Scope"}`}}},
				},
				"usage": map[string]any{"input_tokens": 100, "output_tokens": 200, "total_tokens": 300},
			})
		}))
		defer server.Close()

		adapter := NewOpenAIAdapter(OpenAIConfig{APIKey: "key-1", ResponsesURL: server.URL})
		response, err := adapter.Generate(context.Background(), Request{
			SystemInstructions: "be terse",
			Content:            "draft a scope",
			Schema:             testSchema,
		})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if response.Object["title"] != "Scope" {
			t.Fatalf("unexpected object %+v", response.Object)
		}
		if response.Usage != (Usage{InputTokens: 100, OutputTokens: 200, TotalTokens: 300}) {
			t.Fatalf("unexpected usage %+v", response.Usage)
		}
		if captured["instructions"] != "be terse" || captured["input"] != "draft a scope" {
			t.Fatalf("unexpected request payload %+v", captured)
		}
	})

	t.Run("missing api key is fatal without a request", func(t *testing.T) {
		adapter := NewOpenAIAdapter(OpenAIConfig{ResponsesURL: "http://127.0.0.1:1"})
		_, err := adapter.Generate(context.Background(), Request{Content: "x", Schema: testSchema})
		if !errors.Is(err, apperrors.New(apperrors.CodeProviderMissingCredential, "")) {
			t.Fatalf("Generate error = %v, want missing credential", err)
		}
	})

	t.Run("backend status surfaces for classification", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "slow down", http.StatusTooManyRequests)
		}))
		defer server.Close()

		adapter := NewOpenAIAdapter(OpenAIConfig{APIKey: "key-1", ResponsesURL: server.URL})
		_, err := adapter.Generate(context.Background(), Request{Content: "x", Schema: testSchema})
		if !retryable(err) {
			t.Fatalf("expected retryable status error, got %v", err)
		}
	})

	t.Run("non-json output text fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"output": []map[string]any{
					{"content": []map[string]any{{"type": "output_text", "text": "not json"}}},
				},
			})
		}))
		defer server.Close()

		adapter := NewOpenAIAdapter(OpenAIConfig{APIKey: "key-1", ResponsesURL: server.URL})
		if _, err := adapter.Generate(context.Background(), Request{Content: "x", Schema: testSchema}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestAnthropicAdapterGenerate(t *testing.T) {
	t.Cleanup(ResetClients)

	t.Run("success computes total tokens", func(t *testing.T) {
		var captured map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("x-api-key"); key != "key-2" {
				t.Errorf("unexpected api key header %q", key)
			}
			if version := r.Header.Get("anthropic-version"); version == "" {
				t.Error("missing anthropic-version header")
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("decode request: %v", err)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"content": []map[string]any{{"type": "text", "text": `{"title":"Brief"}`}},
				"usage":   map[string]any{"input_tokens": 40, "output_tokens": 60},
			})
		}))
		defer server.Close()

		adapter := NewAnthropicAdapter(AnthropicConfig{APIKey: "key-2", MessagesURL: server.URL})
		response, err := adapter.Generate(context.Background(), Request{Content: "compose a brief", Schema: testSchema})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if response.Object["title"] != "Brief" {
			t.Fatalf("unexpected object %+v", response.Object)
		}
		if response.Usage.TotalTokens != 100 {
			t.Fatalf("TotalTokens = %d, want 100", response.Usage.TotalTokens)
		}
		system, _ := captured["system"].(string)
		if system == "" {
			t.Fatal("expected schema instructions in system prompt")
		}
	})

	t.Run("missing api key is fatal", func(t *testing.T) {
		adapter := NewAnthropicAdapter(AnthropicConfig{})
		_, err := adapter.Generate(context.Background(), Request{Content: "x", Schema: testSchema})
		if !errors.Is(err, apperrors.New(apperrors.CodeProviderMissingCredential, "")) {
			t.Fatalf("Generate error = %v, want missing credential", err)
		}
	})
}

func TestGeminiAdapterGenerate(t *testing.T) {
	t.Cleanup(ResetClients)

	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("x-goog-api-key"); key != "key-3" {
				t.Errorf("unexpected api key header %q", key)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{
					{"content": map[string]any{"parts": []map[string]any{{"text": `{"title":"Classified"}`}}}},
				},
				"usageMetadata": map[string]any{"promptTokenCount": 10, "candidatesTokenCount": 20, "totalTokenCount": 30},
			})
		}))
		defer server.Close()

		adapter := NewGeminiAdapter(GeminiConfig{APIKey: "key-3", BaseURL: server.URL})
		response, err := adapter.Generate(context.Background(), Request{Content: "classify", Schema: testSchema})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if response.Object["title"] != "Classified" {
			t.Fatalf("unexpected object %+v", response.Object)
		}
		if response.Usage != (Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}) {
			t.Fatalf("unexpected usage %+v", response.Usage)
		}
	})

	t.Run("missing api key is fatal", func(t *testing.T) {
		adapter := NewGeminiAdapter(GeminiConfig{})
		_, err := adapter.Generate(context.Background(), Request{Content: "x", Schema: testSchema})
		if !errors.Is(err, apperrors.New(apperrors.CodeProviderMissingCredential, "")) {
			t.Fatalf("Generate error = %v, want missing credential", err)
		}
	})
}

func TestUsageNormalize(t *testing.T) {
	if got := (Usage{InputTokens: 3, OutputTokens: 4}).Normalize(); got.TotalTokens != 7 {
		t.Fatalf("Normalize = %+v, want total 7", got)
	}
	if got := (Usage{InputTokens: 3, OutputTokens: 4, TotalTokens: 9}).Normalize(); got.TotalTokens != 9 {
		t.Fatalf("Normalize = %+v, want reported total preserved", got)
	}
	if got := (Usage{}).Normalize(); got.TotalTokens != 0 {
		t.Fatalf("Normalize = %+v, want zero total", got)
	}
}

func TestParseBackend(t *testing.T) {
	if backend, ok := ParseBackend(" OpenAI "); !ok || backend != BackendOpenAI {
		t.Fatalf("ParseBackend = %q, %v", backend, ok)
	}
	if _, ok := ParseBackend("mystery"); ok {
		t.Fatal("expected unknown backend to fail")
	}
}
