package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
)

// AnthropicConfig configures the Anthropic Messages API adapter.
type AnthropicConfig struct {
	APIKey      string
	MessagesURL string
	Model       string
	MaxTokens   int
}

type anthropicAdapter struct {
	cfg AnthropicConfig
}

// NewAnthropicAdapter builds an adapter for the Anthropic Messages API.
func NewAnthropicAdapter(cfg AnthropicConfig) Adapter {
	if strings.TrimSpace(cfg.MessagesURL) == "" {
		cfg.MessagesURL = "https://api.anthropic.com/v1/messages"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &anthropicAdapter{cfg: cfg}
}

func (a *anthropicAdapter) Backend() Backend {
	return BackendAnthropic
}

func (a *anthropicAdapter) Generate(ctx context.Context, request Request) (Response, error) {
	apiKey := strings.TrimSpace(a.cfg.APIKey)
	if apiKey == "" {
		return Response{}, apperrors.New(apperrors.CodeProviderMissingCredential, "anthropic api key is not configured")
	}
	model := strings.TrimSpace(request.Model)
	if model == "" {
		model = a.cfg.Model
	}

	// The Messages API has no native schema-constrained output mode, so the
	// schema rides in the system prompt and the reply must be bare JSON.
	schemaJSON, err := json.Marshal(request.Schema)
	if err != nil {
		return Response{}, fmt.Errorf("marshal schema: %w", err)
	}
	system := request.SystemInstructions
	if system != "" {
		system += "\n\n"
	}
	system += "Respond with a single JSON object matching this JSON Schema, with no surrounding prose:\n" + string(schemaJSON)

	payload := map[string]any{
		"model":      model,
		"max_tokens": a.cfg.MaxTokens,
		"system":     system,
		"messages": []map[string]any{
			{"role": "user", "content": request.Content},
		},
	}
	headers := map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": "2023-06-01",
	}

	body, err := postJSON(ctx, httpClients.anthropic.get(), a.cfg.MessagesURL, headers, payload)
	if err != nil {
		return Response{}, err
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int64 `json:"input_tokens"`
			OutputTokens int64 `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}

	var text string
	for _, content := range parsed.Content {
		if content.Type == "text" && content.Text != "" {
			text = content.Text
			break
		}
	}
	if text == "" {
		return Response{}, fmt.Errorf("response carries no text content")
	}
	object, err := decodeObject(text)
	if err != nil {
		return Response{}, err
	}

	return Response{
		Object: object,
		Usage: Usage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
		}.Normalize(),
	}, nil
}
