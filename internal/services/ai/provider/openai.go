package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
)

// OpenAIConfig configures the OpenAI Responses API adapter.
type OpenAIConfig struct {
	APIKey       string
	ResponsesURL string
	Model        string
}

type openAIAdapter struct {
	cfg OpenAIConfig
}

// NewOpenAIAdapter builds an adapter for the OpenAI Responses API.
func NewOpenAIAdapter(cfg OpenAIConfig) Adapter {
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = "https://api.openai.com/v1/responses"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &openAIAdapter{cfg: cfg}
}

func (a *openAIAdapter) Backend() Backend {
	return BackendOpenAI
}

func (a *openAIAdapter) Generate(ctx context.Context, request Request) (Response, error) {
	apiKey := strings.TrimSpace(a.cfg.APIKey)
	if apiKey == "" {
		return Response{}, apperrors.New(apperrors.CodeProviderMissingCredential, "openai api key is not configured")
	}
	model := strings.TrimSpace(request.Model)
	if model == "" {
		model = a.cfg.Model
	}

	payload := map[string]any{
		"model":        model,
		"instructions": request.SystemInstructions,
		"input":        request.Content,
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   "task_output",
				"strict": true,
				"schema": request.Schema,
			},
		},
	}
	headers := map[string]string{
		// Credential material is sent only as an Authorization header and is
		// never echoed in errors or response payloads.
		"Authorization": "Bearer " + apiKey,
	}

	body, err := postJSON(ctx, httpClients.openai.get(), a.cfg.ResponsesURL, headers, payload)
	if err != nil {
		return Response{}, err
	}

	var parsed struct {
		Output []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
		Usage struct {
			InputTokens  int64 `json:"input_tokens"`
			OutputTokens int64 `json:"output_tokens"`
			TotalTokens  int64 `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}

	var text string
	for _, output := range parsed.Output {
		for _, content := range output.Content {
			if content.Type == "output_text" && content.Text != "" {
				text = content.Text
				break
			}
		}
		if text != "" {
			break
		}
	}
	if text == "" {
		return Response{}, fmt.Errorf("response carries no output text")
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
			TotalTokens:  parsed.Usage.TotalTokens,
		}.Normalize(),
	}, nil
}
