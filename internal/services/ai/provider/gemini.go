package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
)

// GeminiConfig configures the Gemini generateContent adapter.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type geminiAdapter struct {
	cfg GeminiConfig
}

// NewGeminiAdapter builds an adapter for the Gemini generateContent API.
func NewGeminiAdapter(cfg GeminiConfig) Adapter {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	return &geminiAdapter{cfg: cfg}
}

func (a *geminiAdapter) Backend() Backend {
	return BackendGemini
}

func (a *geminiAdapter) Generate(ctx context.Context, request Request) (Response, error) {
	apiKey := strings.TrimSpace(a.cfg.APIKey)
	if apiKey == "" {
		return Response{}, apperrors.New(apperrors.CodeProviderMissingCredential, "gemini api key is not configured")
	}
	model := strings.TrimSpace(request.Model)
	if model == "" {
		model = a.cfg.Model
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(a.cfg.BaseURL, "/"), model)

	payload := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]any{{"text": request.Content}}},
		},
		"generationConfig": map[string]any{
			"responseMimeType": "application/json",
			"responseSchema":   request.Schema,
		},
	}
	if request.SystemInstructions != "" {
		payload["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": request.SystemInstructions}},
		}
	}
	headers := map[string]string{
		"x-goog-api-key": apiKey,
	}

	body, err := postJSON(ctx, httpClients.gemini.get(), endpoint, headers, payload)
	if err != nil {
		return Response{}, err
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int64 `json:"promptTokenCount"`
			CandidatesTokenCount int64 `json:"candidatesTokenCount"`
			TotalTokenCount      int64 `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}

	var text string
	for _, candidate := range parsed.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text = part.Text
				break
			}
		}
		if text != "" {
			break
		}
	}
	if text == "" {
		return Response{}, fmt.Errorf("response carries no candidate text")
	}
	object, err := decodeObject(text)
	if err != nil {
		return Response{}, err
	}

	return Response{
		Object: object,
		Usage: Usage{
			InputTokens:  parsed.UsageMetadata.PromptTokenCount,
			OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  parsed.UsageMetadata.TotalTokenCount,
		}.Normalize(),
	}, nil
}
