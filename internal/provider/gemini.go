// gemini.go — Google generative-language chat adapter.
package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// geminiRole maps the shared message roles onto Gemini's two-role scheme.
// System prompts have no dedicated slot in this wire shape; they travel as
// a leading user turn, which the API accepts.
func geminiRole(role string) string {
	if role == RoleAssistant {
		return "model"
	}
	return "user"
}

func buildGeminiRequest(p *Provider, chat ChatPayload) (*RequestSpec, error) {
	if strings.TrimSpace(lastUserContent(chat.Messages)) == "" {
		return nil, ErrEmptyPrompt
	}
	contents := make([]geminiContent, 0, len(chat.Messages))
	for _, m := range chat.Messages {
		contents = append(contents, geminiContent{
			Role:  geminiRole(m.Role),
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	body, err := json.Marshal(geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     chat.Temperature,
			MaxOutputTokens: chat.MaxTokens,
			TopP:            chat.TopP,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	wire := p.WireModel(chat.Model)
	u := strings.TrimSuffix(p.BaseURL, "/") + "/models/" + wire + ":generateContent"
	if p.APIKeyInURL && p.Credential != "" {
		u += "?key=" + url.QueryEscape(p.Credential)
	}
	return &RequestSpec{Method: "POST", URL: u, Body: body}, nil
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func parseGeminiResponse(body []byte) (*NormalizedReply, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("chat response has no candidates")
	}
	cand := resp.Candidates[0]
	return &NormalizedReply{
		Content: cand.Content.Parts[0].Text,
		Model:   resp.ModelVersion,
		Usage: Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
		FinishReason: cand.FinishReason,
	}, nil
}
