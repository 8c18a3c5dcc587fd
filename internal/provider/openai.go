// openai.go — OpenAI-compatible chat adapter (openrouter, groq, deepseek).
package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPrompt is returned before transmission when the outgoing user
// prompt is empty or whitespace.
var ErrEmptyPrompt = errors.New("prompt is empty")

// lastUserContent returns the content of the final user message.
func lastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
}

func buildOpenAIRequest(p *Provider, chat ChatPayload) (*RequestSpec, error) {
	if strings.TrimSpace(lastUserContent(chat.Messages)) == "" {
		return nil, ErrEmptyPrompt
	}
	body, err := json.Marshal(openAIRequest{
		Model:       p.WireModel(chat.Model),
		Messages:    chat.Messages,
		Temperature: chat.Temperature,
		MaxTokens:   chat.MaxTokens,
		Stream:      chat.Stream,
		TopP:        chat.TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}
	return &RequestSpec{
		Method: "POST",
		URL:    strings.TrimSuffix(p.BaseURL, "/") + "/chat/completions",
		Body:   body,
	}, nil
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseOpenAIResponse(body []byte) (*NormalizedReply, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat response has no choices")
	}
	choice := resp.Choices[0]
	content := choice.Message.Content
	if content == "" {
		content = choice.Text
	}
	return &NormalizedReply{
		Content: content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		FinishReason: choice.FinishReason,
	}, nil
}
