package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

// Anthropic calls the Anthropic Messages API with a forced tool choice.
type Anthropic struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(cfg Config) *Anthropic {
	return &Anthropic{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  cfg.httpClient(),
	}
}

func (a *Anthropic) Name() string  { return "anthropic" }
func (a *Anthropic) Model() string { return a.model }

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model      string             `json:"model"`
	MaxTokens  int                `json:"max_tokens"`
	System     string             `json:"system"`
	Messages   []anthropicMessage `json:"messages"`
	Tools      []anthropicTool    `json:"tools"`
	ToolChoice map[string]string  `json:"tool_choice"`
}

type anthropicResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text,omitempty"`
		Name  string          `json:"name,omitempty"`
		Input json.RawMessage `json:"input,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Call implements Provider.
func (a *Anthropic) Call(ctx context.Context, systemPrompt, userText string, tool Tool) (*ToolCall, error) {
	req := anthropicRequest{
		Model:     a.model,
		MaxTokens: 1024,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: userText}},
		Tools: []anthropicTool{{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Parameters,
		}},
		ToolChoice: map[string]string{"type": "tool", "name": tool.Name},
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, a.client, a.Name(), a.baseURL+"/v1/messages", headers, req, &resp); err != nil {
		return nil, err
	}

	for _, block := range resp.Content {
		if block.Type != "tool_use" || block.Name != tool.Name {
			continue
		}
		args, err := toolArguments(block.Input)
		if err != nil {
			return nil, err
		}
		return &ToolCall{Name: block.Name, Arguments: args}, nil
	}
	return nil, ErrNoToolCall
}
