package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// functionTool is the OpenAI-style tool definition, also used by Ollama.
type functionTool struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func newFunctionTool(t Tool) functionTool {
	return functionTool{
		Type:     "function",
		Function: functionSpec{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
	}
}

// OpenAI calls any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg Config) *OpenAI {
	return &OpenAI{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  cfg.httpClient(),
	}
}

func (o *OpenAI) Name() string  { return "openai" }
func (o *OpenAI) Model() string { return o.model }

type openAIMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []openAIToolCall `json:"tool_calls,omitempty"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []functionTool  `json:"tools"`
	ToolChoice  any             `json:"tool_choice,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

// Call implements Provider.
func (o *OpenAI) Call(ctx context.Context, systemPrompt, userText string, tool Tool) (*ToolCall, error) {
	req := openAIRequest{
		Model: o.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		Tools: []functionTool{newFunctionTool(tool)},
		ToolChoice: map[string]any{
			"type":     "function",
			"function": map[string]string{"name": tool.Name},
		},
	}

	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}

	var resp openAIResponse
	if err := postJSON(ctx, o.client, o.Name(), o.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return nil, err
	}

	for _, choice := range resp.Choices {
		for _, call := range choice.Message.ToolCalls {
			if call.Function.Name != tool.Name {
				continue
			}
			args, err := toolArguments(call.Function.Arguments)
			if err != nil {
				return nil, err
			}
			return &ToolCall{Name: call.Function.Name, Arguments: args}, nil
		}
	}
	return nil, ErrNoToolCall
}
