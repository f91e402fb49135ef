package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Ollama calls a local Ollama server through its native chat API.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama provider.
func NewOllama(cfg Config) *Ollama {
	return &Ollama{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  cfg.httpClient(),
	}
}

func (o *Ollama) Name() string  { return "ollama" }
func (o *Ollama) Model() string { return o.model }

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []functionTool  `json:"tools"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

// Call implements Provider.
func (o *Ollama) Call(ctx context.Context, systemPrompt, userText string, tool Tool) (*ToolCall, error) {
	req := ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		Tools:   []functionTool{newFunctionTool(tool)},
		Stream:  false,
		Options: map[string]any{"temperature": 0},
	}

	var resp ollamaChatResponse
	if err := postJSON(ctx, o.client, o.Name(), o.baseURL+"/api/chat", nil, req, &resp); err != nil {
		return nil, err
	}

	for _, call := range resp.Message.ToolCalls {
		if call.Function.Name != tool.Name {
			continue
		}
		args, err := toolArguments(call.Function.Arguments)
		if err != nil {
			return nil, err
		}
		return &ToolCall{Name: call.Function.Name, Arguments: args}, nil
	}
	return nil, ErrNoToolCall
}
