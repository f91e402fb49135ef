// Package llm talks to language model providers. Each provider is asked to
// call exactly one tool and returns that call's arguments untouched.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNoToolCall is returned when the model answers without calling the tool.
var ErrNoToolCall = errors.New("model did not call the tool")

// Tool describes a function the model is asked to call. Parameters is a JSON
// schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is the model's call against a Tool.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// Provider is a language model capable of tool calling.
type Provider interface {
	// Name identifies the provider (ollama, openai, ...).
	Name() string
	// Model is the model the provider sends requests to.
	Model() string
	// Call sends the system prompt and user text with tool attached and
	// returns the model's call. It returns ErrNoToolCall if the model
	// replied without one.
	Call(ctx context.Context, systemPrompt, userText string, tool Tool) (*ToolCall, error)
}
