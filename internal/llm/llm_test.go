package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrmate/arrmate/internal/config"
)

func serveJSON(t *testing.T, check func(r *http.Request, body map[string]any), response string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)
		if check != nil {
			check(r, body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllama_Call(t *testing.T) {
	srv := serveJSON(t, func(r *http.Request, body map[string]any) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "llama3.1", body["model"])
		assert.Equal(t, false, body["stream"])
		tools := body["tools"].([]any)
		require.Len(t, tools, 1)
	}, `{"message":{"role":"assistant","content":"","tool_calls":[
		{"function":{"name":"parse_media_command","arguments":{"action":"list","media_type":"tv"}}}]}}`)

	p := NewOllama(Config{BaseURL: srv.URL + "/", Model: "llama3.1"})
	call, err := p.Call(context.Background(), SystemPrompt, "list my shows", ParseMediaCommandTool())
	require.NoError(t, err)
	assert.Equal(t, ParseToolName, call.Name)
	assert.JSONEq(t, `{"action":"list","media_type":"tv"}`, string(call.Arguments))
}

func TestOllama_NoToolCall(t *testing.T) {
	srv := serveJSON(t, nil, `{"message":{"role":"assistant","content":"I cannot help with that"}}`)

	_, err := NewOllama(Config{BaseURL: srv.URL, Model: "m"}).
		Call(context.Background(), SystemPrompt, "hello", ParseMediaCommandTool())
	assert.ErrorIs(t, err, ErrNoToolCall)
}

func TestOpenAI_Call(t *testing.T) {
	srv := serveJSON(t, func(r *http.Request, body map[string]any) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		choice := body["tool_choice"].(map[string]any)
		assert.Equal(t, "function", choice["type"])
	}, `{"choices":[{"finish_reason":"tool_calls","message":{"role":"assistant","content":"","tool_calls":[
		{"id":"call_1","type":"function","function":{"name":"parse_media_command",
		 "arguments":"{\"action\":\"add\",\"media_type\":\"movie\",\"title\":\"The Matrix\"}"}}]}}]}`)

	p := NewOpenAI(Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "gpt-4o-mini"})
	call, err := p.Call(context.Background(), SystemPrompt, "add the matrix", ParseMediaCommandTool())
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"add","media_type":"movie","title":"The Matrix"}`, string(call.Arguments))
}

func TestAnthropic_Call(t *testing.T) {
	srv := serveJSON(t, func(r *http.Request, body map[string]any) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.Equal(t, SystemPrompt, body["system"])
		choice := body["tool_choice"].(map[string]any)
		assert.Equal(t, "tool", choice["type"])
		assert.Equal(t, ParseToolName, choice["name"])
		tools := body["tools"].([]any)
		assert.Contains(t, tools[0].(map[string]any), "input_schema")
	}, `{"stop_reason":"tool_use","content":[
		{"type":"text","text":"Sure."},
		{"type":"tool_use","id":"tu_1","name":"parse_media_command","input":{"action":"search","media_type":"movie","criteria":{"quality":"4K"}}}]}`)

	p := NewAnthropic(Config{BaseURL: srv.URL, APIKey: "key", Model: "claude"})
	call, err := p.Call(context.Background(), SystemPrompt, "find 4K blade runner", ParseMediaCommandTool())
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"search","media_type":"movie","criteria":{"quality":"4K"}}`, string(call.Arguments))
}

func TestGemini_Call(t *testing.T) {
	srv := serveJSON(t, func(r *http.Request, body map[string]any) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), r.URL.Path)
		assert.Contains(t, body, "tools")
		assert.Contains(t, body, "toolConfig")
	}, `{"candidates":[{"content":{"role":"model","parts":[
		{"functionCall":{"name":"parse_media_command","args":{"action":"info","media_type":"movie","title":"Alien"}}}]}}]}`)

	p, err := NewGemini(context.Background(), Config{BaseURL: srv.URL, APIKey: "g-key", Model: "gemini-test"})
	require.NoError(t, err)
	call, err := p.Call(context.Background(), SystemPrompt, "tell me about alien", ParseMediaCommandTool())
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"info","media_type":"movie","title":"Alien"}`, string(call.Arguments))
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(Config{BaseURL: srv.URL, Model: "missing"}).
		Call(context.Background(), SystemPrompt, "x", ParseMediaCommandTool())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "model not found")
}

func TestCall_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewOpenAI(Config{BaseURL: srv.URL, Model: "m"}).Call(ctx, SystemPrompt, "x", ParseMediaCommandTool())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestToolArguments(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{`"{\"a\":1}"`, `{"a":1}`},
		{`""`, `{}`},
		{`null`, `{}`},
		{``, `{}`},
	}
	for _, tt := range tests {
		got, err := toolArguments(json.RawMessage(tt.in))
		if err != nil {
			t.Errorf("toolArguments(%s) error: %v", tt.in, err)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("toolArguments(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseMediaCommandTool(t *testing.T) {
	tool := ParseMediaCommandTool()
	assert.Equal(t, ParseToolName, tool.Name)

	props := tool.Parameters["properties"].(map[string]any)
	actions := props["action"].(map[string]any)["enum"].([]string)
	assert.Contains(t, actions, "download_subtitle")
	assert.Contains(t, actions, "remove")
	assert.Equal(t, []string{"action", "media_type"}, tool.Parameters["required"])

	schema := toGenaiSchema(tool.Parameters)
	assert.Equal(t, "OBJECT", string(schema.Type))
	assert.Equal(t, "ARRAY", string(schema.Properties["episodes"].Type))
	assert.Equal(t, "INTEGER", string(schema.Properties["episodes"].Items.Type))
	assert.Contains(t, schema.Properties["media_type"].Enum, "audiobook")
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default().LLM

	p, err := NewProvider(context.Background(), cfg, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
	assert.Equal(t, cfg.Ollama.Model, p.Model())

	cfg.Provider = config.ProviderAnthropic
	_, err = NewProvider(context.Background(), cfg, time.Second)
	assert.Error(t, err, "anthropic requires an api key")

	cfg.Provider = "skynet"
	_, err = NewProvider(context.Background(), cfg, time.Second)
	assert.Error(t, err)
}
