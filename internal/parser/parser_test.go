package parser

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/llm"
)

type fakeProvider struct {
	args  string
	err   error
	calls int
	text  string
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func (f *fakeProvider) Call(_ context.Context, _, userText string, tool llm.Tool) (*llm.ToolCall, error) {
	f.calls++
	f.text = userText
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ToolCall{Name: tool.Name, Arguments: json.RawMessage(f.args)}, nil
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args string
		want intent.Intent
	}{
		{
			name: "episodes",
			args: `{"action":"remove","media_type":"tv","title":"Angel","season":1,"episodes":[1,2]}`,
			want: intent.Intent{
				Action: intent.ActionRemove, MediaType: intent.MediaTypeTV, Title: "Angel",
				Season: intent.IntPtr(1), Episodes: []int{1, 2},
			},
		},
		{
			name: "criteria",
			args: `{"action":"search","media_type":"movie","title":"Blade Runner","criteria":{"quality":"4K"}}`,
			want: intent.Intent{
				Action: intent.ActionSearch, MediaType: intent.MediaTypeMovie, Title: "Blade Runner",
				Criteria: intent.Criteria{{Key: "quality", Value: "4K"}},
			},
		},
		{
			name: "lenient numbers and case",
			args: `{"action":"REMOVE","media_type":"TV","title":" Lost ","season":"3","episodes":4.0}`,
			want: intent.Intent{
				Action: intent.ActionRemove, MediaType: intent.MediaTypeTV, Title: "Lost",
				Season: intent.IntPtr(3), Episodes: []int{4},
			},
		},
		{
			name: "unknown action is passed through",
			args: `{"action":"rename","media_type":"tv"}`,
			want: intent.Intent{Action: "rename", MediaType: intent.MediaTypeTV},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(&fakeProvider{args: tt.args}, zerolog.Nop())
			got, err := p.Parse(context.Background(), "some command")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		want     Kind
	}{
		{"no tool call", &fakeProvider{err: llm.ErrNoToolCall}, NoToolCall},
		{"provider down", &fakeProvider{err: errors.New("connection refused")}, ProviderError},
		{"timeout", &fakeProvider{err: context.DeadlineExceeded}, ProviderError},
		{"missing media type", &fakeProvider{args: `{"action":"list"}`}, SchemaViolation},
		{"malformed json", &fakeProvider{args: `{"action":`}, SchemaViolation},
		{"bad season", &fakeProvider{args: `{"action":"remove","media_type":"tv","season":"first"}`}, SchemaViolation},
		{"fractional episode", &fakeProvider{args: `{"action":"remove","media_type":"tv","episodes":[1.5]}`}, SchemaViolation},
		{"nested criteria", &fakeProvider{args: `{"action":"search","media_type":"tv","criteria":{"q":{"a":1}}}`}, SchemaViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.provider, zerolog.Nop()).Parse(context.Background(), "do something")
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.Equal(t, 1, tt.provider.calls, "parser must not retry")
		})
	}
}

func TestParse_ProviderErrorKeepsCause(t *testing.T) {
	_, err := New(&fakeProvider{err: context.DeadlineExceeded}, zerolog.Nop()).Parse(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParse_EmptyCommand(t *testing.T) {
	f := &fakeProvider{}
	_, err := New(f, zerolog.Nop()).Parse(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
	assert.Zero(t, f.calls)
}

func TestParse_SendsTrimmedText(t *testing.T) {
	f := &fakeProvider{args: `{"action":"list","media_type":"tv"}`}
	_, err := New(f, zerolog.Nop()).Parse(context.Background(), "  list my shows \n")
	require.NoError(t, err)
	assert.Equal(t, "list my shows", f.text)
}
