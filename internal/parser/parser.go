// Package parser turns free-text commands into raw intents with a language
// model. It never retries; a failed parse is reported to the caller as-is.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/llm"
)

// ErrEmptyCommand is returned for blank input.
var ErrEmptyCommand = errors.New("command is empty")

// Kind classifies a parse failure.
type Kind string

const (
	// NoToolCall means the model answered without calling the tool.
	NoToolCall Kind = "no_tool_call"
	// SchemaViolation means the tool call arguments were missing or malformed.
	SchemaViolation Kind = "schema_violation"
	// ProviderError means the model could not be reached or failed.
	ProviderError Kind = "provider_error"
)

// ParseError is returned by Parse for every model-related failure.
type ParseError struct {
	Kind Kind
	Err  error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case NoToolCall:
		return fmt.Sprintf("could not understand the command: %v", e.Err)
	case SchemaViolation:
		return fmt.Sprintf("invalid command structure: %v", e.Err)
	default:
		return fmt.Sprintf("language model error: %v", e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// KindOf returns the parse error kind of err, or "" if err is not a ParseError.
func KindOf(err error) Kind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Parser sends commands to a language model with the fixed intent tool.
type Parser struct {
	provider llm.Provider
	tool     llm.Tool
	prompt   string
	logger   zerolog.Logger
}

// New creates a parser backed by provider.
func New(provider llm.Provider, logger zerolog.Logger) *Parser {
	return &Parser{
		provider: provider,
		tool:     llm.ParseMediaCommandTool(),
		prompt:   llm.SystemPrompt,
		logger:   logger.With().Str("component", "parser").Logger(),
	}
}

// Parse extracts a raw intent from text.
func (p *Parser) Parse(ctx context.Context, text string) (intent.Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return intent.Intent{}, ErrEmptyCommand
	}

	p.logger.Debug().Str("command", text).Msg("Parsing command")

	start := time.Now()
	call, err := p.provider.Call(ctx, p.prompt, text, p.tool)
	latency := time.Since(start)
	if err != nil {
		if errors.Is(err, llm.ErrNoToolCall) {
			p.logger.Info().Str("provider", p.provider.Name()).Dur("latency", latency).Msg("Model did not call the parse tool")
			return intent.Intent{}, &ParseError{Kind: NoToolCall, Err: err}
		}
		p.logger.Warn().Err(err).
			Str("provider", p.provider.Name()).
			Str("model", p.provider.Model()).
			Dur("latency", latency).
			Msg("Language model call failed")
		return intent.Intent{}, &ParseError{Kind: ProviderError, Err: err}
	}

	in, err := decodeArguments(call.Arguments)
	if err != nil {
		p.logger.Info().Err(err).RawJSON("arguments", call.Arguments).Msg("Tool call violated schema")
		return intent.Intent{}, &ParseError{Kind: SchemaViolation, Err: err}
	}

	p.logger.Info().
		Str("provider", p.provider.Name()).
		Str("model", p.provider.Model()).
		Dur("latency", latency).
		Str("intent", in.Summary()).
		Msg("Command parsed")
	return in, nil
}

type toolArguments struct {
	Action    string          `json:"action"`
	MediaType string          `json:"media_type"`
	Title     string          `json:"title"`
	Season    any             `json:"season"`
	Episodes  any             `json:"episodes"`
	Criteria  intent.Criteria `json:"criteria"`
}

// decodeArguments maps tool call arguments onto an Intent. Enum values are
// only normalized here; checking them against the closed sets is left to the
// engine so every problem is reported together.
func decodeArguments(raw json.RawMessage) (intent.Intent, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var args toolArguments
	if err := dec.Decode(&args); err != nil {
		return intent.Intent{}, fmt.Errorf("malformed arguments: %w", err)
	}

	var problems []error
	action := strings.ToLower(strings.TrimSpace(args.Action))
	if action == "" {
		problems = append(problems, errors.New("missing required field action"))
	}
	mediaType := strings.ToLower(strings.TrimSpace(args.MediaType))
	if mediaType == "" {
		problems = append(problems, errors.New("missing required field media_type"))
	}

	in := intent.Intent{
		Action:    intent.Action(action),
		MediaType: intent.MediaType(mediaType),
		Title:     strings.TrimSpace(args.Title),
		Criteria:  args.Criteria,
	}

	if args.Season != nil {
		season, err := toInt(args.Season)
		if err != nil {
			problems = append(problems, fmt.Errorf("season: %w", err))
		} else {
			in.Season = &season
		}
	}

	switch eps := args.Episodes.(type) {
	case nil:
	case []any:
		for i, e := range eps {
			n, err := toInt(e)
			if err != nil {
				problems = append(problems, fmt.Errorf("episodes[%d]: %w", i, err))
				continue
			}
			in.Episodes = append(in.Episodes, n)
		}
	default:
		// a single number is accepted as a one-element list
		n, err := toInt(eps)
		if err != nil {
			problems = append(problems, fmt.Errorf("episodes: %w", err))
		} else {
			in.Episodes = []int{n}
		}
	}

	if err := errors.Join(problems...); err != nil {
		return intent.Intent{}, err
	}
	return in, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("%s is not an integer", n)
		}
		return int(f), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%v is not an integer", v)
	}
}
