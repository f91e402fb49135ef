// Package pipeline runs a command through the parser, the intent engine and
// the executor, bounding each stage with its configured timeout. Every run is
// broadcast to websocket clients and recorded in the command history.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/config"
	"github.com/arrmate/arrmate/internal/engine"
	"github.com/arrmate/arrmate/internal/executor"
	"github.com/arrmate/arrmate/internal/history"
	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/parser"
	"github.com/arrmate/arrmate/internal/registry"
)

// Stage is the last pipeline stage a command reached.
type Stage string

const (
	StageParsed           Stage = "parsed"
	StageParseFailed      Stage = "parse_failed"
	StageRejected         Stage = "rejected"
	StageAmbiguous        Stage = "ambiguous"
	StageResolutionFailed Stage = "resolution_failed"
	StageExecuted         Stage = "executed"
)

// Websocket message types.
const (
	EventStarted   = "command:started"
	EventParsed    = "command:parsed"
	EventCompleted = "command:completed"
)

// Parser turns text into a raw intent.
type Parser interface {
	Parse(ctx context.Context, text string) (intent.Intent, error)
}

// Snapshotter hands out the routing table a command runs against.
type Snapshotter interface {
	Snapshot() *registry.Table
}

// Recorder persists pipeline runs.
type Recorder interface {
	Create(ctx context.Context, rec history.Record) (*history.Entry, error)
}

// Command is one request to the pipeline.
type Command struct {
	Text   string
	DryRun bool
	Source history.Source
}

// Response describes how far a command got and what happened.
type Response struct {
	ID             string                  `json:"id"`
	Text           string                  `json:"text,omitempty"`
	Stage          Stage                   `json:"stage"`
	Status         intent.Status           `json:"status"`
	Message        string                  `json:"message"`
	Intent         *intent.Intent          `json:"intent,omitempty"`
	Result         *intent.ExecutionResult `json:"result,omitempty"`
	Reasons        []string                `json:"reasons,omitempty"`
	Candidates     []intent.Candidate      `json:"candidates,omitempty"`
	ParseErrorKind parser.Kind             `json:"parseErrorKind,omitempty"`
	DryRun         bool                    `json:"dryRun"`
	DurationMs     int64                   `json:"durationMs"`

	// Err is the error that stopped the pipeline, nil when it executed.
	Err error `json:"-"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	parser      Parser
	engine      *engine.Engine
	executor    *executor.Executor
	services    Snapshotter
	history     Recorder
	broadcaster registry.Broadcaster
	cfg         config.PipelineConfig
	logger      zerolog.Logger
}

// New creates a pipeline. The parser may be nil when no language model is
// configured; only RunIntent is usable then.
func New(p Parser, eng *engine.Engine, exec *executor.Executor, services Snapshotter, cfg config.PipelineConfig, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		parser:   p,
		engine:   eng,
		executor: exec,
		services: services,
		cfg:      cfg,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// SetHistory enables recording of every run.
func (p *Pipeline) SetHistory(h Recorder) {
	p.history = h
}

// SetBroadcaster sets the WebSocket broadcaster for command events.
func (p *Pipeline) SetBroadcaster(b registry.Broadcaster) {
	p.broadcaster = b
}

// ErrNoParser is returned by Run when no language model is configured.
var ErrNoParser = errors.New("no language model configured")

// Run parses cmd.Text and, unless it is a dry run, resolves and executes the
// resulting intent.
func (p *Pipeline) Run(ctx context.Context, cmd Command) *Response {
	start := time.Now()
	resp := &Response{ID: uuid.NewString(), Text: cmd.Text, DryRun: cmd.DryRun}
	logger := p.logger.With().Str("commandId", resp.ID).Str("source", string(cmd.Source)).Logger()

	ctx, cancel := p.withTimeout(ctx, p.cfg.CommandTimeout)
	defer cancel()

	p.broadcast(EventStarted, map[string]any{"id": resp.ID, "text": cmd.Text, "dryRun": cmd.DryRun})
	logger.Debug().Str("command", cmd.Text).Bool("dryRun", cmd.DryRun).Msg("Running command")

	raw, err := p.parse(ctx, cmd.Text)
	if err != nil {
		resp.parseFailed(err)
		logger.Info().Err(err).Str("kind", string(resp.ParseErrorKind)).Msg("Command could not be parsed")
		return p.finish(ctx, cmd, resp, start)
	}
	resp.Intent = &raw
	p.broadcast(EventParsed, map[string]any{"id": resp.ID, "intent": raw})

	if cmd.DryRun {
		resp.Stage = StageParsed
		resp.Status = intent.StatusSuccess
		resp.Message = "parsed: " + raw.Summary()
		return p.finish(ctx, cmd, resp, start)
	}

	p.resolveAndExecute(ctx, logger, raw, resp)
	return p.finish(ctx, cmd, resp, start)
}

// RunIntent resolves and executes an already structured intent. It is used
// to re-submit a disambiguation choice with a resolved id.
func (p *Pipeline) RunIntent(ctx context.Context, raw intent.Intent, source history.Source) *Response {
	start := time.Now()
	resp := &Response{ID: uuid.NewString()}
	logger := p.logger.With().Str("commandId", resp.ID).Str("source", string(source)).Logger()

	ctx, cancel := p.withTimeout(ctx, p.cfg.CommandTimeout)
	defer cancel()

	p.broadcast(EventStarted, map[string]any{"id": resp.ID, "intent": raw})
	in := raw.Clone()
	resp.Intent = &in

	p.resolveAndExecute(ctx, logger, raw, resp)
	return p.finish(ctx, Command{Text: raw.Summary(), Source: source}, resp, start)
}

func (p *Pipeline) parse(ctx context.Context, text string) (intent.Intent, error) {
	if p.parser == nil {
		return intent.Intent{}, &parser.ParseError{Kind: parser.ProviderError, Err: ErrNoParser}
	}
	ctx, cancel := p.withTimeout(ctx, p.cfg.LLMTimeout)
	defer cancel()
	return p.parser.Parse(ctx, text)
}

func (p *Pipeline) resolveAndExecute(ctx context.Context, logger zerolog.Logger, raw intent.Intent, resp *Response) {
	services := p.services.Snapshot()

	resolveCtx, cancel := p.withTimeout(ctx, p.cfg.BackendTimeout)
	resolved, err := p.engine.ValidateAndEnrich(resolveCtx, services, raw)
	cancel()
	if err != nil {
		resp.resolveFailed(err)
		logger.Info().Err(err).Str("stage", string(resp.Stage)).Msg("Intent was not resolved")
		return
	}

	bound := resolved.Intent()
	resp.Intent = &bound
	if bound.Action.Destructive() {
		logger.Info().Str("action", string(bound.Action)).Str("title", bound.Title).Str("resolvedId", resolved.ID()).Msg("Running destructive action")
	} else {
		logger.Debug().Str("resolvedId", resolved.ID()).Msg("Intent resolved")
	}

	result := p.executor.Execute(ctx, services, resolved)
	resp.Stage = StageExecuted
	resp.Status = result.Status
	resp.Message = result.Message
	resp.Result = &result
	if result.Status == intent.StatusFailure {
		resp.Err = executor.FirstError(result)
	}
}

func (r *Response) parseFailed(err error) {
	r.Stage = StageParseFailed
	r.Status = intent.StatusFailure
	r.Message = err.Error()
	r.ParseErrorKind = parser.KindOf(err)
	if errors.Is(err, parser.ErrEmptyCommand) {
		r.ParseErrorKind = parser.SchemaViolation
	}
	r.Err = err
}

func (r *Response) resolveFailed(err error) {
	r.Status = intent.StatusFailure
	r.Message = err.Error()
	r.Err = err

	var (
		invalid   *engine.ValidationError
		ambiguous *engine.AmbiguityError
	)
	switch {
	case errors.As(err, &invalid):
		r.Stage = StageRejected
		r.Reasons = invalid.Reasons
	case errors.As(err, &ambiguous):
		r.Stage = StageAmbiguous
		r.Candidates = ambiguous.Candidates
	default:
		r.Stage = StageResolutionFailed
	}
}

func (p *Pipeline) finish(ctx context.Context, cmd Command, resp *Response, start time.Time) *Response {
	elapsed := time.Since(start)
	resp.DurationMs = elapsed.Milliseconds()

	p.logger.Info().
		Str("commandId", resp.ID).
		Str("stage", string(resp.Stage)).
		Str("status", string(resp.Status)).
		Dur("duration", elapsed).
		Msg(resp.Message)

	p.broadcast(EventCompleted, resp)
	p.record(ctx, cmd, resp, elapsed)
	return resp
}

func (p *Pipeline) record(ctx context.Context, cmd Command, resp *Response, elapsed time.Duration) {
	if p.history == nil {
		return
	}

	rec := history.Record{
		ID:       resp.ID,
		Source:   cmd.Source,
		Text:     cmd.Text,
		Stage:    string(resp.Stage),
		Status:   string(resp.Status),
		Message:  resp.Message,
		Intent:   resp.Intent,
		Result:   resp.Result,
		DryRun:   resp.DryRun,
		Duration: elapsed,
	}
	switch {
	case resp.ParseErrorKind != "":
		rec.Detail = map[string]string{"kind": string(resp.ParseErrorKind)}
	case len(resp.Reasons) > 0:
		rec.Detail = map[string][]string{"reasons": resp.Reasons}
	case len(resp.Candidates) > 0:
		rec.Detail = map[string][]intent.Candidate{"candidates": resp.Candidates}
	}

	// the command may have used up its own deadline
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := p.history.Create(ctx, rec); err != nil {
		p.logger.Warn().Err(err).Str("commandId", resp.ID).Msg("Failed to record command history")
	}
}

func (p *Pipeline) broadcast(msgType string, payload any) {
	if p.broadcaster == nil {
		return
	}
	if err := p.broadcaster.Broadcast(msgType, payload); err != nil {
		p.logger.Debug().Err(err).Str("type", msgType).Msg("Failed to broadcast command event")
	}
}

func (p *Pipeline) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
