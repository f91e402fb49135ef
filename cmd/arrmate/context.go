package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/config"
	"github.com/arrmate/arrmate/internal/database"
	"github.com/arrmate/arrmate/internal/engine"
	"github.com/arrmate/arrmate/internal/executor"
	"github.com/arrmate/arrmate/internal/history"
	"github.com/arrmate/arrmate/internal/llm"
	"github.com/arrmate/arrmate/internal/logger"
	"github.com/arrmate/arrmate/internal/parser"
	"github.com/arrmate/arrmate/internal/pipeline"
	"github.com/arrmate/arrmate/internal/registry"
	"github.com/arrmate/arrmate/internal/resolver"
)

type commandContext struct {
	configFlag *string
	levelFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	log *logger.Logger
	db  *database.Manager
}

func newCommandContext(configFlag, levelFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		levelFlag:  levelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.levelFlag != nil && *c.levelFlag != "" {
			cfg.Logging.Level = *c.levelFlag
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = fmt.Errorf("invalid configuration: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger builds the process logger once. One-shot commands log to stderr at
// warn unless a level was requested so their stdout stays machine readable.
func (c *commandContext) logger(streaming bool) *logger.Logger {
	if c.log != nil {
		return c.log
	}
	lc := logger.FromConfig(c.config.Logging)
	lc.EnableStreaming = streaming
	if !streaming {
		lc.Console = os.Stderr
		lc.Path = ""
		if c.levelFlag == nil || *c.levelFlag == "" {
			lc.Level = "warn"
		}
	}
	c.log = logger.New(lc)
	return c.log
}

// openHistory opens the database and returns the history service, or nil
// when history is disabled.
func (c *commandContext) openHistory(ctx context.Context, log zerolog.Logger) (*history.Service, error) {
	if !c.config.History.Enabled {
		return nil, nil
	}
	db, err := database.NewManager(c.config.Database.Path, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	c.db = db
	return history.NewService(db, history.RetentionSettings{
		Enabled:       c.config.History.Enabled,
		RetentionDays: c.config.History.RetentionDays,
	}, log), nil
}

func (c *commandContext) newRegistry(log zerolog.Logger) (*registry.Registry, error) {
	services, err := registry.FromConfig(c.config, c.config.Pipeline.BackendTimeout)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(services, log)
	if err != nil {
		return nil, err
	}
	reg.SetProbeTimeout(c.config.Pipeline.BackendTimeout)
	return reg, nil
}

// newPipeline wires parser, engine and executor over reg. A provider that
// cannot be built leaves the pipeline without a parser, so only structured
// intents work.
func (c *commandContext) newPipeline(ctx context.Context, reg *registry.Registry, log zerolog.Logger) *pipeline.Pipeline {
	var p pipeline.Parser
	provider, err := llm.NewProvider(ctx, c.config.LLM, c.config.Pipeline.LLMTimeout)
	if err != nil {
		log.Warn().Err(err).Str("provider", c.config.LLM.Provider).Msg("Language model unavailable, free text commands are disabled")
	} else {
		p = parser.New(provider, log)
	}

	res := resolver.New(resolver.Config{
		MinSimilarity:  c.config.Resolver.MinSimilarity,
		HighConfidence: c.config.Resolver.HighConfidence,
		MaxCandidates:  c.config.Resolver.MaxCandidates,
	}, log)

	return pipeline.New(p, engine.New(res, log), executor.New(log), reg, c.config.Pipeline, log)
}

func (c *commandContext) close() {
	if c.db != nil {
		if err := c.db.Close(); err != nil && c.log != nil {
			c.log.Warn().Err(err).Msg("Failed to close database")
		}
		c.db = nil
	}
	if c.log != nil {
		_ = c.log.Close()
	}
}
