package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arrmate/arrmate/internal/api"
	"github.com/arrmate/arrmate/internal/config"
	"github.com/arrmate/arrmate/internal/registry"
	"github.com/arrmate/arrmate/internal/scheduler"
	"github.com/arrmate/arrmate/internal/scheduler/tasks"
	"github.com/arrmate/arrmate/internal/startup"
	"github.com/arrmate/arrmate/internal/watcher"
	"github.com/arrmate/arrmate/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var demo bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			defer ctx.close()
			return runServer(runCtx, ctx, demo)
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "Start with in-memory demo services and a throwaway history database")
	return cmd
}

func runServer(ctx context.Context, cc *commandContext, demo bool) error {
	cfg := cc.config
	logs := cc.logger(true)
	log := logs.Logger

	log.Info().
		Str("version", config.Version).
		Str("commit", config.Commit).
		Bool("devBuild", config.IsDevBuild()).
		Str("logLevel", cfg.Logging.Level).
		Msg("Starting arrmate")

	hist, err := cc.openHistory(ctx, log)
	if err != nil {
		return err
	}

	reg, err := cc.newRegistry(log)
	if err != nil {
		return err
	}
	if demo {
		if cc.db != nil {
			if err := cc.db.SetDemoMode(ctx, true); err != nil {
				return fmt.Errorf("enable demo database: %w", err)
			}
		}
		if err := reg.Replace(registry.DemoServices()); err != nil {
			return err
		}
		log.Info().Msg("Demo mode enabled")
	}

	hub := websocket.NewHub(log)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	logs.SetBroadcastHub(hub)
	reg.SetBroadcaster(hub)

	p := cc.newPipeline(ctx, reg, log)
	p.SetBroadcaster(hub)
	if hist != nil {
		p.SetHistory(hist)
	}

	sched, err := scheduler.New(log)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if err := tasks.RegisterServiceHealthTask(sched, reg, cfg.Scheduler.HealthInterval, log); err != nil {
		return err
	}
	if hist != nil {
		if err := tasks.RegisterHistoryCleanupTask(sched, hist, cfg.Scheduler.RetentionInterval); err != nil {
			return err
		}
	}

	// Backends are often still starting when arrmate comes up in the same
	// compose stack.
	go func() {
		if _, err := startup.ProbeServices(ctx, reg, startup.DefaultRetryConfig(), log); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("Some services are unreachable, commands against them will fail until they recover")
		}
	}()

	current := func() *config.Config { return cfg }
	// Without a database there is no record of demo mode, so a --demo run
	// does not watch the file at all.
	if cfg.File != "" && (cc.db != nil || !demo) {
		cw, err := watcher.NewService(cfg.File, reg, log)
		if err != nil {
			log.Warn().Err(err).Msg("Config hot reload disabled")
		} else {
			cw.SetBroadcaster(hub)
			if db := cc.db; db != nil {
				cw.SetHold(db.IsDemoMode)
			}
			if err := cw.Start(); err != nil {
				log.Warn().Err(err).Msg("Config hot reload disabled")
			} else {
				defer cw.Stop()
				current = func() *config.Config {
					if c := cw.Current(); c != nil {
						return c
					}
					return cfg
				}
			}
		}
	}

	server := api.NewServer(api.Options{
		Pipeline:  p,
		Registry:  reg,
		Config:    current,
		History:   hist,
		Scheduler: sched,
		Hub:       hub,
		Logs:      logs,
		Database:  cc.db,
	}, log)

	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Warn().Err(err).Msg("Scheduler did not stop cleanly")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Address())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
	return nil
}
