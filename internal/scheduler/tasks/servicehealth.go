package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/registry"
	"github.com/arrmate/arrmate/internal/scheduler"
)

const ServiceHealthTaskID = "service-health"

// RegisterServiceHealthTask registers the task that probes every configured
// backend and records its availability and version.
func RegisterServiceHealthTask(sched *scheduler.Scheduler, reg *registry.Registry, interval time.Duration, logger zerolog.Logger) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          ServiceHealthTaskID,
		Name:        "Service Health Check",
		Description: "Tests the connection to every configured service",
		Interval:    interval,
		Timeout:     interval,
		RunOnStart:  true,
		Func: func(ctx context.Context) error {
			infos, err := reg.Refresh(ctx)
			if err != nil {
				return err
			}
			down := 0
			for _, info := range infos {
				if !info.Available {
					down++
					logger.Warn().Str("service", info.Name).Str("error", info.Error).Msg("Service unavailable")
				}
			}
			logger.Debug().Int("services", len(infos)).Int("unavailable", down).Msg("Service health checked")
			return nil
		},
	})
}
