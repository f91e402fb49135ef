package tasks

import (
	"context"
	"time"

	"github.com/arrmate/arrmate/internal/history"
	"github.com/arrmate/arrmate/internal/scheduler"
)

const HistoryCleanupTaskID = "history-cleanup"

// RegisterHistoryCleanupTask registers the task that deletes history entries
// older than the configured retention period. A zero interval runs it daily
// at 2 AM.
func RegisterHistoryCleanupTask(sched *scheduler.Scheduler, historyService *history.Service, interval time.Duration) error {
	cfg := scheduler.TaskConfig{
		ID:          HistoryCleanupTaskID,
		Name:        "History Cleanup",
		Description: "Deletes command history entries older than the configured retention period",
		Interval:    interval,
		RunOnStart:  true,
		Func: func(ctx context.Context) error {
			_, err := historyService.CleanupOldEntries(ctx)
			return err
		},
	}
	if interval <= 0 {
		cfg.Cron = "0 2 * * *"
	}
	return sched.RegisterTask(cfg)
}
