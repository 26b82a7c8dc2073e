// Package deletequeue schedules and performs the timed deletion of
// ephemeral messages. Tasks are persisted in the remote store so a restart
// does not orphan "this will self-destruct" promises: the next sweep picks
// up anything already past due.
package deletequeue

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bsfilter-bot/internal/model"
	"bsfilter-bot/internal/store"
)

var (
	sweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_delete_tasks_swept_total",
		Help: "Delete tasks processed by the sweep loop.",
	})
	deleteFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_delete_failures_total",
		Help: "Message deletions that failed and were abandoned.",
	})
)

// Deleter performs the message-deletion side effect. Deleting an
// already-gone message should return nil or an error; either way the task
// is considered done.
type Deleter func(ctx context.Context, chatID int64, messageID int) error

// Queue is the durable delayed-delete scheduler.
// Tasks move Scheduled -> Due -> Completed; there are no retries.
type Queue struct {
	store  store.Store
	delete Deleter
	now    func() time.Time
	logger *slog.Logger
}

func New(st store.Store, del Deleter, logger *slog.Logger) *Queue {
	return &Queue{
		store:  st,
		delete: del,
		now:    time.Now,
		logger: logger.With(slog.String("component", "delete_queue")),
	}
}

// Schedule persists a delete task for (chatID, messageID) due after delay.
// Re-scheduling the same message overwrites the previous due time.
func (q *Queue) Schedule(ctx context.Context, chatID int64, messageID int, delay time.Duration) error {
	task := model.DeleteTask{
		ChatID:     chatID,
		MessageID:  messageID,
		DeleteTime: q.now().Add(delay).Unix(),
	}
	return q.store.PutDeleteTask(ctx, task)
}

// Sweep processes every task whose due time has passed: it attempts the
// deletion once and removes the task record regardless of the outcome.
// A failed delete (message already gone, missing permission) is logged
// and abandoned, never retried.
func (q *Queue) Sweep(ctx context.Context) error {
	tasks, err := q.store.ListDeleteTasks(ctx)
	if err != nil {
		return err
	}

	now := q.now().Unix()
	for _, task := range tasks {
		if task.DeleteTime > now {
			continue
		}
		if err := q.delete(ctx, task.ChatID, task.MessageID); err != nil {
			deleteFailedTotal.Inc()
			q.logger.Debug("delete attempt failed",
				slog.Int64("chat_id", task.ChatID),
				slog.Int("message_id", task.MessageID),
				slog.Any("error", err),
			)
		}
		if err := q.store.RemoveDeleteTask(ctx, task.Key()); err != nil {
			q.logger.Warn("failed to remove delete task", slog.String("key", task.Key()), slog.Any("error", err))
			continue
		}
		sweptTotal.Inc()
	}
	return nil
}

// Run sweeps on every tick until ctx is cancelled. Errors are logged and
// the loop continues on the next tick.
func (q *Queue) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	q.logger.Info("sweep loop started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("sweep loop stopped")
			return
		case <-ticker.C:
			if err := q.Sweep(ctx); err != nil {
				q.logger.Warn("sweep failed", slog.Any("error", err))
			}
		}
	}
}
