package deletequeue

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"bsfilter-bot/internal/store"
)

type deleteCall struct {
	chatID    int64
	messageID int
}

func newTestQueue(t *testing.T, del Deleter) (*Queue, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	q := New(st, del, slog.Default())
	return q, st
}

func TestScheduleZeroDelayIsDue(t *testing.T) {
	ctx := context.Background()
	var calls []deleteCall
	q, st := newTestQueue(t, func(ctx context.Context, chatID int64, messageID int) error {
		calls = append(calls, deleteCall{chatID, messageID})
		return nil
	})

	if err := q.Schedule(ctx, 1, 42, 0); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := q.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(calls) != 1 || calls[0] != (deleteCall{1, 42}) {
		t.Fatalf("delete calls = %+v, want exactly one for (1,42)", calls)
	}
	tasks, _ := st.ListDeleteTasks(ctx)
	if len(tasks) != 0 {
		t.Errorf("task still stored after sweep: %+v", tasks)
	}

	// Second sweep: nothing left to do.
	if err := q.Sweep(ctx); err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("delete invoked %d times, want 1", len(calls))
	}
}

func TestFutureTaskNotSwept(t *testing.T) {
	ctx := context.Background()
	var calls int
	q, st := newTestQueue(t, func(ctx context.Context, chatID int64, messageID int) error {
		calls++
		return nil
	})

	if err := q.Schedule(ctx, 1, 7, time.Hour); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := q.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if calls != 0 {
		t.Errorf("future task deleted %d times, want 0", calls)
	}
	tasks, _ := st.ListDeleteTasks(ctx)
	if len(tasks) != 1 {
		t.Errorf("future task should remain stored, got %d", len(tasks))
	}
}

func TestFailedDeleteStillCompletes(t *testing.T) {
	ctx := context.Background()
	q, st := newTestQueue(t, func(ctx context.Context, chatID int64, messageID int) error {
		return errors.New("message to delete not found")
	})

	if err := q.Schedule(ctx, 9, 100, 0); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := q.Sweep(ctx); err != nil {
		t.Fatalf("Sweep should swallow delete errors: %v", err)
	}
	tasks, _ := st.ListDeleteTasks(ctx)
	if len(tasks) != 0 {
		t.Errorf("failed delete must still remove the task, got %+v", tasks)
	}
}

func TestRescheduleOverwrites(t *testing.T) {
	ctx := context.Background()
	var calls int
	q, st := newTestQueue(t, func(ctx context.Context, chatID int64, messageID int) error {
		calls++
		return nil
	})

	// First far in the future, then due now: the overwrite wins.
	if err := q.Schedule(ctx, 2, 5, time.Hour); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := q.Schedule(ctx, 2, 5, 0); err != nil {
		t.Fatalf("re-Schedule: %v", err)
	}
	tasks, _ := st.ListDeleteTasks(ctx)
	if len(tasks) != 1 {
		t.Fatalf("re-scheduling must not duplicate the task: %d stored", len(tasks))
	}

	if err := q.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if calls != 1 {
		t.Errorf("delete invoked %d times, want 1", calls)
	}
}

func TestPastDueAfterRestart(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	// A task persisted by a previous process, already past due.
	q1 := New(st, func(ctx context.Context, chatID int64, messageID int) error { return nil }, slog.Default())
	q1.now = func() time.Time { return time.Now().Add(-10 * time.Minute) }
	if err := q1.Schedule(ctx, 3, 8, time.Minute); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	// Fresh process over the same store sweeps it up.
	var calls int
	q2 := New(st, func(ctx context.Context, chatID int64, messageID int) error {
		calls++
		return nil
	}, slog.Default())
	if err := q2.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if calls != 1 {
		t.Errorf("past-due task swept %d times, want 1", calls)
	}
}
