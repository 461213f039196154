package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Supervise reruns run until it completes cleanly or the context ends. Any
// error escaping the loop is logged, followed by a fixed cooldown and a full
// restart from the persisted progress. Availability only — the durability
// guarantees live in the store transactions and the progress file.
func Supervise(ctx context.Context, cooldown time.Duration, logger *slog.Logger, run func(ctx context.Context) error) error {
	for {
		err := run(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			logger.Info("interrupted, progress is durable", "error", err)
			return ctx.Err()
		}

		logger.Error("update pass failed, cooling down before restart",
			"error", err, "cooldown", cooldown)

		t := time.NewTimer(cooldown)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
