package scheduler

import (
	"context"
	"log"
	"time"
)

type Task func(ctx context.Context) error

// Every runs task right away and then once per interval until ctx is done.
// Runs never overlap: a slow run delays the next tick instead of stacking.
// Errors go to l (log.Default when nil) tagged with name and are otherwise
// ignored.
func Every(ctx context.Context, l *log.Logger, interval time.Duration, name string, task Task) {
	if interval <= 0 {
		interval = time.Minute
	}
	if l == nil {
		l = log.Default()
	}

	run := func() {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			l.Printf("[%s] error: %v", name, err)
		}
	}

	if ctx.Err() != nil {
		return
	}
	run()

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ctx.Err() != nil {
				return
			}
			run()
		}
	}
}
