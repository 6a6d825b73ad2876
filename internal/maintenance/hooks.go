package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/albapepper/mercato-data/internal/store"
)

// AfterScrape runs the cleanup tasks once after a successful scrape so
// placeholders written by other tools do not linger until the next tick.
// Failures are logged, never returned; the scrape itself already succeeded.
func AfterScrape(ctx context.Context, coll store.Collection, logger *slog.Logger) {
	tasks := []struct {
		name string
		fn   func(context.Context, store.Collection) (Report, error)
	}{
		{"purge", PurgeInvalid},
		{"collapse", CollapseDuplicates},
	}

	for _, t := range tasks {
		start := time.Now()
		rep, err := t.fn(ctx, coll)
		dur := time.Since(start).Round(time.Millisecond)

		if err != nil {
			logger.Warn("Post-scrape cleanup failed",
				"task", t.name, "duration", dur, "error", err)
			continue
		}
		logger.Info("Post-scrape cleanup", "task", t.name, "scanned", rep.Scanned, "deleted", rep.Deleted, "duration", dur)
	}
}
