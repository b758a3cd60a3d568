package worker

// refresh_cron.go
// Background loop that queues an orders and a suppliers refresh on start-up
// and then on every tick. Workers do the actual fetching.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RefreshEnqueuer is the part of Dispatcher the cron needs.
type RefreshEnqueuer interface {
	EnqueueOrdersRefresh(ctx context.Context) (string, error)
	EnqueueSuppliersRefresh(ctx context.Context) error
}

// RunRefreshCron blocks until ctx is cancelled.
func RunRefreshCron(ctx context.Context, q RefreshEnqueuer, interval time.Duration) {
	if interval <= 0 {
		log.Warn().Msg("refresh_cron: disabled (interval <= 0)")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("refresh_cron: started")
	enqueueRefreshes(ctx, q)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("refresh_cron: shutting down")
			return
		case <-ticker.C:
			enqueueRefreshes(ctx, q)
		}
	}
}

func enqueueRefreshes(ctx context.Context, q RefreshEnqueuer) {
	if err := q.EnqueueSuppliersRefresh(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("refresh_cron: failed to queue suppliers refresh")
	}
	if _, err := q.EnqueueOrdersRefresh(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("refresh_cron: failed to queue orders refresh")
	}
}
