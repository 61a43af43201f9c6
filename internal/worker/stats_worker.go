package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-request-service/internal/service"
	"github.com/spec-kit/support-request-service/internal/viewcache"
)

// statsWorkerPeriods lists the windows the background refresh keeps warm.
var statsWorkerPeriods = []string{"", "24h", "7d", "30d"}

// StartStatsWorker refreshes the stats snapshots on the stats poll
// cadence so dashboard reads stay warm between invalidations. Stop the
// returned poller during shutdown.
func StartStatsWorker(ctx context.Context, stats *service.StatsService, views *viewcache.Views, logger *zap.Logger) *viewcache.Poller {
	interval := views.Policies().Stats.PollInterval
	if interval <= 0 {
		return nil
	}
	return viewcache.StartPoller(ctx, interval, func(ctx context.Context) {
		for _, period := range statsWorkerPeriods {
			if _, err := stats.Snapshot(ctx, period); err != nil {
				logger.Warn("stats refresh failed",
					zap.String("period", period),
					zap.Error(err))
			}
		}
	})
}
