package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spec-kit/support-request-service/internal/domain"
	"github.com/spec-kit/support-request-service/internal/repository"
	"github.com/spec-kit/support-request-service/internal/viewcache"
	apperrors "github.com/spec-kit/support-request-service/pkg/util"
)

// StatsService derives aggregate counts from the request population. It
// is read-only: a wrong number is fixed in the underlying data, never by
// patching a stat.
type StatsService struct {
	requests repository.RequestRepository
	views    *viewcache.Views
}

// NewStatsService constructs the service.
func NewStatsService(requests repository.RequestRepository, views *viewcache.Views) *StatsService {
	return &StatsService{requests: requests, views: views}
}

// periodCutoff resolves a period token to a creation-time cutoff.
// An empty period means all time.
func periodCutoff(period string, now time.Time) (*time.Time, error) {
	switch period {
	case "":
		return nil, nil
	case "24h":
		cutoff := now.Add(-24 * time.Hour)
		return &cutoff, nil
	case "7d":
		cutoff := now.Add(-7 * 24 * time.Hour)
		return &cutoff, nil
	case "30d":
		cutoff := now.Add(-30 * 24 * time.Hour)
		return &cutoff, nil
	default:
		return nil, apperrors.NewValidationError("invalid period",
			map[string]any{"period": fmt.Sprintf("unknown period %q; expected 24h, 7d, 30d or empty", period)})
	}
}

// Snapshot computes stats for the period, serving a cached snapshot when
// one younger than the stats staleness tolerance exists.
func (s *StatsService) Snapshot(ctx context.Context, period string) (*domain.RequestStats, error) {
	since, err := periodCutoff(period, time.Now())
	if err != nil {
		return nil, err
	}

	if cached, ok := s.views.GetStats(ctx, period); ok {
		var stats domain.RequestStats
		if jsonErr := json.Unmarshal(cached, &stats); jsonErr == nil {
			return &stats, nil
		}
	}

	counts, err := s.requests.CountByStatus(ctx, since)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	avgSeconds, samples, err := s.requests.AvgFirstResponseSeconds(ctx, since)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	stats := &domain.RequestStats{
		Open:                 counts[domain.RequestStatusOpen],
		InProgress:           counts[domain.RequestStatusInProgress],
		Completed:            counts[domain.RequestStatusCompleted],
		Closed:               counts[domain.RequestStatusClosed],
		AvgFirstResponse:     time.Duration(avgSeconds * float64(time.Second)),
		FirstResponseSamples: samples,
		GeneratedAt:          time.Now(),
	}
	stats.Total = stats.Open + stats.InProgress + stats.Completed + stats.Closed
	stats.CompletionRate = domain.CompletionRate(stats.Completed, stats.Total)

	if encoded, err := json.Marshal(stats); err == nil {
		s.views.PutStats(ctx, period, encoded)
	}
	return stats, nil
}
