package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-request-service/internal/api/dto"
	"github.com/spec-kit/support-request-service/internal/service"
)

// StatsHandler serves derived request statistics.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Snapshot GET /stats. The period query narrows the window; empty means
// all time.
func (h *StatsHandler) Snapshot(c *fiber.Ctx) error {
	period := c.Query("period")
	stats, err := h.stats.Snapshot(c.UserContext(), period)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		Period:                  period,
		Total:                   stats.Total,
		Open:                    stats.Open,
		InProgress:              stats.InProgress,
		Completed:               stats.Completed,
		Closed:                  stats.Closed,
		CompletionRate:          stats.CompletionRate,
		AvgFirstResponseSeconds: stats.AvgFirstResponse.Seconds(),
		FirstResponseSamples:    stats.FirstResponseSamples,
		GeneratedAt:             stats.GeneratedAt,
	}})
}
