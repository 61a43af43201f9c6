package dto

import (
	"time"

	"github.com/spec-kit/support-request-service/internal/domain"
)

// CreateRequestPayload payload.
type CreateRequestPayload struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    domain.RequestPriority `json:"priority"`
	Category    domain.RequestCategory `json:"category"`
	Tags        []string               `json:"tags"`
}

// RequestSummary response.
type RequestSummary struct {
	ID              string                 `json:"id"`
	ExternalKey     string                 `json:"external_key"`
	CustomerID      string                 `json:"customer_id"`
	AssignedAgentID *string                `json:"assigned_agent_id"`
	Title           string                 `json:"title"`
	Status          domain.RequestStatus   `json:"status"`
	Priority        domain.RequestPriority `json:"priority"`
	Category        domain.RequestCategory `json:"category"`
	Tags            []string               `json:"tags"`
	MessageCount    int                    `json:"message_count"`
	LastMessageAt   *time.Time             `json:"last_message_at"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// RequestDetailResponse provides full request info.
type RequestDetailResponse struct {
	ID              string                 `json:"id"`
	ExternalKey     string                 `json:"external_key"`
	CustomerID      string                 `json:"customer_id"`
	AssignedAgentID *string                `json:"assigned_agent_id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Status          domain.RequestStatus   `json:"status"`
	Priority        domain.RequestPriority `json:"priority"`
	Category        domain.RequestCategory `json:"category"`
	Tags            []string               `json:"tags"`
	Resolution      *string                `json:"resolution"`
	CloseReason     *string                `json:"close_reason"`
	MessageCount    int                    `json:"message_count"`
	LastMessageAt   *time.Time             `json:"last_message_at"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	CompletedAt     *time.Time             `json:"completed_at"`
	ClosedAt        *time.Time             `json:"closed_at"`
}

// CompleteRequestPayload payload.
type CompleteRequestPayload struct {
	Resolution *string `json:"resolution"`
}

// CloseRequestPayload payload.
type CloseRequestPayload struct {
	Reason *string `json:"reason"`
}

// ReopenRequestPayload payload.
type ReopenRequestPayload struct {
	Reason string `json:"reason"`
}

// ReassignRequestPayload payload.
type ReassignRequestPayload struct {
	AgentID string `json:"agent_id"`
}

// UpdatePriorityPayload payload.
type UpdatePriorityPayload struct {
	Priority domain.RequestPriority `json:"priority"`
}

// StatsResponse carries a derived stats snapshot.
type StatsResponse struct {
	Period                  string    `json:"period"`
	Total                   int64     `json:"total"`
	Open                    int64     `json:"open"`
	InProgress              int64     `json:"in_progress"`
	Completed               int64     `json:"completed"`
	Closed                  int64     `json:"closed"`
	CompletionRate          float64   `json:"completion_rate"`
	AvgFirstResponseSeconds float64   `json:"avg_first_response_seconds"`
	FirstResponseSamples    int64     `json:"first_response_samples"`
	GeneratedAt             time.Time `json:"generated_at"`
}
