package events

import (
	"time"

	"github.com/spec-kit/support-request-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated         EventType = "request.created"
	EventRequestAssigned        EventType = "request.assigned"
	EventRequestCompleted       EventType = "request.completed"
	EventRequestReopened        EventType = "request.reopened"
	EventRequestClosed          EventType = "request.closed"
	EventRequestPriorityChanged EventType = "request.priority_changed"
	EventMessagePosted          EventType = "message.posted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	CustomerID *string            `json:"customer_id,omitempty"`
	AgentID    *string            `json:"agent_id,omitempty"`
}

// Event represents a domain event emitted by services. It carries enough
// identity for the notification dispatcher to render a notice without a
// synchronous store round-trip.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	Title    string                 `json:"title"`
	Priority domain.RequestPriority `json:"priority"`
	Category domain.RequestCategory `json:"category"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	AssignedAgentID string  `json:"assigned_agent_id"`
	PreviousAgentID *string `json:"previous_agent_id,omitempty"`
}

// RequestCompletedPayload payload.
type RequestCompletedPayload struct {
	Resolution *string `json:"resolution,omitempty"`
}

// RequestReopenedPayload payload.
type RequestReopenedPayload struct {
	Reason         string               `json:"reason"`
	ClearedAgentID *string              `json:"cleared_agent_id,omitempty"`
	PreviousStatus domain.RequestStatus `json:"previous_status"`
}

// RequestClosedPayload payload.
type RequestClosedPayload struct {
	Reason         *string              `json:"reason,omitempty"`
	PreviousStatus domain.RequestStatus `json:"previous_status"`
}

// RequestPriorityChangedPayload payload.
type RequestPriorityChangedPayload struct {
	OldPriority domain.RequestPriority `json:"old_priority"`
	NewPriority domain.RequestPriority `json:"new_priority"`
}

// MessagePostedPayload payload.
type MessagePostedPayload struct {
	MessageID   string            `json:"message_id"`
	SenderRole  domain.SenderRole `json:"sender_role"`
	Internal    bool              `json:"internal"`
	BodyPreview string            `json:"body_preview"`
}
